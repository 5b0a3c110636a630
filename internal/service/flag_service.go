package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hailaprogramare/contest-backend/internal/model"
	"github.com/hailaprogramare/contest-backend/internal/repository"
	"github.com/hailaprogramare/contest-backend/pkg/logger"
)

// FlagService reads and mutates the global contest switches.
type FlagService struct {
	flags repository.FlagRepository
}

func NewFlagService() *FlagService {
	return &FlagService{}
}

func (f *FlagService) WithFlagRepo(r repository.FlagRepository) *FlagService {
	f.flags = r
	return f
}

// Snapshot fetches every client-facing flag in one call.
func (f *FlagService) Snapshot(ctx context.Context) (*model.FlagSnapshot, *Error) {
	l := logger.FromContext(ctx)

	rows, err := f.flags.GetMany(ctx, []string{
		model.FlagRegistration,
		model.FlagStart,
		model.FlagSubjectGimnaziu,
		model.FlagSubjectLiceu,
	})
	if err != nil {
		l.Error("failed to load flags", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to load flags")
	}

	snapshot := &model.FlagSnapshot{}
	for _, row := range rows {
		switch row.Name {
		case model.FlagRegistration:
			snapshot.RegistrationOpen = model.ParseFlagBool(row.Value)
		case model.FlagStart:
			snapshot.ContestStarted = model.ParseFlagBool(row.Value)
		case model.FlagSubjectGimnaziu:
			snapshot.SubjectGimnaziu = row.Value
		case model.FlagSubjectLiceu:
			snapshot.SubjectLiceu = row.Value
		}
	}

	return snapshot, nil
}

// Toggle flips a boolean flag and returns the value the store confirmed,
// never a locally guessed one.
func (f *FlagService) Toggle(ctx context.Context, name string) (bool, *Error) {
	l := logger.FromContext(ctx)

	if name != model.FlagRegistration && name != model.FlagStart {
		return false, NewError(ErrorCodeValidation, "flag cannot be toggled")
	}

	current, err := f.flags.Get(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return false, NewError(ErrorCodeNotFound, "flag not found")
	}
	if err != nil {
		l.Error("failed to read flag", zap.String("flag", name), zap.Error(err))
		return false, NewError(ErrorCodeUnspecified, "failed to read flag")
	}

	next := model.FormatFlagBool(!model.ParseFlagBool(current.Value))

	confirmed, err := f.flags.Set(ctx, name, next)
	if errors.Is(err, repository.ErrNotFound) {
		return false, NewError(ErrorCodeNotFound, "flag not found")
	}
	if err != nil {
		l.Error("failed to update flag", zap.String("flag", name), zap.Error(err))
		return false, NewError(ErrorCodeUnspecified, "failed to update flag")
	}

	l.Info("flag toggled", zap.String("flag", name), zap.String("value", confirmed.Value))

	return model.ParseFlagBool(confirmed.Value), nil
}

// SetSubjectLink stores the subject document link for a section.
func (f *FlagService) SetSubjectLink(ctx context.Context, section, link string) *Error {
	l := logger.FromContext(ctx)

	flagName, ok := model.SubjectFlagForSection(section)
	if !ok {
		return NewError(ErrorCodeValidation, "section must be gimnaziu or liceu")
	}
	if link == "" {
		return NewError(ErrorCodeValidation, "subject link is required")
	}

	if err := f.flags.Upsert(ctx, flagName, link); err != nil {
		l.Error("failed to save subject link", zap.String("flag", flagName), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to save subject link")
	}

	l.Info("subject link saved", zap.String("flag", flagName))

	return nil
}
