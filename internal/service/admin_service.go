package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hailaprogramare/contest-backend/internal/model"
	"github.com/hailaprogramare/contest-backend/internal/repository"
	"github.com/hailaprogramare/contest-backend/pkg/logger"
)

// AdminService backs the operator dashboard: credential check, team
// listing with search, detail view, deletion.
type AdminService struct {
	teams   repository.TeamRepository
	members repository.MemberRepository
	flags   repository.FlagRepository
}

func NewAdminService() *AdminService {
	return &AdminService{}
}

func (a *AdminService) WithTeamRepo(r repository.TeamRepository) *AdminService {
	a.teams = r
	return a
}

func (a *AdminService) WithMemberRepo(r repository.MemberRepository) *AdminService {
	a.members = r
	return a
}

func (a *AdminService) WithFlagRepo(r repository.FlagRepository) *AdminService {
	a.flags = r
	return a
}

// Authenticate compares the submitted password against the bcrypt hash
// stored under the admin_password flag.
func (a *AdminService) Authenticate(ctx context.Context, password string) *Error {
	l := logger.FromContext(ctx)

	flag, err := a.flags.Get(ctx, model.FlagAdminPassword)
	if errors.Is(err, repository.ErrNotFound) {
		l.Warn("admin login attempted with no admin_password flag provisioned")
		return NewError(ErrorCodeUnauthorized, "invalid password")
	}
	if err != nil {
		l.Error("failed to read admin credential", zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to read admin credential")
	}

	if bcrypt.CompareHashAndPassword([]byte(flag.Value), []byte(password)) != nil {
		l.Warn("admin login failed")
		return NewError(ErrorCodeUnauthorized, "invalid password")
	}

	l.Info("admin authenticated")

	return nil
}

// ListTeams returns all teams newest-first, optionally filtered by a
// case-insensitive substring over name, school and coordinator name.
func (a *AdminService) ListTeams(ctx context.Context, search string) ([]*model.Team, *Error) {
	l := logger.FromContext(ctx)

	teams, err := a.teams.List(ctx)
	if err != nil {
		l.Error("failed to list teams", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list teams")
	}

	search = strings.TrimSpace(search)
	if search == "" {
		return teams, nil
	}

	filtered := make([]*model.Team, 0, len(teams))
	for _, team := range teams {
		if matchesSearch(team, search) {
			filtered = append(filtered, team)
		}
	}

	return filtered, nil
}

func (a *AdminService) GetTeam(ctx context.Context, id string) (*model.TeamDetail, *Error) {
	l := logger.FromContext(ctx)

	team, err := a.teams.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		l.Error("failed to get team", zap.String("team_id", id), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}

	members, err := a.members.ListByTeam(ctx, id)
	if err != nil {
		l.Error("failed to list team members", zap.String("team_id", id), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list team members")
	}

	return &model.TeamDetail{Team: team, Members: members}, nil
}

func (a *AdminService) DeleteTeam(ctx context.Context, id string) *Error {
	l := logger.FromContext(ctx)

	if err := a.teams.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewError(ErrorCodeNotFound, "team not found")
		}
		l.Error("failed to delete team", zap.String("team_id", id), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to delete team")
	}

	l.Info("team deleted by admin", zap.String("team_id", id))

	return nil
}

func matchesSearch(team *model.Team, search string) bool {
	haystack := strings.ToLower(team.Name + " " + team.School + " " + team.CoordinatorName)
	return strings.Contains(haystack, strings.ToLower(search))
}
