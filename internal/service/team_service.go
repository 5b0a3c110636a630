package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hailaprogramare/contest-backend/internal/db"
	"github.com/hailaprogramare/contest-backend/internal/model"
	"github.com/hailaprogramare/contest-backend/internal/repository"
	"github.com/hailaprogramare/contest-backend/pkg/logger"
)

// TeamService owns the team lifecycle for a signed-in identity:
// register, update, join by code, leave, delete, submit solution link.
type TeamService struct {
	tx db.Transactor

	teams   repository.TeamRepository
	members repository.MemberRepository
	flags   repository.FlagRepository
}

func NewTeamService(tx db.Transactor) *TeamService {
	return &TeamService{
		tx: tx,
	}
}

func (t *TeamService) WithTeamRepo(r repository.TeamRepository) *TeamService {
	t.teams = r
	return t
}

func (t *TeamService) WithMemberRepo(r repository.MemberRepository) *TeamService {
	t.members = r
	return t
}

func (t *TeamService) WithFlagRepo(r repository.FlagRepository) *TeamService {
	t.flags = r
	return t
}

func (t *TeamService) Register(ctx context.Context, id *model.Identity, profile *model.TeamProfile) (*model.Team, *Error) {
	l := logger.FromContext(ctx)

	if verr := validateProfile(profile); verr != nil {
		return nil, verr
	}

	flag, err := t.flags.Get(ctx, model.FlagRegistration)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		l.Error("failed to read registration flag", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to read registration state")
	}
	if flag == nil || !model.ParseFlagBool(flag.Value) {
		l.Warn("registration attempt while closed", zap.String("owner_sub", id.Sub))
		return nil, NewError(ErrorCodeRegistrationClosed, "registration is closed")
	}

	if _, err = t.members.GetByUser(ctx, id.Sub); err == nil {
		return nil, NewError(ErrorCodeAlreadyExists, "identity already belongs to a team")
	} else if !errors.Is(err, repository.ErrNotFound) {
		l.Error("failed to check membership", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to check membership")
	}

	// Join codes are short, so a collision is possible; retry with a fresh
	// code on unique violation.
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		code, err := newJoinCode()
		if err != nil {
			l.Error("failed to generate join code", zap.Error(err))
			return nil, NewError(ErrorCodeUnspecified, "failed to generate join code")
		}

		team := teamFromProfile(profile)
		team.ID = uuid.NewString()
		team.TeamCode = code
		team.OwnerSub = id.Sub

		txErr := t.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
			if err := t.teams.Create(txCtx, team); err != nil {
				return err
			}
			return t.members.Add(txCtx, &model.TeamMember{
				TeamID:    team.ID,
				UserSub:   id.Sub,
				UserName:  id.Name,
				UserEmail: id.Email,
				Role:      model.RoleOwner,
			})
		})
		if txErr == nil {
			l.Info("team registered",
				zap.String("team_id", team.ID),
				zap.String("team_name", team.Name),
				zap.String("owner_sub", id.Sub))
			return team, nil
		}
		if errors.Is(txErr, repository.ErrAlreadyExists) {
			l.Warn("join code collision, retrying", zap.String("team_code", code))
			continue
		}
		l.Error("failed to register team", zap.String("team_name", team.Name), zap.Error(txErr))
		return nil, NewError(ErrorCodeUnspecified, "failed to register team")
	}

	return nil, NewError(ErrorCodeUnspecified, "could not allocate a unique join code")
}

func (t *TeamService) Get(ctx context.Context, userSub string) (*model.TeamView, *Error) {
	l := logger.FromContext(ctx)

	member, err := t.members.GetByUser(ctx, userSub)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "identity has no team")
	}
	if err != nil {
		l.Error("failed to get membership", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get membership")
	}

	team, err := t.teams.Get(ctx, member.TeamID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		l.Error("failed to get team", zap.String("team_id", member.TeamID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}

	return &model.TeamView{Team: team, Role: member.Role}, nil
}

func (t *TeamService) Update(ctx context.Context, userSub string, profile *model.TeamProfile) (*model.Team, *Error) {
	l := logger.FromContext(ctx)

	if verr := validateProfile(profile); verr != nil {
		return nil, verr
	}

	existing, err := t.teams.GetByOwner(ctx, userSub)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeForbidden, "only the team owner can update the team")
	}
	if err != nil {
		l.Error("failed to get team", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}

	team := teamFromProfile(profile)
	team.ID = existing.ID

	updated, err := t.teams.Update(ctx, team)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		l.Error("failed to update team", zap.String("team_id", existing.ID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to update team")
	}

	l.Info("team updated", zap.String("team_id", updated.ID))

	return updated, nil
}

func (t *TeamService) Join(ctx context.Context, id *model.Identity, code string) (*model.TeamView, *Error) {
	l := logger.FromContext(ctx)

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, NewError(ErrorCodeValidation, "join code is required")
	}

	team, err := t.teams.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		l.Warn("join with unknown code", zap.String("team_code", code))
		return nil, NewError(ErrorCodeNotFound, "invalid join code")
	}
	if err != nil {
		l.Error("failed to look up join code", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to look up join code")
	}

	if _, err = t.members.GetByUser(ctx, id.Sub); err == nil {
		return nil, NewError(ErrorCodeAlreadyExists, "identity already belongs to a team")
	} else if !errors.Is(err, repository.ErrNotFound) {
		l.Error("failed to check membership", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to check membership")
	}

	err = t.members.Add(ctx, &model.TeamMember{
		TeamID:    team.ID,
		UserSub:   id.Sub,
		UserName:  id.Name,
		UserEmail: id.Email,
		Role:      model.RoleMember,
	})
	if errors.Is(err, repository.ErrAlreadyExists) {
		return nil, NewError(ErrorCodeAlreadyExists, "identity already belongs to a team")
	}
	if err != nil {
		l.Error("failed to join team", zap.String("team_id", team.ID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to join team")
	}

	l.Info("joined team", zap.String("team_id", team.ID), zap.String("user_sub", id.Sub))

	return &model.TeamView{Team: team, Role: model.RoleMember}, nil
}

func (t *TeamService) Leave(ctx context.Context, userSub string) *Error {
	l := logger.FromContext(ctx)

	member, err := t.members.GetByUser(ctx, userSub)
	if errors.Is(err, repository.ErrNotFound) {
		return NewError(ErrorCodeNotFound, "identity has no team")
	}
	if err != nil {
		l.Error("failed to get membership", zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to get membership")
	}

	if member.Role == model.RoleOwner {
		return NewError(ErrorCodeForbidden, "the owner must delete the team instead of leaving it")
	}

	if err = t.members.Remove(ctx, member.TeamID, userSub); err != nil && !errors.Is(err, repository.ErrNotFound) {
		l.Error("failed to leave team", zap.String("team_id", member.TeamID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to leave team")
	}

	l.Info("left team", zap.String("team_id", member.TeamID), zap.String("user_sub", userSub))

	return nil
}

func (t *TeamService) Delete(ctx context.Context, userSub string) *Error {
	l := logger.FromContext(ctx)

	member, err := t.members.GetByUser(ctx, userSub)
	if errors.Is(err, repository.ErrNotFound) {
		return NewError(ErrorCodeNotFound, "identity has no team")
	}
	if err != nil {
		l.Error("failed to get membership", zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to get membership")
	}

	if member.Role != model.RoleOwner {
		return NewError(ErrorCodeForbidden, "only the team owner can delete the team")
	}

	// Memberships go with the team via cascade.
	if err = t.teams.Delete(ctx, member.TeamID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewError(ErrorCodeNotFound, "team not found")
		}
		l.Error("failed to delete team", zap.String("team_id", member.TeamID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to delete team")
	}

	l.Info("team deleted", zap.String("team_id", member.TeamID), zap.String("owner_sub", userSub))

	return nil
}

func (t *TeamService) SubmitSolution(ctx context.Context, userSub, url string) (*model.Team, *Error) {
	l := logger.FromContext(ctx)

	url = strings.TrimSpace(url)
	if url == "" {
		return nil, NewError(ErrorCodeValidation, "solution link is required")
	}

	flag, err := t.flags.Get(ctx, model.FlagStart)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		l.Error("failed to read contest flag", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to read contest state")
	}
	if flag == nil || !model.ParseFlagBool(flag.Value) {
		return nil, NewError(ErrorCodeContestNotStarted, "the contest has not started")
	}

	member, err := t.members.GetByUser(ctx, userSub)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "identity has no team")
	}
	if err != nil {
		l.Error("failed to get membership", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get membership")
	}

	updated, err := t.teams.SetSolutionURL(ctx, member.TeamID, url)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		l.Error("failed to save solution link", zap.String("team_id", member.TeamID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to save solution link")
	}

	l.Info("solution link submitted", zap.String("team_id", member.TeamID))

	return updated, nil
}

// validateProfile re-checks the mandatory registration fields so no remote
// write happens on an incomplete submission, whatever the transport did.
func validateProfile(p *model.TeamProfile) *Error {
	if !p.PrivacyAccepted {
		return NewError(ErrorCodeValidation, "the privacy policy must be accepted")
	}

	required := []struct {
		name  string
		value string
	}{
		{"name", p.Name},
		{"school", p.School},
		{"section", p.Section},
		{"coordinator_name", p.CoordinatorName},
		{"coordinator_email", p.CoordinatorEmail},
		{"captain_name", p.CaptainName},
		{"captain_email", p.CaptainEmail},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return NewError(ErrorCodeValidation, f.name+" is required")
		}
	}

	if p.Section != model.SectionGimnaziu && p.Section != model.SectionLiceu {
		return NewError(ErrorCodeValidation, "section must be gimnaziu or liceu")
	}

	return nil
}

func teamFromProfile(p *model.TeamProfile) *model.Team {
	return &model.Team{
		Name:             p.Name,
		School:           p.School,
		Section:          p.Section,
		CoordinatorName:  p.CoordinatorName,
		CoordinatorEmail: p.CoordinatorEmail,
		CoordinatorPhone: p.CoordinatorPhone,
		CaptainName:      p.CaptainName,
		CaptainEmail:     p.CaptainEmail,
		CaptainDiscord:   p.CaptainDiscord,
		Member1Name:      p.Member1Name,
		Member1Email:     p.Member1Email,
		Member1Discord:   p.Member1Discord,
		Member2Name:      p.Member2Name,
		Member2Email:     p.Member2Email,
		Member2Discord:   p.Member2Discord,
		Member3Name:      p.Member3Name,
		Member3Email:     p.Member3Email,
		Member3Discord:   p.Member3Discord,
		DiplomaEmail:     p.DiplomaEmail,
	}
}
