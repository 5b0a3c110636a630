package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hailaprogramare/contest-backend/internal/model"
	"github.com/hailaprogramare/contest-backend/internal/repository"
)

var joinCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func testIdentity() *model.Identity {
	return &model.Identity{
		Sub:   "sub-123",
		Name:  "Ana Popescu",
		Email: "ana@example.com",
	}
}

func validProfile() *model.TeamProfile {
	return &model.TeamProfile{
		Name:             "CodeWarriors",
		School:           "Colegiul Național",
		Section:          model.SectionLiceu,
		CoordinatorName:  "Prof. Ionescu",
		CoordinatorEmail: "ionescu@scoala.ro",
		CaptainName:      "Ana Popescu",
		CaptainEmail:     "ana@example.com",
		PrivacyAccepted:  true,
	}
}

func newTeamService(teams *MockTeamRepository, members *MockMemberRepository, flags *MockFlagRepository) *TeamService {
	return NewTeamService(new(MockTransactor)).
		WithTeamRepo(teams).
		WithMemberRepo(members).
		WithFlagRepo(flags)
}

func TestTeamService_Register(t *testing.T) {
	registrationOpen := func(fr *MockFlagRepository) {
		fr.On("Get", mock.Anything, model.FlagRegistration).
			Return(&model.Flag{Name: model.FlagRegistration, Value: "TRUE"}, nil)
	}

	t.Run("success", func(t *testing.T) {
		teams := new(MockTeamRepository)
		members := new(MockMemberRepository)
		flags := new(MockFlagRepository)

		registrationOpen(flags)
		members.On("GetByUser", mock.Anything, "sub-123").Return(nil, repository.ErrNotFound)
		teams.On("Create", mock.Anything, mock.MatchedBy(func(team *model.Team) bool {
			return team.Name == "CodeWarriors" &&
				team.OwnerSub == "sub-123" &&
				team.ID != "" &&
				joinCodePattern.MatchString(team.TeamCode)
		})).Return(nil)
		members.On("Add", mock.Anything, mock.MatchedBy(func(m *model.TeamMember) bool {
			return m.UserSub == "sub-123" && m.Role == model.RoleOwner
		})).Return(nil)

		got, serr := newTeamService(teams, members, flags).Register(context.Background(), testIdentity(), validProfile())

		require.Nil(t, serr)
		require.NotNil(t, got)
		assert.Regexp(t, joinCodePattern, got.TeamCode)
		assert.Equal(t, "sub-123", got.OwnerSub)

		teams.AssertExpectations(t)
		members.AssertExpectations(t)
	})

	t.Run("retries join code on collision", func(t *testing.T) {
		teams := new(MockTeamRepository)
		members := new(MockMemberRepository)
		flags := new(MockFlagRepository)

		registrationOpen(flags)
		members.On("GetByUser", mock.Anything, "sub-123").Return(nil, repository.ErrNotFound)
		teams.On("Create", mock.Anything, mock.Anything).Return(repository.ErrAlreadyExists).Once()
		teams.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		members.On("Add", mock.Anything, mock.Anything).Return(nil)

		got, serr := newTeamService(teams, members, flags).Register(context.Background(), testIdentity(), validProfile())

		require.Nil(t, serr)
		require.NotNil(t, got)
		teams.AssertNumberOfCalls(t, "Create", 2)
	})

	t.Run("gives up after repeated collisions", func(t *testing.T) {
		teams := new(MockTeamRepository)
		members := new(MockMemberRepository)
		flags := new(MockFlagRepository)

		registrationOpen(flags)
		members.On("GetByUser", mock.Anything, "sub-123").Return(nil, repository.ErrNotFound)
		teams.On("Create", mock.Anything, mock.Anything).Return(repository.ErrAlreadyExists)

		got, serr := newTeamService(teams, members, flags).Register(context.Background(), testIdentity(), validProfile())

		require.NotNil(t, serr)
		assert.Equal(t, ErrorCodeUnspecified, serr.Code)
		assert.Nil(t, got)
		teams.AssertNumberOfCalls(t, "Create", joinCodeAttempts)
	})

	t.Run("registration closed", func(t *testing.T) {
		teams := new(MockTeamRepository)
		members := new(MockMemberRepository)
		flags := new(MockFlagRepository)

		flags.On("Get", mock.Anything, model.FlagRegistration).
			Return(&model.Flag{Name: model.FlagRegistration, Value: "FALSE"}, nil)

		got, serr := newTeamService(teams, members, flags).Register(context.Background(), testIdentity(), validProfile())

		require.NotNil(t, serr)
		assert.Equal(t, ErrorCodeRegistrationClosed, serr.Code)
		assert.Nil(t, got)
		teams.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("identity already owns a team", func(t *testing.T) {
		teams := new(MockTeamRepository)
		members := new(MockMemberRepository)
		flags := new(MockFlagRepository)

		registrationOpen(flags)
		members.On("GetByUser", mock.Anything, "sub-123").
			Return(&model.TeamMember{TeamID: "team-1", UserSub: "sub-123", Role: model.RoleOwner}, nil)

		got, serr := newTeamService(teams, members, flags).Register(context.Background(), testIdentity(), validProfile())

		require.NotNil(t, serr)
		assert.Equal(t, ErrorCodeAlreadyExists, serr.Code)
		assert.Nil(t, got)
		teams.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	validationCases := []struct {
		name   string
		mutate func(*model.TeamProfile)
	}{
		{"missing team name", func(p *model.TeamProfile) { p.Name = "" }},
		{"missing school", func(p *model.TeamProfile) { p.School = "" }},
		{"missing section", func(p *model.TeamProfile) { p.Section = "" }},
		{"invalid section", func(p *model.TeamProfile) { p.Section = "universitate" }},
		{"missing coordinator name", func(p *model.TeamProfile) { p.CoordinatorName = "" }},
		{"missing coordinator email", func(p *model.TeamProfile) { p.CoordinatorEmail = "" }},
		{"missing captain name", func(p *model.TeamProfile) { p.CaptainName = "" }},
		{"missing captain email", func(p *model.TeamProfile) { p.CaptainEmail = "" }},
		{"privacy policy not accepted", func(p *model.TeamProfile) { p.PrivacyAccepted = false }},
	}

	for _, tt := range validationCases {
		t.Run(tt.name, func(t *testing.T) {
			teams := new(MockTeamRepository)
			members := new(MockMemberRepository)
			flags := new(MockFlagRepository)

			profile := validProfile()
			tt.mutate(profile)

			got, serr := newTeamService(teams, members, flags).Register(context.Background(), testIdentity(), profile)

			require.NotNil(t, serr)
			assert.Equal(t, ErrorCodeValidation, serr.Code)
			assert.Nil(t, got)

			// A validation failure must never reach the store.
			flags.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
			teams.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestTeamService_Get(t *testing.T) {
	team := &model.Team{ID: "team-1", Name: "CodeWarriors"}

	tests := []struct {
		name          string
		setupMocks    func(*MockTeamRepository, *MockMemberRepository)
		expectedError bool
		errorCode     ErrorCode
		expectedRole  model.MemberRole
	}{
		{
			name: "success as owner",
			setupMocks: func(tr *MockTeamRepository, mr *MockMemberRepository) {
				mr.On("GetByUser", mock.Anything, "sub-123").
					Return(&model.TeamMember{TeamID: "team-1", UserSub: "sub-123", Role: model.RoleOwner}, nil)
				tr.On("Get", mock.Anything, "team-1").Return(team, nil)
			},
			expectedRole: model.RoleOwner,
		},
		{
			name: "success as member",
			setupMocks: func(tr *MockTeamRepository, mr *MockMemberRepository) {
				mr.On("GetByUser", mock.Anything, "sub-123").
					Return(&model.TeamMember{TeamID: "team-1", UserSub: "sub-123", Role: model.RoleMember}, nil)
				tr.On("Get", mock.Anything, "team-1").Return(team, nil)
			},
			expectedRole: model.RoleMember,
		},
		{
			name: "no team",
			setupMocks: func(tr *MockTeamRepository, mr *MockMemberRepository) {
				mr.On("GetByUser", mock.Anything, "sub-123").Return(nil, repository.ErrNotFound)
			},
			expectedError: true,
			errorCode:     ErrorCodeNotFound,
		},
		{
			name: "membership lookup failure",
			setupMocks: func(tr *MockTeamRepository, mr *MockMemberRepository) {
				mr.On("GetByUser", mock.Anything, "sub-123").Return(nil, errors.New("db error"))
			},
			expectedError: true,
			errorCode:     ErrorCodeUnspecified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			teams := new(MockTeamRepository)
			members := new(MockMemberRepository)
			flags := new(MockFlagRepository)

			tt.setupMocks(teams, members)

			got, serr := newTeamService(teams, members, flags).Get(context.Background(), "sub-123")

			if tt.expectedError {
				require.NotNil(t, serr)
				assert.Equal(t, tt.errorCode, serr.Code)
				assert.Nil(t, got)
			} else {
				require.Nil(t, serr)
				assert.Equal(t, team, got.Team)
				assert.Equal(t, tt.expectedRole, got.Role)
			}
		})
	}
}

func TestTeamService_Update(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		teams := new(MockTeamRepository)
		members := new(MockMemberRepository)
		flags := new(MockFlagRepository)

		existing := &model.Team{ID: "team-1", Name: "OldName", OwnerSub: "sub-123"}
		updated := &model.Team{ID: "team-1", Name: "CodeWarriors", OwnerSub: "sub-123"}

		teams.On("GetByOwner", mock.Anything, "sub-123").Return(existing, nil)
		teams.On("Update", mock.Anything, mock.MatchedBy(func(team *model.Team) bool {
			return team.ID == "team-1" && team.Name == "CodeWarriors"
		})).Return(updated, nil)

		got, serr := newTeamService(teams, members, flags).Update(context.Background(), "sub-123", validProfile())

		require.Nil(t, serr)
		assert.Equal(t, updated, got)
		teams.AssertExpectations(t)
	})

	t.Run("not the owner", func(t *testing.T) {
		teams := new(MockTeamRepository)
		members := new(MockMemberRepository)
		flags := new(MockFlagRepository)

		teams.On("GetByOwner", mock.Anything, "sub-123").Return(nil, repository.ErrNotFound)

		got, serr := newTeamService(teams, members, flags).Update(context.Background(), "sub-123", validProfile())

		require.NotNil(t, serr)
		assert.Equal(t, ErrorCodeForbidden, serr.Code)
		assert.Nil(t, got)
		teams.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestTeamService_Join(t *testing.T) {
	team := &model.Team{ID: "team-1", Name: "CodeWarriors", TeamCode: "A1B2C3"}

	t.Run("success", func(t *testing.T) {
		teams := new(MockTeamRepository)
		members := new(MockMemberRepository)
		flags := new(MockFlagRepository)

		teams.On("GetByCode", mock.Anything, "A1B2C3").Return(team, nil)
		members.On("GetByUser", mock.Anything, "sub-123").Return(nil, repository.ErrNotFound)
		members.On("Add", mock.Anything, mock.MatchedBy(func(m *model.TeamMember) bool {
			return m.TeamID == "team-1" && m.UserSub == "sub-123" && m.Role == model.RoleMember
		})).Return(nil)

		got, serr := newTeamService(teams, members, flags).Join(context.Background(), testIdentity(), "a1b2c3")

		require.Nil(t, serr)
		assert.Equal(t, team, got.Team)
		assert.Equal(t, model.RoleMember, got.Role)
		members.AssertExpectations(t)
	})

	t.Run("invalid code", func(t *testing.T) {
		teams := new(MockTeamRepository)
		members := new(MockMemberRepository)
		flags := new(MockFlagRepository)

		teams.On("GetByCode", mock.Anything, "WRONG1").Return(nil, repository.ErrNotFound)

		got, serr := newTeamService(teams, members, flags).Join(context.Background(), testIdentity(), "WRONG1")

		require.NotNil(t, serr)
		assert.Equal(t, ErrorCodeNotFound, serr.Code)
		assert.Nil(t, got)
	})

	t.Run("empty code", func(t *testing.T) {
		teams := new(MockTeamRepository)
		members := new(MockMemberRepository)
		flags := new(MockFlagRepository)

		got, serr := newTeamService(teams, members, flags).Join(context.Background(), testIdentity(), "  ")

		require.NotNil(t, serr)
		assert.Equal(t, ErrorCodeValidation, serr.Code)
		assert.Nil(t, got)
		teams.AssertNotCalled(t, "GetByCode", mock.Anything, mock.Anything)
	})

	t.Run("already in a team", func(t *testing.T) {
		teams := new(MockTeamRepository)
		members := new(MockMemberRepository)
		flags := new(MockFlagRepository)

		teams.On("GetByCode", mock.Anything, "A1B2C3").Return(team, nil)
		members.On("GetByUser", mock.Anything, "sub-123").
			Return(&model.TeamMember{TeamID: "team-2", UserSub: "sub-123", Role: model.RoleMember}, nil)

		got, serr := newTeamService(teams, members, flags).Join(context.Background(), testIdentity(), "A1B2C3")

		require.NotNil(t, serr)
		assert.Equal(t, ErrorCodeAlreadyExists, serr.Code)
		assert.Nil(t, got)
		members.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	})
}

func TestTeamService_LeaveAndDelete(t *testing.T) {
	t.Run("member leaves", func(t *testing.T) {
		teams := new(MockTeamRepository)
		members := new(MockMemberRepository)
		flags := new(MockFlagRepository)

		members.On("GetByUser", mock.Anything, "sub-123").
			Return(&model.TeamMember{TeamID: "team-1", UserSub: "sub-123", Role: model.RoleMember}, nil)
		members.On("Remove", mock.Anything, "team-1", "sub-123").Return(nil)

		serr := newTeamService(teams, members, flags).Leave(context.Background(), "sub-123")

		require.Nil(t, serr)
		members.AssertExpectations(t)
	})

	t.Run("owner cannot leave", func(t *testing.T) {
		teams := new(MockTeamRepository)
		members := new(MockMemberRepository)
		flags := new(MockFlagRepository)

		members.On("GetByUser", mock.Anything, "sub-123").
			Return(&model.TeamMember{TeamID: "team-1", UserSub: "sub-123", Role: model.RoleOwner}, nil)

		serr := newTeamService(teams, members, flags).Leave(context.Background(), "sub-123")

		require.NotNil(t, serr)
		assert.Equal(t, ErrorCodeForbidden, serr.Code)
		members.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("owner deletes", func(t *testing.T) {
		teams := new(MockTeamRepository)
		members := new(MockMemberRepository)
		flags := new(MockFlagRepository)

		members.On("GetByUser", mock.Anything, "sub-123").
			Return(&model.TeamMember{TeamID: "team-1", UserSub: "sub-123", Role: model.RoleOwner}, nil)
		teams.On("Delete", mock.Anything, "team-1").Return(nil)

		serr := newTeamService(teams, members, flags).Delete(context.Background(), "sub-123")

		require.Nil(t, serr)
		teams.AssertExpectations(t)
	})

	t.Run("member cannot delete", func(t *testing.T) {
		teams := new(MockTeamRepository)
		members := new(MockMemberRepository)
		flags := new(MockFlagRepository)

		members.On("GetByUser", mock.Anything, "sub-123").
			Return(&model.TeamMember{TeamID: "team-1", UserSub: "sub-123", Role: model.RoleMember}, nil)

		serr := newTeamService(teams, members, flags).Delete(context.Background(), "sub-123")

		require.NotNil(t, serr)
		assert.Equal(t, ErrorCodeForbidden, serr.Code)
		teams.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestTeamService_SubmitSolution(t *testing.T) {
	t.Run("success while contest started", func(t *testing.T) {
		teams := new(MockTeamRepository)
		members := new(MockMemberRepository)
		flags := new(MockFlagRepository)

		updated := &model.Team{ID: "team-1", SolutionURL: "https://github.com/ana/solutie"}

		flags.On("Get", mock.Anything, model.FlagStart).
			Return(&model.Flag{Name: model.FlagStart, Value: "TRUE"}, nil)
		members.On("GetByUser", mock.Anything, "sub-123").
			Return(&model.TeamMember{TeamID: "team-1", UserSub: "sub-123", Role: model.RoleMember}, nil)
		teams.On("SetSolutionURL", mock.Anything, "team-1", "https://github.com/ana/solutie").Return(updated, nil)

		got, serr := newTeamService(teams, members, flags).
			SubmitSolution(context.Background(), "sub-123", "https://github.com/ana/solutie")

		require.Nil(t, serr)
		assert.Equal(t, "https://github.com/ana/solutie", got.SolutionURL)
		teams.AssertExpectations(t)
	})

	t.Run("rejected before contest start", func(t *testing.T) {
		teams := new(MockTeamRepository)
		members := new(MockMemberRepository)
		flags := new(MockFlagRepository)

		flags.On("Get", mock.Anything, model.FlagStart).
			Return(&model.Flag{Name: model.FlagStart, Value: "FALSE"}, nil)

		got, serr := newTeamService(teams, members, flags).
			SubmitSolution(context.Background(), "sub-123", "https://github.com/ana/solutie")

		require.NotNil(t, serr)
		assert.Equal(t, ErrorCodeContestNotStarted, serr.Code)
		assert.Nil(t, got)
		teams.AssertNotCalled(t, "SetSolutionURL", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty link", func(t *testing.T) {
		teams := new(MockTeamRepository)
		members := new(MockMemberRepository)
		flags := new(MockFlagRepository)

		got, serr := newTeamService(teams, members, flags).SubmitSolution(context.Background(), "sub-123", "   ")

		require.NotNil(t, serr)
		assert.Equal(t, ErrorCodeValidation, serr.Code)
		assert.Nil(t, got)
		flags.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}
