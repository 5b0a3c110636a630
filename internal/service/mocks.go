package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hailaprogramare/contest-backend/internal/model"
)

type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type MockTeamRepository struct {
	mock.Mock
}

func (m *MockTeamRepository) Create(ctx context.Context, team *model.Team) error {
	args := m.Called(ctx, team)
	return args.Error(0)
}

func (m *MockTeamRepository) Get(ctx context.Context, id string) (*model.Team, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Team), args.Error(1)
}

func (m *MockTeamRepository) GetByCode(ctx context.Context, code string) (*model.Team, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Team), args.Error(1)
}

func (m *MockTeamRepository) GetByOwner(ctx context.Context, ownerSub string) (*model.Team, error) {
	args := m.Called(ctx, ownerSub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Team), args.Error(1)
}

func (m *MockTeamRepository) List(ctx context.Context) ([]*model.Team, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Team), args.Error(1)
}

func (m *MockTeamRepository) Update(ctx context.Context, team *model.Team) (*model.Team, error) {
	args := m.Called(ctx, team)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Team), args.Error(1)
}

func (m *MockTeamRepository) SetSolutionURL(ctx context.Context, id, url string) (*model.Team, error) {
	args := m.Called(ctx, id, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Team), args.Error(1)
}

func (m *MockTeamRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) Add(ctx context.Context, member *model.TeamMember) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) GetByUser(ctx context.Context, userSub string) (*model.TeamMember, error) {
	args := m.Called(ctx, userSub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TeamMember), args.Error(1)
}

func (m *MockMemberRepository) ListByTeam(ctx context.Context, teamID string) ([]*model.TeamMember, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TeamMember), args.Error(1)
}

func (m *MockMemberRepository) Remove(ctx context.Context, teamID, userSub string) error {
	args := m.Called(ctx, teamID, userSub)
	return args.Error(0)
}

type MockFlagRepository struct {
	mock.Mock
}

func (m *MockFlagRepository) Get(ctx context.Context, name string) (*model.Flag, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Flag), args.Error(1)
}

func (m *MockFlagRepository) GetMany(ctx context.Context, names []string) ([]*model.Flag, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Flag), args.Error(1)
}

func (m *MockFlagRepository) Set(ctx context.Context, name, value string) (*model.Flag, error) {
	args := m.Called(ctx, name, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Flag), args.Error(1)
}

func (m *MockFlagRepository) Upsert(ctx context.Context, name, value string) error {
	args := m.Called(ctx, name, value)
	return args.Error(0)
}
