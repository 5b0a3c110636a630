package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hailaprogramare/contest-backend/internal/model"
	"github.com/hailaprogramare/contest-backend/internal/repository"
)

func TestFlagService_Snapshot(t *testing.T) {
	tests := []struct {
		name     string
		rows     []*model.Flag
		expected *model.FlagSnapshot
	}{
		{
			name: "all flags present",
			rows: []*model.Flag{
				{Name: model.FlagRegistration, Value: "TRUE"},
				{Name: model.FlagStart, Value: "FALSE"},
				{Name: model.FlagSubjectGimnaziu, Value: "https://docs.example.com/gimnaziu"},
				{Name: model.FlagSubjectLiceu, Value: "https://docs.example.com/liceu"},
			},
			expected: &model.FlagSnapshot{
				RegistrationOpen: true,
				ContestStarted:   false,
				SubjectGimnaziu:  "https://docs.example.com/gimnaziu",
				SubjectLiceu:     "https://docs.example.com/liceu",
			},
		},
		{
			name: "lowercase and numeric truthy values",
			rows: []*model.Flag{
				{Name: model.FlagRegistration, Value: "true"},
				{Name: model.FlagStart, Value: "1"},
			},
			expected: &model.FlagSnapshot{
				RegistrationOpen: true,
				ContestStarted:   true,
			},
		},
		{
			name:     "no rows provisioned",
			rows:     []*model.Flag{},
			expected: &model.FlagSnapshot{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := new(MockFlagRepository)
			flags.On("GetMany", mock.Anything, mock.Anything).Return(tt.rows, nil)

			got, serr := NewFlagService().WithFlagRepo(flags).Snapshot(context.Background())

			require.Nil(t, serr)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFlagService_Toggle(t *testing.T) {
	t.Run("returns the store-confirmed value", func(t *testing.T) {
		flags := new(MockFlagRepository)
		flags.On("Get", mock.Anything, model.FlagRegistration).
			Return(&model.Flag{Name: model.FlagRegistration, Value: "FALSE"}, nil)
		flags.On("Set", mock.Anything, model.FlagRegistration, "TRUE").
			Return(&model.Flag{Name: model.FlagRegistration, Value: "TRUE"}, nil)

		got, serr := NewFlagService().WithFlagRepo(flags).Toggle(context.Background(), model.FlagRegistration)

		require.Nil(t, serr)
		assert.True(t, got)
		flags.AssertExpectations(t)
	})

	t.Run("toggles start off", func(t *testing.T) {
		flags := new(MockFlagRepository)
		flags.On("Get", mock.Anything, model.FlagStart).
			Return(&model.Flag{Name: model.FlagStart, Value: "TRUE"}, nil)
		flags.On("Set", mock.Anything, model.FlagStart, "FALSE").
			Return(&model.Flag{Name: model.FlagStart, Value: "FALSE"}, nil)

		got, serr := NewFlagService().WithFlagRepo(flags).Toggle(context.Background(), model.FlagStart)

		require.Nil(t, serr)
		assert.False(t, got)
	})

	t.Run("rejects non-boolean flags", func(t *testing.T) {
		flags := new(MockFlagRepository)

		_, serr := NewFlagService().WithFlagRepo(flags).Toggle(context.Background(), model.FlagAdminPassword)

		require.NotNil(t, serr)
		assert.Equal(t, ErrorCodeValidation, serr.Code)
		flags.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("flag missing", func(t *testing.T) {
		flags := new(MockFlagRepository)
		flags.On("Get", mock.Anything, model.FlagStart).Return(nil, repository.ErrNotFound)

		_, serr := NewFlagService().WithFlagRepo(flags).Toggle(context.Background(), model.FlagStart)

		require.NotNil(t, serr)
		assert.Equal(t, ErrorCodeNotFound, serr.Code)
	})
}

func TestFlagService_SetSubjectLink(t *testing.T) {
	tests := []struct {
		name          string
		section       string
		link          string
		expectedFlag  string
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:         "gimnaziu",
			section:      model.SectionGimnaziu,
			link:         "https://docs.example.com/gimnaziu",
			expectedFlag: model.FlagSubjectGimnaziu,
		},
		{
			name:         "liceu",
			section:      model.SectionLiceu,
			link:         "https://docs.example.com/liceu",
			expectedFlag: model.FlagSubjectLiceu,
		},
		{
			name:          "unknown section",
			section:       "universitate",
			link:          "https://docs.example.com/x",
			expectedError: true,
			errorCode:     ErrorCodeValidation,
		},
		{
			name:          "empty link",
			section:       model.SectionLiceu,
			link:          "",
			expectedError: true,
			errorCode:     ErrorCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := new(MockFlagRepository)
			if !tt.expectedError {
				flags.On("Upsert", mock.Anything, tt.expectedFlag, tt.link).Return(nil)
			}

			serr := NewFlagService().WithFlagRepo(flags).SetSubjectLink(context.Background(), tt.section, tt.link)

			if tt.expectedError {
				require.NotNil(t, serr)
				assert.Equal(t, tt.errorCode, serr.Code)
				flags.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
			} else {
				require.Nil(t, serr)
				flags.AssertExpectations(t)
			}
		})
	}
}
