package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bma-crm/commhub/internal/config"
	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/repository"
	"github.com/bma-crm/commhub/internal/repository/mocks"
	"github.com/bma-crm/commhub/internal/service"
)

func newAuthService(mockRepo *mocks.MockRepository) service.AuthService {
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret",
			Issuer:          "commhub-test",
			AccessTTLMin:    30,
			RefreshTTLHours: 168,
		},
	}
	return service.NewAuthService(cfg, mockRepo, zap.NewNop())
}

func testUser(t *testing.T, password string) *models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:             "user-1",
		Email:          "agent@example.com",
		Username:       "agent",
		HashedPassword: string(hashed),
		Role:           models.UserRoleAgent,
		IsActive:       true,
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockUserRepo := mocks.NewMockUserRepository(ctrl)
	mockRepo.EXPECT().User().Return(mockUserRepo).AnyTimes()

	user := testUser(t, "s3cret")
	mockUserRepo.EXPECT().GetByLogin("agent").Return(user, nil)
	mockUserRepo.EXPECT().UpdateLastLogin("user-1", gomock.Any()).Return(nil)

	svc := newAuthService(mockRepo)
	pair, got, err := svc.Login("agent", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.ID)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockUserRepo := mocks.NewMockUserRepository(ctrl)
	mockRepo.EXPECT().User().Return(mockUserRepo).AnyTimes()

	mockUserRepo.EXPECT().GetByLogin("agent").Return(testUser(t, "s3cret"), nil)

	svc := newAuthService(mockRepo)
	_, _, err := svc.Login("agent", "wrong")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockUserRepo := mocks.NewMockUserRepository(ctrl)
	mockRepo.EXPECT().User().Return(mockUserRepo).AnyTimes()

	mockUserRepo.EXPECT().GetByLogin("ghost").Return(nil, repository.ErrNotFound)

	svc := newAuthService(mockRepo)
	_, _, err := svc.Login("ghost", "s3cret")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestAuthService_Login_InactiveUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockUserRepo := mocks.NewMockUserRepository(ctrl)
	mockRepo.EXPECT().User().Return(mockUserRepo).AnyTimes()

	user := testUser(t, "s3cret")
	user.IsActive = false
	mockUserRepo.EXPECT().GetByLogin("agent").Return(user, nil)

	svc := newAuthService(mockRepo)
	_, _, err := svc.Login("agent", "s3cret")
	assert.ErrorIs(t, err, service.ErrInactiveUser)
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockUserRepo := mocks.NewMockUserRepository(ctrl)
	mockRepo.EXPECT().User().Return(mockUserRepo).AnyTimes()

	mockUserRepo.EXPECT().GetByLogin("agent").Return(testUser(t, "s3cret"), nil)

	svc := newAuthService(mockRepo)
	_, err := svc.Register(service.RegisterInput{
		Email:    "new@example.com",
		Username: "agent",
		Password: "s3cret",
	})
	assert.ErrorIs(t, err, service.ErrDuplicateUser)
}

func TestAuthService_Register_DefaultsToAgent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockUserRepo := mocks.NewMockUserRepository(ctrl)
	mockRepo.EXPECT().User().Return(mockUserRepo).AnyTimes()

	mockUserRepo.EXPECT().GetByLogin("newagent").Return(nil, repository.ErrNotFound)
	mockUserRepo.EXPECT().GetByLogin("new@example.com").Return(nil, repository.ErrNotFound)
	mockUserRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(u *models.User) error {
		assert.Equal(t, models.UserRoleAgent, u.Role)
		assert.True(t, u.IsActive)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte("s3cret")))
		u.ID = "user-2"
		return nil
	})

	svc := newAuthService(mockRepo)
	user, err := svc.Register(service.RegisterInput{
		Email:    "new@example.com",
		Username: "newagent",
		Password: "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-2", user.ID)
}

func TestAuthService_RefreshAndAuthenticate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockUserRepo := mocks.NewMockUserRepository(ctrl)
	mockRepo.EXPECT().User().Return(mockUserRepo).AnyTimes()

	user := testUser(t, "s3cret")
	mockUserRepo.EXPECT().GetByLogin("agent").Return(user, nil)
	mockUserRepo.EXPECT().UpdateLastLogin("user-1", gomock.Any()).Return(nil)
	mockUserRepo.EXPECT().GetByID("user-1").Return(user, nil).Times(2)

	svc := newAuthService(mockRepo)
	pair, _, err := svc.Login("agent", "s3cret")
	require.NoError(t, err)

	// The access token authenticates; the refresh token mints a new pair.
	got, err := svc.Authenticate(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.ID)

	fresh, err := svc.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.AccessToken)
}

func TestAuthService_Authenticate_RejectsRefreshToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockUserRepo := mocks.NewMockUserRepository(ctrl)
	mockRepo.EXPECT().User().Return(mockUserRepo).AnyTimes()

	user := testUser(t, "s3cret")
	mockUserRepo.EXPECT().GetByLogin("agent").Return(user, nil)
	mockUserRepo.EXPECT().UpdateLastLogin("user-1", gomock.Any()).Return(nil)

	svc := newAuthService(mockRepo)
	pair, _, err := svc.Login("agent", "s3cret")
	require.NoError(t, err)

	_, err = svc.Authenticate(pair.RefreshToken)
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	_, err = svc.Authenticate("not-a-token")
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}
