package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/classforge/school-api/internal/models"
	"github.com/classforge/school-api/pkg/config"
	appErrors "github.com/classforge/school-api/pkg/errors"
)

type userStoreStub struct {
	users     map[string]*models.User
	lastLogin map[string]time.Time
}

func newUserStoreStub(users ...*models.User) *userStoreStub {
	stub := &userStoreStub{users: map[string]*models.User{}, lastLogin: map[string]time.Time{}}
	for _, user := range users {
		stub.users[user.Email] = user
	}
	return stub
}

func (s *userStoreStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.users[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userStoreStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userStoreStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	s.lastLogin[id] = ts
	return nil
}

func testUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	tenantID := "tenant-1"
	return &models.User{
		ID:           "user-1",
		TenantID:     &tenantID,
		Email:        "bursar@bright-future.sch",
		PasswordHash: string(hash),
		FullName:     "Ngozi Eze",
		Role:         models.RoleAccountant,
		Active:       true,
	}
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "school-api-test"}
}

func TestAuthLoginIssuesTenantScopedToken(t *testing.T) {
	user := testUser(t, "correct horse")
	store := newUserStoreStub(user)
	audit := &auditStub{}
	svc := NewAuthService(store, audit, testJWTConfig(), nil)

	result, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    user.Email,
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.Equal(t, int64(3600), result.ExpiresIn)
	require.Equal(t, user.ID, result.User.ID)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "tenant-1", claims.TenantID)
	require.Equal(t, models.RoleAccountant, claims.Role)
	require.False(t, claims.IsSuperAdmin())

	require.Contains(t, store.lastLogin, "user-1")
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionLogin, audit.logs[0].Action)
}

func TestAuthLoginSuperAdminHasNoTenant(t *testing.T) {
	user := testUser(t, "pw")
	user.TenantID = nil
	user.Role = models.RoleSuperAdmin
	svc := NewAuthService(newUserStoreStub(user), nil, testJWTConfig(), nil)

	result, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "pw"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	require.Empty(t, claims.TenantID)
	require.True(t, claims.IsSuperAdmin())
}

func TestAuthLoginRejectsBadCredentials(t *testing.T) {
	user := testUser(t, "right")
	svc := NewAuthService(newUserStoreStub(user), nil, testJWTConfig(), nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "wrong"})
	requireCode(t, err, appErrors.ErrInvalidCredentials.Code)

	// Unknown email yields the same error as a wrong password.
	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "nobody@x", Password: "right"})
	requireCode(t, err, appErrors.ErrInvalidCredentials.Code)
}

func TestAuthLoginRejectsInactiveUser(t *testing.T) {
	user := testUser(t, "pw")
	user.Active = false
	svc := NewAuthService(newUserStoreStub(user), nil, testJWTConfig(), nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "pw"})
	requireCode(t, err, appErrors.ErrInactiveAccount.Code)
}

func TestAuthValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(newUserStoreStub(), nil, testJWTConfig(), nil)

	_, err := svc.ValidateToken("not.a.token")
	requireCode(t, err, appErrors.ErrUnauthorized.Code)
}
