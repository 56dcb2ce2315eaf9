package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/attendance-service/internal/config"
	"github.com/spec-kit/attendance-service/internal/domain"
	apperrors "github.com/spec-kit/attendance-service/pkg/util/errorutil"
)

func newAuthService(accounts *memAccounts, cost int) *AuthService {
	return NewAuthService(config.AuthConfig{JWTSecret: "s", AccessTokenTTLMinutes: 5, BcryptCost: cost}, accounts, zap.NewNop())
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	accounts := newMemAccounts()
	svc := newAuthService(accounts, bcrypt.MinCost)
	ctx := context.Background()

	acct, err := svc.RegisterAccount(ctx, RegisterInput{
		DisplayID: "EMP-7", Name: "Reader", Email: " Reader@Example.com ", Password: "correct horse", Role: domain.RoleOfficer,
	})
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", acct.Email)

	_, err = svc.RegisterAccount(ctx, RegisterInput{
		DisplayID: "EMP-8", Name: "Dup", Email: "reader@example.com", Password: "correct horse", Role: domain.RoleOfficer,
	})
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)

	got, token, _, err := svc.Login(ctx, "reader@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOfficer, claims.Role)

	_, _, _, err = svc.Login(ctx, "reader@example.com", "wrong")
	assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)
	_, _, _, err = svc.Login(ctx, "nobody@example.com", "correct horse")
	assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc := newAuthService(newMemAccounts(), bcrypt.MinCost)
	_, err := svc.RegisterAccount(context.Background(), RegisterInput{Password: "short", Role: "JANITOR"})

	de := apperrors.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)
	for _, field := range []string{"displayId", "name", "email", "password", "role"} {
		assert.Contains(t, de.Details, field)
	}
}

func TestAuthService_LoginRehashesOnCostChange(t *testing.T) {
	accounts := newMemAccounts()
	ctx := context.Background()
	_, err := newAuthService(accounts, bcrypt.MinCost).RegisterAccount(ctx, RegisterInput{
		DisplayID: "2025-00001", Name: "Holder", Email: "h@example.com", Password: "long enough", Role: domain.RoleStudent,
	})
	require.NoError(t, err)

	_, _, _, err = newAuthService(accounts, bcrypt.MinCost+1).Login(ctx, "h@example.com", "long enough")
	require.NoError(t, err)
	assert.Equal(t, 1, accounts.updates)
}

func TestAuthService_Account(t *testing.T) {
	accounts := newMemAccounts()
	svc := newAuthService(accounts, bcrypt.MinCost)

	_, err := svc.Account(context.Background(), "missing")
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}
