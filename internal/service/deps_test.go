package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
	"github.com/pribylovaa/go-tourism-gateway/internal/storage"
	"github.com/pribylovaa/go-tourism-gateway/mocks"
	"github.com/stretchr/testify/require"
)

// Проверки взаимодействия с хэшером и выпуском токенов на моках.

type depsFixture struct {
	svc      *Service
	accounts *mocks.MockAccountStorage
	hasher   *mocks.MockHasher
	tokens   *mocks.MockTokens
}

func newDepsFixture(t *testing.T) *depsFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &depsFixture{
		accounts: mocks.NewMockAccountStorage(ctrl),
		hasher:   mocks.NewMockHasher(ctrl),
		tokens:   mocks.NewMockTokens(ctrl),
	}
	f.svc = New(f.accounts, mocks.NewMockListingStorage(ctrl), f.hasher, f.tokens, Config{})

	return f
}

func TestSignIn_UnknownEmailSpendsHashTime(t *testing.T) {
	f := newDepsFixture(t)
	ctx := context.Background()

	f.accounts.EXPECT().AccountByEmail(gomock.Any(), "ghost@example.com").Return(nil, storage.ErrNotFound)
	f.hasher.EXPECT().Dummy("Secr3tpass").Times(1)

	_, err := f.svc.SignIn(ctx, "Ghost@Example.com", "Secr3tpass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignIn_IssueFailurePropagates(t *testing.T) {
	f := newDepsFixture(t)
	ctx := context.Background()

	hash := "stored-hash"
	acc := &models.Account{ID: uuid.New(), Email: "jean@example.com", PasswordHash: &hash, Role: models.RoleStandard}
	issueErr := errors.New("signing failed")

	f.accounts.EXPECT().AccountByEmail(gomock.Any(), acc.Email).Return(acc, nil)
	f.hasher.EXPECT().Compare("Secr3tpass", hash).Return(true, nil)
	f.tokens.EXPECT().Issue(acc.ID, models.RoleStandard, acc.Email).Return(models.TokenPair{}, issueErr)

	_, err := f.svc.SignIn(ctx, acc.Email, "Secr3tpass")
	require.ErrorIs(t, err, issueErr)
	require.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_InvalidTokenSkipsStore(t *testing.T) {
	f := newDepsFixture(t)

	f.tokens.EXPECT().VerifyRefresh("bad").Return(uuid.Nil, errors.New("invalid token"))

	_, err := f.svc.Refresh(context.Background(), "bad")
	require.Error(t, err)
}

func TestSignUp_HashFailureIsCredentialSystem(t *testing.T) {
	f := newDepsFixture(t)

	f.hasher.EXPECT().Hash("Secr3t!pass").Return("", errors.New("bcrypt broke"))

	_, err := f.svc.SignUp(context.Background(), "Jean Dupont", "jean@example.com", "Secr3t!pass")
	require.ErrorIs(t, err, ErrCredentialSystem)
}
