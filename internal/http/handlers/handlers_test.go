package handlers

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	apierrors "github.com/pribylovaa/go-tourism-gateway/internal/http/errors"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
	"github.com/stretchr/testify/require"
)

func TestDecodeStrict(t *testing.T) {
	tcs := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"ok", `{"email":"a@example.com","password":"x"}`, false},
		{"unknown_field", `{"email":"a@example.com","role":"admin"}`, true},
		{"trailing", `{"email":"a@example.com"}{"email":"b@example.com"}`, true},
		{"broken", `{"email":`, true},
		{"empty", ``, true},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/sign-in", strings.NewReader(tc.body))
			var in signInRequest

			err := decodeStrict(httptest.NewRecorder(), req, &in)
			if tc.wantErr {
				require.ErrorIs(t, err, apierrors.ErrBadRequest)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "a@example.com", in.Email)
		})
	}
}

func TestDecodeStrict_BodyTooLarge(t *testing.T) {
	body := `{"email":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/sign-in", strings.NewReader(body))

	var in signInRequest
	require.ErrorIs(t, decodeStrict(httptest.NewRecorder(), req, &in), apierrors.ErrBadRequest)
}

func TestRequestLogValue_HidesSecrets(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	l.Info("req",
		slog.Any("sign_in", signInRequest{Email: "marie.curie@example.com", Password: "Secr3t!pass"}),
		slog.Any("sign_up", signUpRequest{Name: "Marie", Email: "marie.curie@example.com", Password: "Secr3t!pass"}),
	)

	out := buf.String()
	require.NotContains(t, out, "Secr3t!pass")
	require.NotContains(t, out, "marie.curie@example.com")
	require.Contains(t, out, "[REDACTED_PASSWORD]")
}

func TestTokenFromModel(t *testing.T) {
	now := time.Now().UTC()

	full := tokenFromModel(models.TokenPair{AccessToken: "a", RefreshToken: "r", AccessExpiresAt: now, RefreshExpiresAt: now.Add(time.Hour)})
	require.NotNil(t, full.RefreshExpiresAt)

	accessOnly := tokenFromModel(models.TokenPair{AccessToken: "a", AccessExpiresAt: now})
	require.Empty(t, accessOnly.RefreshToken)
	require.Nil(t, accessOnly.RefreshExpiresAt)
}

func TestOwnerFromModel_NeverLeaksCredentials(t *testing.T) {
	hash, gid := "$2a$10$hash", "google-sub"
	acc := &models.Account{ID: uuid.New(), Name: "Marie", Email: "marie@example.com", PasswordHash: &hash, GoogleID: &gid, Role: models.RoleStandard}

	pub := ownerFromModel(acc, false)
	require.Empty(t, pub.Email)
	require.True(t, pub.Google)

	self := ownerFromModel(acc, true)
	require.Equal(t, "marie@example.com", self.Email)
}

type attempts struct{ calls []string }

func (a *attempts) AuthAttempt(method string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	a.calls = append(a.calls, method+":"+outcome)
}

func TestNew_DefaultsRecorder(t *testing.T) {
	h := New(nil, nil)
	require.NotPanics(t, func() { h.attempts.AuthAttempt(methodSignIn, errors.New("x")) })

	rec := &attempts{}
	h = New(nil, rec)
	h.attempts.AuthAttempt(methodGoogle, nil)
	require.Equal(t, []string{"google:success"}, rec.calls)
}
