package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/go-tourism-gateway/internal/http/errors"
	"github.com/pribylovaa/go-tourism-gateway/internal/pkg/log"
)

// Методы аутентификации для метрик.
const (
	methodSignIn  = "sign_in"
	methodRefresh = "refresh"
	methodGoogle  = "google"
	methodSignUp  = "sign_up"
)

// SignIn — POST /auth/sign-in.
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var in signInRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	log.From(r.Context()).Debug("sign_in_request", slog.Any("req", in))

	pair, err := h.svc.SignIn(r.Context(), in.Email, in.Password)
	h.attempts.AuthAttempt(methodSignIn, err)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenFromModel(pair))
}

// RefreshTokens — POST /auth/refresh-tokens.
func (h *Handlers) RefreshTokens(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	pair, err := h.svc.Refresh(r.Context(), in.RefreshToken)
	h.attempts.AuthAttempt(methodRefresh, err)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenFromModel(pair))
}

// GoogleAuthentication — POST /auth/google-authentication.
func (h *Handlers) GoogleAuthentication(w http.ResponseWriter, r *http.Request) {
	var in googleRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	pair, err := h.svc.AuthenticateFederated(r.Context(), in.Token)
	h.attempts.AuthAttempt(methodGoogle, err)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenFromModel(pair))
}
