package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pribylovaa/go-tourism-gateway/internal/authz"
	apierrors "github.com/pribylovaa/go-tourism-gateway/internal/http/errors"
	"github.com/pribylovaa/go-tourism-gateway/internal/pkg/log"
)

// SignUp — POST /owners: регистрация владельца по паролю.
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var in signUpRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	log.From(r.Context()).Debug("sign_up_request", slog.Any("req", in))

	acc, err := h.svc.SignUp(r.Context(), in.Name, in.Email, in.Password)
	h.attempts.AuthAttempt(methodSignUp, err)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.Header().Set("Location", "/owners/"+acc.ID.String())
	writeJSON(w, http.StatusCreated, ownerFromModel(acc, true))
}

// Me — GET /owners/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := authz.IdentityFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, authz.ErrUnauthenticated)
		return
	}

	acc, err := h.svc.Account(r.Context(), id.Subject)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ownerFromModel(acc, true))
}

// GetOwner — GET /owners/{id}, публичный профиль без email.
func (h *Handlers) GetOwner(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	acc, err := h.svc.Account(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ownerFromModel(acc, false))
}

// UpdateOwner — PATCH /owners/{id}. Владение проверено конвейером авторизации.
func (h *Handlers) UpdateOwner(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in patchOwnerRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	acc, err := h.svc.UpdateAccount(r.Context(), id, in.toModel())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ownerFromModel(acc, true))
}

// DeleteOwner — DELETE /owners/{id}, мягкое удаление.
func (h *Handlers) DeleteOwner(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.DeleteAccount(r.Context(), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetRole — PUT /owners/{id}/role, только для администраторов.
func (h *Handlers) SetRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in setRoleRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.SetRole(r.Context(), id, in.Role); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
