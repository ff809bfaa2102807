package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/go-tourism-gateway/internal/http/errors"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
)

// GetListing — GET /{kind}/{id}.
func (h *Handlers) GetListing(kind models.ListingKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		l, err := h.svc.Listing(r.Context(), kind, id)
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, listingFromModel(l))
	}
}

// DeleteListing — DELETE /{kind}/{id}. Владение проверено конвейером авторизации.
func (h *Handlers) DeleteListing(kind models.ListingKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		if err := h.svc.DeleteListing(r.Context(), kind, id); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
