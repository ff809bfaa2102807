package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-tourism-gateway/internal/authz"
	apierrors "github.com/pribylovaa/go-tourism-gateway/internal/http/errors"
	"github.com/pribylovaa/go-tourism-gateway/internal/service"
)

// maxBodyBytes — тела запросов шлюза малы; больше — уже ошибка клиента.
const maxBodyBytes = 64 << 10

// AttemptRecorder учитывает попытки аутентификации (метрики).
type AttemptRecorder interface {
	AuthAttempt(method string, err error)
}

type nopRecorder struct{}

func (nopRecorder) AuthAttempt(string, error) {}

// Handlers агрегирует зависимости HTTP-хендлеров.
type Handlers struct {
	svc      *service.Service
	attempts AttemptRecorder
}

// New создаёт хендлеры; attempts может быть nil.
func New(svc *service.Service, attempts AttemptRecorder) *Handlers {
	if attempts == nil {
		attempts = nopRecorder{}
	}
	return &Handlers{svc: svc, attempts: attempts}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля
// и хвост после объекта.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("%w: %v", apierrors.ErrBadRequest, err)
	}
	if dec.Decode(&struct{}{}) != io.EOF {
		return apierrors.ErrBadRequest
	}

	return nil
}

// pathID разбирает UUID из параметра пути.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, authz.ErrMalformedID
	}
	return id, nil
}
