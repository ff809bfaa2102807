// errors стандартизирует ответы об ошибках HTTP-слоя шлюза.
// На вход он принимает ошибку сервисного слоя или конвейера авторизации,
// а на выход даёт:
//   - корректный HTTP-статус;
//   - стабильный машиночитаемый code;
//   - краткое безопасное message без утечки деталей.
//
// Ответ никогда не различает "неизвестный email" и "неверный пароль".
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-tourism-gateway/internal/authz"
	"github.com/pribylovaa/go-tourism-gateway/internal/service"
	"github.com/pribylovaa/go-tourism-gateway/internal/token"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrBadRequest — тело запроса не разобрано (битый JSON, лишние поля).
	ErrBadRequest = stderrors.New("malformed request body")
	// ErrRateLimited — клиент превысил лимит запросов.
	ErrRateLimited = stderrors.New("rate limited")
	// ErrInternal — непредвиденная ошибка (паника и т.п.).
	ErrInternal = stderrors.New("internal")
)

// APIError — единый формат для клиентов.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

type mapping struct {
	targets []error
	status  int
	code    string
	message string
}

// table просматривается сверху вниз; первое совпадение по errors.Is выигрывает.
var table = []mapping{
	{[]error{token.ErrTokenExpired}, http.StatusUnauthorized, "token_expired", "token expired"},
	{[]error{service.ErrInvalidCredentials}, http.StatusUnauthorized, "invalid_credentials", "invalid credentials"},
	{[]error{token.ErrInvalidToken, authz.ErrUnauthenticated}, http.StatusUnauthorized, "unauthenticated", "unauthenticated"},
	{[]error{authz.ErrForbidden}, http.StatusForbidden, "permission_denied", "permission denied"},
	{[]error{service.ErrIdentityAssertionIncomplete}, http.StatusForbidden, "identity_assertion_incomplete", "identity assertion incomplete"},
	{[]error{service.ErrNotFound, authz.ErrNotFound, service.ErrFederationDisabled}, http.StatusNotFound, "not_found", "not found"},
	{[]error{service.ErrConflictingAccount}, http.StatusConflict, "already_exists", "account already exists"},
	{[]error{service.ErrInvalidArgument, authz.ErrMalformedID, ErrBadRequest}, http.StatusBadRequest, "invalid_argument", "invalid argument"},
	{[]error{ErrRateLimited}, http.StatusTooManyRequests, "resource_exhausted", "too many requests"},
	{
		[]error{service.ErrStoreUnavailable, authz.ErrStoreUnavailable, service.ErrCredentialSystem, service.ErrFederationUnavailable},
		http.StatusServiceUnavailable, "unavailable", "service unavailable",
	},
	{[]error{context.DeadlineExceeded}, http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"},
	{[]error{context.Canceled}, StatusClientClosedRequest, "canceled", "canceled"},
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - это программная ошибка вызова: возвращаем 500/internal,
//     чтобы не послать "200 OK" с телом ошибки и не маскировать баг;
//   - неизвестная ошибка - 500/internal (без утечки деталей);
//   - ошибки валидации несут причину в message ("email is invalid").
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return internal()
	}

	for _, m := range table {
		for _, target := range m.targets {
			if !stderrors.Is(err, target) {
				continue
			}

			msg := m.message
			if target == service.ErrInvalidArgument {
				msg = validationReason(err, msg)
			}

			return m.status, ErrorResponse{Error: APIError{Code: m.code, Message: msg}}
		}
	}

	return internal()
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="api-tourisme"`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func internal() (int, ErrorResponse) {
	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{
			Code:    "internal",
			Message: "internal error",
		},
	}
}

// validationReason достаёт причину, приписанную сервисом после
// "invalid argument: ". Сообщения валидации не содержат пользовательских данных.
func validationReason(err error, fallback string) string {
	prefix := service.ErrInvalidArgument.Error() + ": "

	msg := err.Error()
	if i := strings.LastIndex(msg, prefix); i >= 0 && len(msg) > i+len(prefix) {
		return msg[i+len(prefix):]
	}

	return fallback
}
