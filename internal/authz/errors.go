package authz

import "errors"

var (
	// ErrUnauthenticated — токен не предъявлен или заголовок некорректен.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden — роли недостаточно или запрашивающий не владелец.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound — ресурс для проверки владения не найден.
	ErrNotFound = errors.New("resource not found")
	// ErrMalformedID — идентификатор ресурса не является UUID.
	ErrMalformedID = errors.New("malformed resource id")
	// ErrStoreUnavailable — владельца не удалось загрузить.
	ErrStoreUnavailable = errors.New("ownership store unavailable")
)
