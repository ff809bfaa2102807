// hasher — односторонние хэши паролей на bcrypt.
package hasher

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrUnavailable — сбой подсистемы учётных данных (битый хэш, неверная
// стоимость). Не путать с несовпадением пароля.
var ErrUnavailable = errors.New("credential system unavailable")

// Bcrypt хэширует и сверяет пароли. Безопасен для конкурентного использования.
type Bcrypt struct {
	cost  int
	dummy []byte
}

// New создаёт хэшер с указанной стоимостью; cost вне диапазона bcrypt
// заменяется на bcrypt.DefaultCost.
func New(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	// Хэш для выравнивания времени ответа, когда аккаунт не найден.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("tourism-gateway-dummy-password"), cost)

	return &Bcrypt{cost: cost, dummy: dummy}
}

// Hash возвращает bcrypt-хэш со случайной солью.
func (b *Bcrypt) Hash(plaintext string) (string, error) {
	const op = "hasher.Hash"

	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}

	return string(h), nil
}

// Compare сверяет пароль с хэшем за постоянное время.
// Несовпадение -> (false, nil); любая иная ошибка -> ErrUnavailable.
func (b *Bcrypt) Compare(plaintext, hash string) (bool, error) {
	const op = "hasher.Compare"

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
}

// Dummy выполняет сравнение с заранее посчитанным хэшем и отбрасывает
// результат, чтобы ответ на неизвестный email занимал столько же времени.
func (b *Bcrypt) Dummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(b.dummy, []byte(plaintext))
}
