package models

import "time"

// TokenPair — пара токенов, выдаваемая при входе/обновлении.
//
// Описание:
//   - AccessToken — короткоживущий JWT {sub, email, role};
//   - RefreshToken — долгоживущий JWT только с {sub}; может быть пустым,
//     если конфигурация выдаёт при входе только access-токен;
//   - AccessExpiresAt/RefreshExpiresAt — моменты истечения (UTC).
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
