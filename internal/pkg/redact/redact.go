// redact маскирует чувствительные значения перед записью в лог.
package redact

import "strings"

// Email оставляет первые две руны локальной части и домен целиком.
// Адреса с локальной частью короче трёх рун маскируются полностью.
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***"
	}

	r := []rune(local)
	if len(r) > 2 {
		return string(r[:2]) + "***@" + domain
	}

	return "***@" + domain
}

// Bearer возвращает только схему заголовка Authorization.
func Bearer(header string) string {
	scheme, _, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || scheme == "" {
		if header == "" {
			return ""
		}
		return Token()
	}

	return scheme + " " + Token()
}

func Token() string    { return "[REDACTED_TOKEN]" }
func Password() string { return "[REDACTED_PASSWORD]" }
