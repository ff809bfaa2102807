package handlers

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-tourism-gateway/internal/models"
	"github.com/pribylovaa/go-tourism-gateway/internal/pkg/redact"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LogValue не пускает пароль и полный email в логи.
func (r signInRequest) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("email", redact.Email(r.Email)),
		slog.String("password", redact.Password()),
	)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type googleRequest struct {
	Token string `json:"token"`
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r signUpRequest) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", r.Name),
		slog.String("email", redact.Email(r.Email)),
		slog.String("password", redact.Password()),
	)
}

type patchOwnerRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

func (r patchOwnerRequest) toModel() models.AccountPatch {
	return models.AccountPatch{Name: r.Name, Email: r.Email, Password: r.Password}
}

type setRoleRequest struct {
	Role string `json:"role"`
}

type tokenResponse struct {
	AccessToken      string     `json:"accessToken"`
	RefreshToken     string     `json:"refreshToken,omitempty"`
	AccessExpiresAt  time.Time  `json:"accessExpiresAt"`
	RefreshExpiresAt *time.Time `json:"refreshExpiresAt,omitempty"`
}

func tokenFromModel(p models.TokenPair) tokenResponse {
	out := tokenResponse{
		AccessToken:     p.AccessToken,
		RefreshToken:    p.RefreshToken,
		AccessExpiresAt: p.AccessExpiresAt,
	}
	if p.RefreshToken != "" {
		exp := p.RefreshExpiresAt
		out.RefreshExpiresAt = &exp
	}
	return out
}

// ownerResponse — представление аккаунта. Email отдаётся только самому
// владельцу, хэш пароля и google id не отдаются никогда.
type ownerResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	Google    bool      `json:"google"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func ownerFromModel(a *models.Account, withEmail bool) ownerResponse {
	out := ownerResponse{
		ID:        a.ID,
		Name:      a.Name,
		Role:      a.Role.String(),
		Google:    a.GoogleID != nil,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if withEmail {
		out.Email = a.Email
	}
	return out
}

type listingResponse struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	OwnerID   uuid.UUID `json:"ownerId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func listingFromModel(l *models.Listing) listingResponse {
	return listingResponse{
		ID:        l.ID,
		Kind:      string(l.Kind),
		OwnerID:   l.OwnerID,
		Name:      l.Name,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}
