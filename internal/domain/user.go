package domain

import "time"

// Proveedores de identidad soportados.
const (
	ProviderLocal     = "local"
	ProviderGoogle    = "google"
	ProviderTikTok    = "tiktok"
	ProviderInstagram = "instagram"
)

// KnownProvider indica si el tag pertenece a la enumeracion fija de proveedores.
func KnownProvider(p string) bool {
	switch p {
	case ProviderLocal, ProviderGoogle, ProviderTikTok, ProviderInstagram:
		return true
	}
	return false
}

// User es la unica entidad persistida. El ID es inmutable y lleva el
// proveedor como prefijo ("google_<providerId>", "local_<uuid>", ...).
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email,omitempty"`
	DisplayName  string     `json:"name"`
	Provider     string     `json:"provider"`
	PasswordHash string     `json:"-"`
	Picture      string     `json:"picture,omitempty"`
	Level        int        `json:"level"`
	Points       int        `json:"points"`
	Favorites    []string   `json:"favorites"`
	IsPremium    bool       `json:"is_premium"`
	DailyLimit   int        `json:"daily_limit"`
	WeeklyLimit  int        `json:"weekly_limit"`
	UsedDaily    int        `json:"used_daily"`
	UsedWeekly   int        `json:"used_weekly"`
	LastReset    *time.Time `json:"last_reset,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
