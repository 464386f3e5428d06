package internal

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// ShortLink maps a short code to its destination.
type ShortLink struct {
	ID        string
	Code      string
	URL       string
	OwnerID   string
	Clicks    int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (l *ShortLink) IsOwned() bool {
	return l.OwnerID != ""
}

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Avatar       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const fallbackAvatar = "https://www.gravatar.com/avatar/00000000000000000000000000000000?d=mp"

// AvatarURL returns the gravatar identicon for an email address.
func AvatarURL(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fallbackAvatar
	}
	sum := md5.Sum([]byte(email))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?d=identicon"
}

// NormalizeEmail is applied before an email is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
