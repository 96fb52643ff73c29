package models

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Balance      int64     `json:"balance"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate trims the identity fields in place and checks their shape.
// Lengths are counted in characters, the same way the VARCHAR columns count them.
func (a *Account) Validate() error {
	a.Username = strings.TrimSpace(a.Username)
	a.Email = strings.TrimSpace(a.Email)
	if !utf8.ValidString(a.Username) || !utf8.ValidString(a.Email) {
		return errors.New("invalid utf-8")
	}
	n := utf8.RuneCountInString(a.Username)
	if n < 3 {
		return errors.New("username too short")
	}
	if n > 20 {
		return errors.New("username too long")
	}
	if !strings.Contains(a.Email, "@") || utf8.RuneCountInString(a.Email) > 120 {
		return errors.New("invalid email")
	}
	return nil
}
