package models

import (
	"net/mail"
	"strings"
)

// EmailRecipient is an address a user's reports are emailed to.
// (user_id, email) is unique.
type EmailRecipient struct {
	ID        string `json:"id" db:"id"`
	UserID    string `json:"user_id" db:"user_id"`
	Email     string `json:"email" db:"email"`
	Name      string `json:"name" db:"name"`
	IsActive  bool   `json:"is_active" db:"is_active"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
	UpdatedAt int64  `json:"updated_at" db:"updated_at"`
}

// DisplayName falls back to the address when no name is set
func (r *EmailRecipient) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Email
}

type CreateRecipientRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	IsActive *bool  `json:"is_active,omitempty"`
}

type UpdateRecipientRequest struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// NormalizeEmail lower-cases an address and checks that it parses
func NormalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(addr.Address), nil
}

// ActiveAddresses returns the addresses of the active recipients
func ActiveAddresses(recipients []EmailRecipient) []string {
	addrs := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r.IsActive {
			addrs = append(addrs, r.Email)
		}
	}
	return addrs
}
