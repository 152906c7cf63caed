package models

import "strings"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	DefaultSMTPHost = "smtp-mail.outlook.com"
	DefaultSMTPPort = 587
)

type User struct {
	ID       string `json:"id" db:"id"`
	Email    string `json:"email" db:"email"`
	Password string `json:"-" db:"password"` // Never return password in JSON
	Name     string `json:"name" db:"name"`
	Role     string `json:"role" db:"role"` // "user" or "admin"

	// Per-user SMTP account used to email reports
	SMTPEmail         string `json:"smtp_email" db:"smtp_email"`
	SMTPPassword      string `json:"-" db:"smtp_password"`
	SMTPHost          string `json:"smtp_host" db:"smtp_host"`
	SMTPPort          int    `json:"smtp_port" db:"smtp_port"`
	SMTPUseTLS        bool   `json:"smtp_use_tls" db:"smtp_use_tls"`
	IsEmailConfigured bool   `json:"is_email_configured" db:"is_email_configured"`

	CreatedAt int64 `json:"created_at" db:"created_at"`
	UpdatedAt int64 `json:"updated_at" db:"updated_at"`
}

// RefreshEmailConfigured derives is_email_configured; it is never client-settable
func (u *User) RefreshEmailConfigured() {
	u.IsEmailConfigured = strings.TrimSpace(u.SMTPEmail) != "" && u.SMTPPassword != ""
}

// Credentials returns the SMTP credentials used to dispatch reports
func (u *User) Credentials() SMTPCredentials {
	return SMTPCredentials{
		Host:       u.SMTPHost,
		Port:       u.SMTPPort,
		UseTLS:     u.SMTPUseTLS,
		LoginEmail: u.SMTPEmail,
		Secret:     u.SMTPPassword,
	}
}

type UserResponse struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	IsEmailConfigured bool   `json:"is_email_configured"`
	CreatedAt         int64  `json:"created_at"`
}

func (u *User) ToUserResponse() UserResponse {
	return UserResponse{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Name,
		Role:              u.Role,
		IsEmailConfigured: u.IsEmailConfigured,
		CreatedAt:         u.CreatedAt,
	}
}

// SMTPCredentials are the sender settings passed to the mail sender
type SMTPCredentials struct {
	Host       string
	Port       int
	UseTLS     bool
	LoginEmail string
	Secret     string
}

// Complete is true when both the login email and the secret are present
func (c SMTPCredentials) Complete() bool {
	return strings.TrimSpace(c.LoginEmail) != "" && c.Secret != ""
}

// SMTPSettingsRequest is the request body for PUT /api/profile/smtp.
// An omitted smtp_password keeps the stored secret.
type SMTPSettingsRequest struct {
	SMTPEmail    string  `json:"smtp_email"`
	SMTPPassword *string `json:"smtp_password,omitempty"`
	SMTPHost     string  `json:"smtp_host"`
	SMTPPort     int     `json:"smtp_port"`
	SMTPUseTLS   *bool   `json:"smtp_use_tls,omitempty"`
}

// Apply validates the request and copies it onto the user
func (req *SMTPSettingsRequest) Apply(u *User) error {
	email := strings.TrimSpace(req.SMTPEmail)
	if email != "" {
		normalized, err := NormalizeEmail(email)
		if err != nil {
			return &ValidationError{Field: "smtp_email", Message: "invalid email address"}
		}
		email = normalized
	}

	host := strings.TrimSpace(req.SMTPHost)
	if host == "" {
		host = DefaultSMTPHost
	}
	port := req.SMTPPort
	if port == 0 {
		port = DefaultSMTPPort
	}
	if port < 1 || port > 65535 {
		return &ValidationError{Field: "smtp_port", Message: "must be between 1 and 65535"}
	}

	u.SMTPEmail = email
	u.SMTPHost = host
	u.SMTPPort = port
	if req.SMTPPassword != nil {
		u.SMTPPassword = *req.SMTPPassword
	}
	if req.SMTPUseTLS != nil {
		u.SMTPUseTLS = *req.SMTPUseTLS
	}
	u.RefreshEmailConfigured()
	return nil
}

// SMTPSettingsResponse never includes the secret
type SMTPSettingsResponse struct {
	SMTPEmail         string `json:"smtp_email"`
	SMTPHost          string `json:"smtp_host"`
	SMTPPort          int    `json:"smtp_port"`
	SMTPUseTLS        bool   `json:"smtp_use_tls"`
	HasPassword       bool   `json:"has_password"`
	IsEmailConfigured bool   `json:"is_email_configured"`
}

func (u *User) ToSMTPSettingsResponse() SMTPSettingsResponse {
	return SMTPSettingsResponse{
		SMTPEmail:         u.SMTPEmail,
		SMTPHost:          u.SMTPHost,
		SMTPPort:          u.SMTPPort,
		SMTPUseTLS:        u.SMTPUseTLS,
		HasPassword:       u.SMTPPassword != "",
		IsEmailConfigured: u.IsEmailConfigured,
	}
}
