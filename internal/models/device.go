package models

// DeviceToken is a Firebase Cloud Messaging token for a user's device
type DeviceToken struct {
	ID         int    `json:"id" db:"id"`
	UserID     string `json:"user_id" db:"user_id"`
	Token      string `json:"token" db:"token"`
	DeviceType string `json:"device_type" db:"device_type"` // "ios" or "android"
	CreatedAt  int64  `json:"created_at" db:"created_at"`
	UpdatedAt  int64  `json:"updated_at" db:"updated_at"`
}

type RegisterDeviceRequest struct {
	Token      string `json:"token"`
	DeviceType string `json:"device_type"`
}

// Validate checks the token and device type
func (req *RegisterDeviceRequest) Validate() error {
	if req.Token == "" {
		return &ValidationError{Field: "token", Message: "is required"}
	}
	if req.DeviceType != "ios" && req.DeviceType != "android" {
		return &ValidationError{Field: "device_type", Message: "must be ios or android"}
	}
	return nil
}
