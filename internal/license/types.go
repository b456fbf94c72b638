package license

import (
	"strings"

	"github.com/binbin1213/GAGA-Client/internal/model"
)

// Backend status values
const (
	StatusOK      = "ok"
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusError   = "error"
)

// IsSuccess normalizes a backend status to a success predicate
func IsSuccess(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	return s == StatusOK || s == StatusSuccess
}

// AuthRequest is the body of POST /api/auth
type AuthRequest struct {
	DeviceID    string `json:"device_id"`
	LicenseCode string `json:"license_code"`
}

// AuthResponse is the answer of POST /api/auth
type AuthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"` // RFC 3339
}

// KeysRequest is the body of POST /api/get_keys
type KeysRequest struct {
	DeviceID    string `json:"device_id"`
	LicenseCode string `json:"license_code"`
	PSSH        string `json:"pssh"`
	LicenseURL  string `json:"license_url"`
}

// KeysResponse is the answer of POST /api/get_keys
type KeysResponse struct {
	Status  string             `json:"status"`
	Keys    []model.ContentKey `json:"keys,omitempty"`
	Message string             `json:"message,omitempty"`
}
