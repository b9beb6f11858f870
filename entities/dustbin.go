package entities

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Dustbin is a registered waste bin with its IoT module. The device secret
// is the HMAC key shared with the firmware; the api_key is the legacy
// credential older modules fall back to. Neither is ever serialized after
// creation.
type Dustbin struct {
	ID              string         `gorm:"primaryKey" json:"id"`
	DustbinCode     string         `gorm:"uniqueIndex" json:"dustbin_code"`
	LocationName    string         `json:"location_name"`
	Latitude        float64        `json:"latitude"`
	Longitude       float64        `json:"longitude"`
	InstitutionID   string         `gorm:"index" json:"institution_id"`
	APIKey          string         `json:"-"`
	DeviceSecret    string         `json:"-"`
	FirmwareVersion string         `json:"firmware_version,omitempty"`
	LastSeen        *time.Time     `json:"last_seen,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (d *Dustbin) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.APIKey == "" {
		d.APIKey = newCredential()
	}
	if d.DeviceSecret == "" {
		d.DeviceSecret = newCredential()
	}
	return
}

// HMACKey returns the key the device is expected to sign with: the
// provisioned secret, or the legacy api_key when no secret exists.
func (d *Dustbin) HMACKey() []byte {
	if d.DeviceSecret != "" {
		return []byte(d.DeviceSecret)
	}
	return []byte(d.APIKey)
}

func newCredential() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}
