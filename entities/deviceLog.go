package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DeviceLog is the append-only audit trail of report attempts. Rows are
// written for accepted reports and for reports rejected on signature, so
// intrusion attempts stay visible to review.
type DeviceLog struct {
	ID             string         `gorm:"primaryKey" json:"id"`
	DustbinID      string         `gorm:"index" json:"dustbin_id"`
	Payload        datatypes.JSON `json:"payload"`
	ReportedAt     time.Time      `json:"reported_at"`
	SignatureValid bool           `json:"signature_valid"`
	Nonce          string         `json:"nonce"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (l *DeviceLog) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return
}
