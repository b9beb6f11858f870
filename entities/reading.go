package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reading is one accepted fill-level measurement. Append-only: the gateway
// never updates or deletes rows here.
type Reading struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	DustbinID      string    `gorm:"index" json:"dustbin_id"`
	FillPercentage float64   `json:"fill_percentage"`
	Sensor1Value   float64   `json:"sensor1_value"`
	Sensor2Value   float64   `json:"sensor2_value"`
	CreatedAt      time.Time `json:"created_at"`
}

func (r *Reading) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}
