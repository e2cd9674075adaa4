package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreate       = "CREATE"
	ActionUpdate       = "UPDATE"
	ActionDelete       = "DELETE"
	ActionUploadImage  = "UPLOAD_IMAGE"
	ActionUpdateRate   = "UPDATE_RATE"
	ActionUpdateRollup = "UPDATE_ROLLUP"
)

// AuditLog tracks Who, What, and When for every mutation forwarded upstream
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Actor      string    `gorm:"type:varchar(100);index" json:"actor"` // token subject, empty if unknown
	Role       string    `gorm:"type:varchar(30)" json:"role"`
	Action     string    `gorm:"type:varchar(30);not null;index" json:"action"`
	Resource   string    `gorm:"type:varchar(50);not null;index" json:"resource"`
	EntityID   string    `gorm:"type:varchar(50);index" json:"entity_id"`
	Details    string    `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	StatusCode int       `json:"status_code"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
