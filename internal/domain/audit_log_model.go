package domain

import "time"

// Audit levels.
const (
	AuditInfo    = "info"
	AuditWarning = "warning"
	AuditError   = "error"
)

// Audit actions recorded by the pipeline.
const (
	ActionFetch        = "fetch"
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionBlocked      = "blocked"
	ActionTempActivate = "temp_activate"
	ActionCleanup      = "cleanup"
)

// AuditLog is one append-only event in the audit trail. UserID is nil for
// actions taken by the system itself.
type AuditLog struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Level      string    `gorm:"size:16;not null;default:'info'" json:"level"`
	Action     string    `gorm:"size:32;not null;index" json:"action"`
	Resource   string    `gorm:"size:64;not null;index" json:"resource"`
	ResourceID string    `gorm:"size:64;default:''" json:"resourceId"`
	Details    string    `gorm:"size:2048;default:''" json:"details"`
	UserID     *uint64   `gorm:"index" json:"userId"`
	IPAddress  string    `gorm:"size:64;default:''" json:"ipAddress"`
	Metadata   string    `gorm:"type:text;default:''" json:"metadata"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}
