package auditlog

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// AuditLog represents the audit_logs table
type AuditLog struct {
	ID         uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     *uint          `gorm:"index" json:"user_id"` // nullable (e.g. failed login)
	Resource   string         `gorm:"size:50;not null;index" json:"resource"`
	ResourceID *uint          `gorm:"index" json:"resource_id"`
	Action     string         `gorm:"size:100;not null;index" json:"action"`
	Details    datatypes.JSON `json:"details"`
	IPAddress  string         `gorm:"size:45" json:"ip_address"`
	Status     string         `gorm:"size:20;not null;index" json:"status"` // success/failure
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`

	// filled by the list query's join on users
	UserName string `gorm:"->;-:migration" json:"user_name,omitempty"`
}

// TableName overrides table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Stats summarises recent activity for the admin dashboard.
type Stats struct {
	Since           time.Time        `json:"since"`
	Total           int64            `json:"total"`
	SuccessCount    int64            `json:"success_count"`
	FailureCount    int64            `json:"failure_count"`
	ActionBreakdown map[string]int64 `json:"action_breakdown"`
}
