package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// AuditLog records one mutation of the books. Rows are written in the same
// transaction as the change they describe.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	TenantID   string            `gorm:"type:varchar(64);not null;index:ix_audit_logs_scope,priority:1"`
	CompanyID  string            `gorm:"type:varchar(64);not null;index:ix_audit_logs_scope,priority:2"`
	ActorType  ActorType         `gorm:"type:varchar(16);not null"`
	ActorID    *string           `gorm:"type:varchar(64)"`
	Action     string            `gorm:"type:varchar(64);not null;index"`
	TargetType string            `gorm:"type:varchar(64);not null"`
	TargetID   *string           `gorm:"type:varchar(64);index"`
	Metadata   datatypes.JSONMap `gorm:"not null"`
	CreatedAt  time.Time         `gorm:"not null"`
}

func (AuditLog) TableName() string { return "audit_logs" }
