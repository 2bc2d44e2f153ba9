package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Customer struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID  string            `gorm:"type:varchar(64);not null;uniqueIndex:ux_customers_scope_code,priority:1" json:"tenant_id"`
	CompanyID string            `gorm:"type:varchar(64);not null;uniqueIndex:ux_customers_scope_code,priority:2" json:"company_id"`
	Code      string            `gorm:"type:varchar(32);not null;uniqueIndex:ux_customers_scope_code,priority:3" json:"code"`
	Name      string            `gorm:"type:varchar(255);not null" json:"name"`
	Email     string            `gorm:"type:varchar(255);not null" json:"email"`
	Metadata  datatypes.JSONMap `gorm:"not null" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }
