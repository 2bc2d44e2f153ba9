package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"github.com/smallbiznis/bookkeeping/pkg/db/pagination"
	"github.com/smallbiznis/bookkeeping/pkg/domainerr"
	"gorm.io/gorm"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, filter ListFilter, page pagination.Pagination) ([]AuditLog, error)
}

type Service interface {
	// AuditLogTx writes the entry through tx so it commits or rolls back with the change.
	AuditLogTx(ctx context.Context, tx *gorm.DB, action, targetType, targetID string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidScope     = domainerr.Validation("invalid_scope")
	ErrInvalidPageToken = domainerr.Validation("invalid_page_token")
	ErrInvalidTimeRange = domainerr.Validation("invalid_time_range")
	ErrInvalidAction    = domainerr.Validation("invalid_action")
)
