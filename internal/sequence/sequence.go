// Package sequence hands out gap-free document numbers per tenant and company.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/bookkeeping/internal/clock"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"github.com/smallbiznis/bookkeeping/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	JournalEntry    = "journal_entry"
	JournalReversal = "journal_reversal"
	Invoice         = "invoice"
	Payment         = "payment"
)

// Sequence is a named counter scoped to one set of books.
type Sequence struct {
	TenantID  string    `gorm:"primaryKey;type:varchar(64)"`
	CompanyID string    `gorm:"primaryKey;type:varchar(64)"`
	Name      string    `gorm:"primaryKey;type:varchar(64)"`
	Value     int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Sequence) TableName() string { return "sequences" }

type Generator struct {
	clock clock.Clock
}

func NewGenerator(c clock.Clock) *Generator { return &Generator{clock: c} }

var Module = fx.Module("sequence",
	fx.Provide(NewGenerator),
)

// Next increments and returns the counter. It must run inside the caller's
// transaction so a rolled back document does not consume a number.
func (g *Generator) Next(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, name string) (int64, error) {
	now := g.clock.Now()
	if err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Sequence{TenantID: scope.TenantID, CompanyID: scope.CompanyID, Name: name, UpdatedAt: now}).Error; err != nil {
		return 0, err
	}

	var seq Sequence
	if err := db.ForUpdate(tx.WithContext(ctx)).
		Where("tenant_id = ? AND company_id = ? AND name = ?", scope.TenantID, scope.CompanyID, name).
		Take(&seq).Error; err != nil {
		return 0, err
	}

	seq.Value++
	if err := tx.WithContext(ctx).Exec(
		`UPDATE sequences SET value = ?, updated_at = ?
		 WHERE tenant_id = ? AND company_id = ? AND name = ?`,
		seq.Value,
		now,
		scope.TenantID,
		scope.CompanyID,
		name,
	).Error; err != nil {
		return 0, err
	}
	return seq.Value, nil
}

// Format renders a counter with a document prefix, e.g. JE-000001.
func Format(prefix string, value int64) string {
	return fmt.Sprintf("%s-%06d", prefix, value)
}
