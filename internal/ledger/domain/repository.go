package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"github.com/smallbiznis/bookkeeping/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status EntryStatus
	From   *time.Time
	To     *time.Time
}

// PostedLineFilter selects lines of posted or reversed entries. Zero values
// leave a bound open.
type PostedLineFilter struct {
	AccountIDs []snowflake.ID
	From       *time.Time
	To         *time.Time
}

type Repository interface {
	InsertEntry(ctx context.Context, db *gorm.DB, entry *JournalEntry) error
	InsertLines(ctx context.Context, db *gorm.DB, lines []JournalEntryLine) error
	FindByID(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*JournalEntry, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*JournalEntry, error)
	FindByNumber(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, number string) (*JournalEntry, error)
	ListLines(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, entryID snowflake.ID) ([]JournalEntryLine, error)
	List(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, filter ListFilter, page pagination.Pagination) ([]JournalEntry, error)
	UpdateDraft(ctx context.Context, db *gorm.DB, entry *JournalEntry) (int64, error)
	// Transition writes the lifecycle columns of entry when the stored status
	// still equals from.
	Transition(ctx context.Context, db *gorm.DB, entry *JournalEntry, from EntryStatus) (int64, error)
	DeleteLines(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, entryID snowflake.ID) error
	DeleteEntry(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, id snowflake.ID) error
	ListPostedLines(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, filter PostedLineFilter) ([]PostedLine, error)
}
