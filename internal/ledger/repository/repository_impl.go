package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/bookkeeping/internal/ledger/domain"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"github.com/smallbiznis/bookkeeping/pkg/db"
	"github.com/smallbiznis/bookkeeping/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() ledgerdomain.Repository {
	return &repo{}
}

func (r *repo) InsertEntry(ctx context.Context, conn *gorm.DB, entry *ledgerdomain.JournalEntry) error {
	return conn.WithContext(ctx).Create(entry).Error
}

func (r *repo) InsertLines(ctx context.Context, conn *gorm.DB, lines []ledgerdomain.JournalEntryLine) error {
	if len(lines) == 0 {
		return nil
	}
	return conn.WithContext(ctx).Create(&lines).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*ledgerdomain.JournalEntry, error) {
	return r.findOne(conn.WithContext(ctx), "tenant_id = ? AND company_id = ? AND id = ?", scope.TenantID, scope.CompanyID, id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*ledgerdomain.JournalEntry, error) {
	return r.findOne(db.ForUpdate(conn.WithContext(ctx)), "tenant_id = ? AND company_id = ? AND id = ?", scope.TenantID, scope.CompanyID, id)
}

func (r *repo) FindByNumber(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, number string) (*ledgerdomain.JournalEntry, error) {
	return r.findOne(conn.WithContext(ctx), "tenant_id = ? AND company_id = ? AND entry_number = ?", scope.TenantID, scope.CompanyID, number)
}

func (r *repo) findOne(stmt *gorm.DB, query string, args ...any) (*ledgerdomain.JournalEntry, error) {
	var entries []ledgerdomain.JournalEntry
	if err := stmt.Where(query, args...).Limit(1).Find(&entries).Error; err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (r *repo) ListLines(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, entryID snowflake.ID) ([]ledgerdomain.JournalEntryLine, error) {
	var lines []ledgerdomain.JournalEntryLine
	err := conn.WithContext(ctx).
		Where("tenant_id = ? AND company_id = ? AND entry_id = ?", scope.TenantID, scope.CompanyID, entryID).
		Order("line_number ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, filter ledgerdomain.ListFilter, page pagination.Pagination) ([]ledgerdomain.JournalEntry, error) {
	var entries []ledgerdomain.JournalEntry
	stmt := conn.WithContext(ctx).Model(&ledgerdomain.JournalEntry{}).
		Where("tenant_id = ? AND company_id = ?", scope.TenantID, scope.CompanyID)

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		stmt = stmt.Where("entry_date >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("entry_date <= ?", *filter.To)
	}

	stmt, err := page.Apply(stmt, "id")
	if err != nil {
		return nil, err
	}
	if err := stmt.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) UpdateDraft(ctx context.Context, conn *gorm.DB, entry *ledgerdomain.JournalEntry) (int64, error) {
	result := conn.WithContext(ctx).Exec(
		`UPDATE journal_entries
		 SET entry_date = ?, description = ?, reference = ?, total_debit = ?, total_credit = ?, updated_at = ?
		 WHERE tenant_id = ? AND company_id = ? AND id = ? AND status = ?`,
		entry.EntryDate,
		entry.Description,
		entry.Reference,
		entry.TotalDebit,
		entry.TotalCredit,
		entry.UpdatedAt,
		entry.TenantID,
		entry.CompanyID,
		entry.ID,
		ledgerdomain.EntryStatusDraft,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) Transition(ctx context.Context, conn *gorm.DB, entry *ledgerdomain.JournalEntry, from ledgerdomain.EntryStatus) (int64, error) {
	result := conn.WithContext(ctx).Exec(
		`UPDATE journal_entries
		 SET status = ?, posted_at = ?, posted_by = ?, reversed_at = ?, reversed_by = ?, reversed_by_id = ?, updated_at = ?
		 WHERE tenant_id = ? AND company_id = ? AND id = ? AND status = ?`,
		entry.Status,
		entry.PostedAt,
		entry.PostedBy,
		entry.ReversedAt,
		entry.ReversedBy,
		entry.ReversedByID,
		entry.UpdatedAt,
		entry.TenantID,
		entry.CompanyID,
		entry.ID,
		from,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) DeleteLines(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, entryID snowflake.ID) error {
	return conn.WithContext(ctx).Exec(
		`DELETE FROM journal_entry_lines WHERE tenant_id = ? AND company_id = ? AND entry_id = ?`,
		scope.TenantID,
		scope.CompanyID,
		entryID,
	).Error
}

func (r *repo) DeleteEntry(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, id snowflake.ID) error {
	return conn.WithContext(ctx).Exec(
		`DELETE FROM journal_entries WHERE tenant_id = ? AND company_id = ? AND id = ?`,
		scope.TenantID,
		scope.CompanyID,
		id,
	).Error
}

func (r *repo) ListPostedLines(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, filter ledgerdomain.PostedLineFilter) ([]ledgerdomain.PostedLine, error) {
	var lines []ledgerdomain.PostedLine
	stmt := conn.WithContext(ctx).
		Table("journal_entry_lines AS l").
		Select(`l.entry_id, e.entry_number, e.entry_date, e.description AS entry_description,
			l.line_number, l.account_id, l.description, l.debit_amount, l.credit_amount`).
		Joins("JOIN journal_entries AS e ON e.id = l.entry_id").
		Where("e.tenant_id = ? AND e.company_id = ?", scope.TenantID, scope.CompanyID).
		Where("e.status IN ?", []ledgerdomain.EntryStatus{ledgerdomain.EntryStatusPosted, ledgerdomain.EntryStatusReversed})

	if len(filter.AccountIDs) > 0 {
		stmt = stmt.Where("l.account_id IN ?", filter.AccountIDs)
	}
	if filter.From != nil {
		stmt = stmt.Where("e.entry_date >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("e.entry_date <= ?", *filter.To)
	}

	err := stmt.Order("e.entry_date ASC").
		Order("e.entry_number ASC").
		Order("l.line_number ASC").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}
