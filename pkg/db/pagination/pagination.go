package pagination

import (
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250
)

// Pagination is a keyset page request. Results are ordered by id descending
// and the token carries the last id of the previous page.
type Pagination struct {
	PageToken string `json:"page_token"`
	PageSize  int    `json:"page_size" validate:"omitempty,gte=1,lte=250"`
}

type Cursor struct {
	ID string `json:"id,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

// Limit returns the effective page size.
func (p Pagination) Limit() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

// Apply orders stmt by id descending, resumes after the cursor and fetches
// one extra row so BuildPageInfo can tell whether more rows exist.
func (p Pagination) Apply(stmt *gorm.DB, idColumn string) (*gorm.DB, error) {
	if p.PageToken != "" {
		cursor, err := DecodeCursor(p.PageToken)
		if err != nil {
			return nil, err
		}
		id, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where(idColumn+" < ?", id)
	}
	return stmt.Order(idColumn + " desc").Limit(p.Limit() + 1), nil
}

// BuildPageInfo trims the look-ahead row and returns the page info.
func BuildPageInfo[T any](data []T, limit int, extractID func(T) snowflake.ID) ([]T, PageInfo) {
	if len(data) <= limit {
		return data, PageInfo{}
	}

	data = data[:limit]
	token, _ := EncodeCursor(Cursor{ID: extractID(data[len(data)-1]).String()})
	return data, PageInfo{HasMore: true, NextPageToken: token}
}
