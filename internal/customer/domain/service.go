package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookkeeping/pkg/db/pagination"
	"github.com/smallbiznis/bookkeeping/pkg/domainerr"
)

type ListCustomerRequest struct {
	pagination.Pagination
	Name  string
	Email string
}

type ListCustomerFilter struct {
	Name  string
	Email string
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type CreateCustomerRequest struct {
	Code     string         `validate:"required,max=32"`
	Name     string         `validate:"required,max=255"`
	Email    string         `validate:"required,email"`
	Metadata map[string]any `validate:"-"`
}

type Service interface {
	Create(ctx context.Context, req CreateCustomerRequest) (Customer, error)
	List(ctx context.Context, req ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(ctx context.Context, id snowflake.ID) (Customer, error)
}

var (
	ErrInvalidScope  = domainerr.Validation("invalid_scope")
	ErrInvalidID     = domainerr.Validation("invalid_id")
	ErrDuplicateCode = domainerr.Rule("duplicate_customer_code")
	ErrNotFound      = domainerr.NotFound("customer_not_found")
)
