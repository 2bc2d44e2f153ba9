package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/bookkeeping/internal/audit/domain"
	"github.com/smallbiznis/bookkeeping/internal/clock"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	taxdomain "github.com/smallbiznis/bookkeeping/internal/tax/domain"
	"github.com/smallbiznis/bookkeeping/pkg/db"
	"github.com/smallbiznis/bookkeeping/pkg/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     taxdomain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     taxdomain.Repository
	auditSvc auditdomain.Service
}

func NewService(p Params) *Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("tax.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

var (
	_ taxdomain.Service    = (*Service)(nil)
	_ taxdomain.Calculator = (*Service)(nil)
)

func (s *Service) CreateTaxRate(ctx context.Context, req taxdomain.CreateTaxRateRequest) (*taxdomain.TaxRate, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidScope
	}

	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	rate := &taxdomain.TaxRate{
		ID:             s.genID.Generate(),
		TenantID:       scope.TenantID,
		CompanyID:      scope.CompanyID,
		Code:           req.Code,
		Name:           req.Name,
		Description:    strings.TrimSpace(req.Description),
		RatePercentage: req.RatePercentage.Round(2),
		EffectiveFrom:  clock.Date(req.EffectiveFrom),
		EffectiveTo:    normalizeDate(req.EffectiveTo),
		IsActive:       true,
		IsDefault:      req.IsDefault,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := validateRate(rate); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByCode(ctx, s.db, scope, rate.Code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", taxdomain.ErrDuplicateCode, rate.Code)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rate.IsDefault {
			if err := s.repo.ClearDefault(ctx, tx, scope, rate.ID); err != nil {
				return err
			}
		}
		if err := s.repo.Insert(ctx, tx, rate); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return fmt.Errorf("%w: %s", taxdomain.ErrDuplicateCode, rate.Code)
			}
			return err
		}
		return s.audit(ctx, tx, "tax_rate.created", rate)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("tax rate created",
		zap.String("tax_rate_id", rate.ID.String()),
		zap.String("code", rate.Code),
		zap.String("rate_percentage", rate.RatePercentage.StringFixed(2)),
	)
	return rate, nil
}

func (s *Service) UpdateTaxRate(ctx context.Context, req taxdomain.UpdateTaxRateRequest) (*taxdomain.TaxRate, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidScope
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var rate *taxdomain.TaxRate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rate, err = s.repo.FindByID(ctx, tx, scope, req.ID)
		if err != nil {
			return err
		}
		if rate == nil {
			return taxdomain.ErrNotFound
		}

		if req.Name != nil {
			rate.Name = *req.Name
		}
		if req.Description != nil {
			rate.Description = strings.TrimSpace(*req.Description)
		}
		if req.RatePercentage != nil {
			rate.RatePercentage = req.RatePercentage.Round(2)
		}
		if req.EffectiveFrom != nil {
			rate.EffectiveFrom = clock.Date(*req.EffectiveFrom)
		}
		switch {
		case req.ClearEffective:
			rate.EffectiveTo = nil
		case req.EffectiveTo != nil:
			rate.EffectiveTo = normalizeDate(req.EffectiveTo)
		}
		if req.IsActive != nil {
			rate.IsActive = *req.IsActive
			if !rate.IsActive {
				rate.IsDefault = false
			}
		}
		if req.IsDefault != nil {
			if *req.IsDefault && !rate.IsActive {
				return taxdomain.ErrDefaultNotAllowed
			}
			rate.IsDefault = *req.IsDefault
		}
		if err := validateRate(rate); err != nil {
			return err
		}

		if rate.IsDefault {
			if err := s.repo.ClearDefault(ctx, tx, scope, rate.ID); err != nil {
				return err
			}
		}
		rate.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, rate); err != nil {
			return err
		}
		return s.audit(ctx, tx, "tax_rate.updated", rate)
	})
	if err != nil {
		return nil, err
	}
	return rate, nil
}

// DeactivateTaxRate turns the rate off. A deactivated rate also loses its
// default flag.
func (s *Service) DeactivateTaxRate(ctx context.Context, id snowflake.ID) (*taxdomain.TaxRate, error) {
	inactive := false
	return s.UpdateTaxRate(ctx, taxdomain.UpdateTaxRateRequest{ID: id, IsActive: &inactive})
}

func (s *Service) GetTaxRate(ctx context.Context, id snowflake.ID) (*taxdomain.TaxRate, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidScope
	}
	if id == 0 {
		return nil, taxdomain.ErrInvalidID
	}
	rate, err := s.repo.FindByID(ctx, s.db, scope, id)
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return nil, taxdomain.ErrNotFound
	}
	return rate, nil
}

func (s *Service) ListTaxRates(ctx context.Context, req taxdomain.ListTaxRateRequest) ([]taxdomain.TaxRate, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidScope
	}
	items, err := s.repo.List(ctx, s.db, scope, taxdomain.ListFilter{IsActive: req.IsActive})
	if err != nil {
		return nil, err
	}
	if !req.ValidOnly {
		return items, nil
	}

	now := s.clock.Now()
	valid := items[:0]
	for _, item := range items {
		if item.IsValid(now) {
			valid = append(valid, item)
		}
	}
	return valid, nil
}

func (s *Service) audit(ctx context.Context, tx *gorm.DB, action string, rate *taxdomain.TaxRate) error {
	if s.auditSvc == nil {
		return nil
	}
	return s.auditSvc.AuditLogTx(ctx, tx, action, "tax_rate", rate.ID.String(), map[string]any{
		"code":            rate.Code,
		"rate_percentage": rate.RatePercentage.StringFixed(2),
		"is_active":       rate.IsActive,
		"is_default":      rate.IsDefault,
	})
}

func validateRate(rate *taxdomain.TaxRate) error {
	if !taxdomain.ValidPercentage(rate.RatePercentage) {
		return fmt.Errorf("%w: %s", taxdomain.ErrInvalidRate, rate.RatePercentage.String())
	}
	if rate.EffectiveTo != nil && rate.EffectiveTo.Before(rate.EffectiveFrom) {
		return taxdomain.ErrInvalidRange
	}
	return nil
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := clock.Date(*t)
	return &d
}
