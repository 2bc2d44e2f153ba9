// Package scheduler runs periodic bookkeeping maintenance: flagging overdue
// invoices and checking that every ledger still balances.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookkeeping/internal/clock"
	invoicedomain "github.com/smallbiznis/bookkeeping/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/bookkeeping/internal/observability/metrics"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	reportdomain "github.com/smallbiznis/bookkeeping/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	JobMarkOverdue       = "mark_overdue"
	JobTrialBalanceCheck = "trial_balance_check"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	InvoiceSvc invoicedomain.Service
	ReportSvc  reportdomain.Service
	Locker     *Locker             `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
	Config     Config              `optional:"true"`
}

type Scheduler struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	invoiceSvc invoicedomain.Service
	reportSvc  reportdomain.Service
	locker     *Locker
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.InvoiceSvc == nil || p.ReportSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:         p.DB,
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		invoiceSvc: p.InvoiceSvc,
		reportSvc:  p.ReportSvc,
		locker:     p.Locker,
		obsMetrics: p.ObsMetrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)

	err := fn(ctx)
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		s.obsMetrics.RecordJobRun(ctx, name, "ok", time.Since(start))
		return nil
	}

	// A deadline is a soft timeout: the next run picks up the rest.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.obsMetrics.RecordJobRun(context.Background(), name, "timeout", time.Since(start))
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	s.obsMetrics.RecordJobRun(ctx, name, "error", time.Since(start))
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every enabled job in order. With a locker configured, a
// tick already claimed by another replica is skipped.
func (s *Scheduler) RunOnce(parent context.Context) error {
	if s.locker != nil {
		token, ok, err := s.locker.TryLock(parent, runLockKey, s.cfg.RunInterval)
		if err != nil {
			return fmt.Errorf("scheduler lock: %w", err)
		}
		if !ok {
			s.log.Debug("scheduler tick held by another replica")
			return nil
		}
		defer func() {
			if err := s.locker.Release(context.Background(), runLockKey, token); err != nil {
				s.log.Warn("scheduler lock release failed", zap.Error(err))
			}
		}()
	}

	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobMarkOverdue, s.MarkOverdueJob},
		{JobTrialBalanceCheck, s.TrialBalanceCheckJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.JobTimeout, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// MarkOverdueJob moves every sent or partially paid invoice past its due
// date to overdue, one scope at a time. A failing scope does not stop the
// others.
func (s *Scheduler) MarkOverdueJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobMarkOverdue)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}
	asOf := clock.Today(s.clock)

	scopes, err := s.overdueScopes(ctx, asOf)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.scope.fetch.failed", JobMarkOverdue, orgcontext.Scope{}, err)
		return err
	}

	var jobErr error
	for _, scope := range scopes {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		scopeCtx := s.withLogContext(ctx, scope)
		marked, err := s.invoiceSvc.MarkOverdue(scopeCtx, asOf)
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			s.logSchedulerError(ctx, run, "invoice.overdue.failed", JobMarkOverdue, scope, err)
			continue
		}
		run.AddProcessed(marked)
		if marked > 0 {
			s.logger(scopeCtx).Info("invoice.overdue.marked",
				zap.Int("count", marked),
				zap.Time("as_of", asOf),
			)
		}
	}
	return jobErr
}

// TrialBalanceCheckJob recomputes every trial balance and reports the scopes
// whose debits and credits disagree.
func (s *Scheduler) TrialBalanceCheckJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobTrialBalanceCheck)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	scopes, err := s.ledgerScopes(ctx)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.scope.fetch.failed", JobTrialBalanceCheck, orgcontext.Scope{}, err)
		return err
	}

	var jobErr error
	for _, scope := range scopes {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		scopeCtx := s.withLogContext(ctx, scope)
		tb, err := s.reportSvc.TrialBalance(scopeCtx, reportdomain.TrialBalanceRequest{})
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			s.logSchedulerError(ctx, run, "ledger.trial_balance.failed", JobTrialBalanceCheck, scope, err)
			continue
		}
		run.AddProcessed(1)
		if !tb.IsBalanced {
			run.IncError()
			s.logger(scopeCtx).Error("ledger.trial_balance.unbalanced",
				zap.String("total_debit", tb.TotalDebit.StringFixed(2)),
				zap.String("total_credit", tb.TotalCredit.StringFixed(2)),
			)
		}
	}
	return jobErr
}
