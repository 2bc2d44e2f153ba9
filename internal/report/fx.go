package report

import (
	reportdomain "github.com/smallbiznis/bookkeeping/internal/report/domain"
	reportservice "github.com/smallbiznis/bookkeeping/internal/report/service"
	"go.uber.org/fx"
)

var Module = fx.Module("report.service",
	fx.Provide(fx.Annotate(
		reportservice.NewService,
		fx.As(new(reportdomain.Service)),
	)),
)
