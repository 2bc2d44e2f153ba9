package tax

import (
	taxdomain "github.com/smallbiznis/bookkeeping/internal/tax/domain"
	"github.com/smallbiznis/bookkeeping/internal/tax/repository"
	"github.com/smallbiznis/bookkeeping/internal/tax/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tax.service",
	fx.Provide(repository.Provide),
	fx.Provide(fx.Annotate(
		service.NewService,
		fx.As(new(taxdomain.Service)),
		fx.As(new(taxdomain.Calculator)),
	)),
)
