package invoice

import (
	invoicedomain "github.com/smallbiznis/bookkeeping/internal/invoice/domain"
	"github.com/smallbiznis/bookkeeping/internal/invoice/repository"
	"github.com/smallbiznis/bookkeeping/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(fx.Annotate(
		service.NewService,
		fx.As(new(invoicedomain.Service)),
		fx.As(new(invoicedomain.PaymentApplier)),
	)),
)
