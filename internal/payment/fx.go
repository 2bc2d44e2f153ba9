package payment

import (
	paymentdomain "github.com/smallbiznis/bookkeeping/internal/payment/domain"
	"github.com/smallbiznis/bookkeeping/internal/payment/repository"
	paymentservice "github.com/smallbiznis/bookkeeping/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(fx.Annotate(
		paymentservice.NewService,
		fx.As(new(paymentdomain.Service)),
	)),
)
