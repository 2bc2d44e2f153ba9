package account

import (
	accountdomain "github.com/smallbiznis/bookkeeping/internal/account/domain"
	"github.com/smallbiznis/bookkeeping/internal/account/repository"
	"github.com/smallbiznis/bookkeeping/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	fx.Provide(repository.Provide),
	fx.Provide(fx.Annotate(
		service.NewService,
		fx.As(new(accountdomain.Service)),
		fx.As(new(accountdomain.PostingService)),
	)),
)
