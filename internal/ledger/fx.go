package ledger

import (
	ledgerdomain "github.com/smallbiznis/bookkeeping/internal/ledger/domain"
	"github.com/smallbiznis/bookkeeping/internal/ledger/repository"
	"github.com/smallbiznis/bookkeeping/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(fx.Annotate(
		service.NewService,
		fx.As(new(ledgerdomain.Service)),
		fx.As(new(ledgerdomain.PostingService)),
	)),
)
