package ledger

import (
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.engine",
	fx.Provide(NewEngine),
)

var Worker = fx.Module("ledger.worker",
	fx.Provide(NewAuditor),
)
