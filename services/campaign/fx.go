package campaign

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"donationhub/pkg/config"
)

var Module = fx.Module("campaign.service",
	fx.Provide(provideCache, NewService),
	fx.Invoke(registerRoutes),
)

// Worker wires only what the sweep binary needs.
var Worker = fx.Module("campaign.worker",
	fx.Provide(provideCache, NewExpireSweeper),
)

type cacheParams struct {
	fx.In

	Config *config.Config
	Redis  *redis.Client `optional:"true"`
}

func provideCache(p cacheParams) *Cache {
	return NewCache(p.Redis, p.Config.Ledger.CacheTTL)
}
