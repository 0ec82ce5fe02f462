package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"donationhub/pkg/config"
	"donationhub/pkg/db"
	"donationhub/pkg/featureflags"
	"donationhub/pkg/health"
	"donationhub/pkg/identity"
	"donationhub/pkg/logger"
	"donationhub/pkg/minio"
	"donationhub/pkg/otelcol"
	"donationhub/pkg/profiling"
	"donationhub/pkg/redis"
	"donationhub/pkg/secretmanager"
	"donationhub/pkg/sequence"
	"donationhub/pkg/server"
	"donationhub/services/campaign"
	"donationhub/services/donation"
	"donationhub/services/ledger"
)

func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		otelcol.Module,
		profiling.Module,
		minio.Client,
		featureflags.Module,
		identity.Module,
		sequence.Module,
		fx.Provide(provideSnowflakeNode),
		fx.Invoke(db.Otel, registerDBMetrics, migrate),
		server.Module,
		health.Module,
		ledger.Module,
		campaign.Module,
		donation.Module,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func registerDBMetrics(cfg *config.Config, gdb *gorm.DB) error {
	return db.Metric(cfg)(gdb)
}

func migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&campaign.Campaign{},
		&donation.Donation{},
		&ledger.LedgerEntry{},
	)
}
