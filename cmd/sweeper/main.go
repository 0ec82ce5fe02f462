package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"donationhub/pkg/config"
	"donationhub/pkg/db"
	"donationhub/pkg/logger"
	"donationhub/pkg/redis"
	"donationhub/pkg/secretmanager"
	"donationhub/pkg/task"
	"donationhub/pkg/taskname"
	"donationhub/services/campaign"
	"donationhub/services/ledger"
	"donationhub/services/scheduler"
)

func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		fx.Provide(provideSnowflakeNode),
		task.Client,
		task.Server,
		campaign.Worker,
		ledger.Worker,
		scheduler.Module,
		fx.Invoke(registerHandlers),
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

func registerHandlers(mux *asynq.ServeMux, sweeper *campaign.ExpireSweeper, auditor *ledger.Auditor) {
	mux.HandleFunc(taskname.CampaignExpireSweep, sweeper.Handle)
	mux.HandleFunc(taskname.LedgerAudit, auditor.Handle)
}
