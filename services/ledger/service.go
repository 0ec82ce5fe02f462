package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"donationhub/pkg/config"
	"donationhub/pkg/db/option"
	"donationhub/pkg/errutil"
	"donationhub/pkg/featureflags"
	"donationhub/pkg/repository"
	"donationhub/services/campaign"
)

var tracer = otel.Tracer("donationhub/services/ledger")

// reopenFlag is the runtime override for the completed-to-active reopening
// policy. Static config applies when no flag service is wired.
const reopenFlag = "campaign_reopening"

// Engine is the single writer of campaign.CurrentAmount and campaign.Status.
// Every donation mutation that crosses the completed boundary funnels its
// signed amount through here.
type Engine struct {
	db   *gorm.DB
	node *snowflake.Node

	campaigns repository.Repository[campaign.Campaign]
	entries   repository.Repository[LedgerEntry]

	allowReopenDefault bool
	flags              featureflags.FeatureFlag
}

type EngineParams struct {
	fx.In

	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config
	Flags  featureflags.FeatureFlag `optional:"true"`
}

func NewEngine(p EngineParams) *Engine {
	return &Engine{
		db:                 p.DB,
		node:               p.Node,
		campaigns:          repository.ProvideStore[campaign.Campaign](p.DB),
		entries:            repository.ProvideStore[LedgerEntry](p.DB),
		allowReopenDefault: p.Config.Ledger.AllowReopen,
		flags:              p.Flags,
	}
}

func (e *Engine) allowReopen(ctx context.Context) bool {
	if e.flags != nil {
		if enabled, ok := e.flags.IsEnabled(ctx, reopenFlag); ok {
			return enabled
		}
	}
	return e.allowReopenDefault
}

// ApplyDelta applies a signed amount to a campaign's funding aggregate in its
// own transaction and returns the refreshed campaign. Transient store
// failures are retried with exponential backoff; classified errors are final.
func (e *Engine) ApplyDelta(ctx context.Context, campaignID string, delta int64) (*campaign.Campaign, error) {
	ctx, span := tracer.Start(ctx, "ledger.ApplyDelta")
	defer span.End()

	operation := func() (*campaign.Campaign, error) {
		var out *campaign.Campaign
		err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			updated, err := e.Apply(ctx, tx, campaignID, "", delta)
			if err != nil {
				return err
			}
			out = updated
			return nil
		})
		if err != nil {
			var base errutil.BaseError
			if errors.As(err, &base) {
				return nil, backoff.Permanent(err)
			}
			zap.L().Warn("ledger apply retrying", zap.String("campaign_id", campaignID), zap.Error(err))
			return nil, err
		}
		return out, nil
	}

	updated, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(5),
	)
	if err != nil {
		var base errutil.BaseError
		if errors.As(err, &base) {
			return nil, err
		}
		return nil, errutil.Internal("failed to update campaign ledger", err)
	}
	return updated, nil
}

// Apply performs the aggregate mutation inside the caller's transaction so a
// donation write and its ledger effect commit or roll back as one unit.
//
// The increment is a single atomic statement at the store, not a
// read-modify-write, so concurrent deltas against one campaign serialize
// there. The status is then derived from a locked re-read of the
// post-increment row and a journal entry is written, all in the same
// transaction.
func (e *Engine) Apply(ctx context.Context, tx *gorm.DB, campaignID, donationID string, delta int64) (*campaign.Campaign, error) {
	res := tx.WithContext(ctx).Model(&campaign.Campaign{}).
		Where("id = ?", campaignID).
		UpdateColumn("current_amount", gorm.Expr("current_amount + ?", delta))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errutil.NotFound("campaign does not exist", nil)
	}

	current, err := e.campaigns.WithTrx(tx).FindOne(ctx, &campaign.Campaign{ID: campaignID}, option.WithLockingUpdate())
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, errutil.NotFound("campaign does not exist", nil)
	}

	if current.CurrentAmount < 0 {
		return nil, errutil.Conflict("campaign balance cannot go negative", nil)
	}

	now := time.Now()
	next := campaign.NextStatus(current.Status, current.CurrentAmount, current.TargetAmount, current.EndDate, now, e.allowReopen(ctx))
	if next != current.Status {
		if err := e.campaigns.WithTrx(tx).Update(ctx, campaignID, map[string]any{
			"status":     next,
			"updated_at": now,
		}); err != nil {
			return nil, err
		}
		current.Status = next
		current.UpdatedAt = now
	}

	if err := e.entries.WithTrx(tx).Create(ctx, &LedgerEntry{
		ID:           e.node.Generate().String(),
		CampaignID:   campaignID,
		DonationID:   donationID,
		Delta:        delta,
		BalanceAfter: current.CurrentAmount,
		StatusAfter:  current.Status,
		CreatedAt:    now,
	}); err != nil {
		return nil, err
	}

	return current, nil
}
