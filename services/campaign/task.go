package campaign

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExpireSweeper converges campaigns whose end date has passed while they were
// still underfunded and untouched by any ledger write. Write-time evaluation
// remains authoritative; the sweep only closes the staleness window for
// listings.
type ExpireSweeper struct {
	db    *gorm.DB
	cache *Cache
}

func NewExpireSweeper(db *gorm.DB, cache *Cache) *ExpireSweeper {
	return &ExpireSweeper{db: db, cache: cache}
}

func (s *ExpireSweeper) Handle(ctx context.Context, t *asynq.Task) error {
	now := time.Now()

	res := s.db.WithContext(ctx).Model(&Campaign{}).
		Where("status = ?", StatusActive).
		Where("end_date < ?", now).
		Where("current_amount < target_amount").
		Updates(map[string]any{
			"status":     StatusFailed,
			"updated_at": now,
		})
	if res.Error != nil {
		zap.L().Error("campaign expiry sweep failed", zap.Error(res.Error))
		return res.Error
	}

	if res.RowsAffected > 0 {
		s.cache.InvalidateOngoing(ctx)
	}

	zap.L().Info("campaign expiry sweep finished",
		zap.Int64("campaigns_failed", res.RowsAffected),
	)
	return nil
}
