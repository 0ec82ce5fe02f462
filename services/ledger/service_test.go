package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"donationhub/pkg/config"
	"donationhub/pkg/errutil"
	"donationhub/services/campaign"
	"donationhub/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestEngine(t *testing.T, allowReopen bool) *Engine {
	t.Helper()

	db := testutil.NewTestDB(t, &campaign.Campaign{}, &LedgerEntry{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Ledger.AllowReopen = allowReopen

	return NewEngine(EngineParams{DB: db, Node: node, Config: cfg})
}

func seedCampaign(t *testing.T, e *Engine, current, target int64, status campaign.Status, endDate time.Time) *campaign.Campaign {
	t.Helper()

	c := &campaign.Campaign{
		ID:            "100",
		OrphanageID:   "orph-1",
		Name:          "Test",
		TargetAmount:  target,
		CurrentAmount: current,
		Status:        status,
		StartDate:     time.Now().Add(-time.Hour),
		EndDate:       endDate,
	}
	require.NoError(t, e.db.Create(c).Error)
	return c
}

func TestApplyDeltaCreditCompletesCampaign(t *testing.T) {
	e := newTestEngine(t, true)
	seedCampaign(t, e, 0, 1000, campaign.StatusActive, time.Now().Add(24*time.Hour))

	updated, err := e.ApplyDelta(context.Background(), "100", 1000)
	require.NoError(t, err)
	require.Equal(t, int64(1000), updated.CurrentAmount)
	require.Equal(t, campaign.StatusCompleted, updated.Status)

	var entries []*LedgerEntry
	require.NoError(t, e.db.Find(&entries).Error)
	require.Len(t, entries, 1)
	require.Equal(t, int64(1000), entries[0].Delta)
	require.Equal(t, int64(1000), entries[0].BalanceAfter)
	require.Equal(t, campaign.StatusCompleted, entries[0].StatusAfter)
}

func TestApplyDeltaPartialCreditStaysActive(t *testing.T) {
	e := newTestEngine(t, true)
	seedCampaign(t, e, 400, 500, campaign.StatusActive, time.Now().Add(24*time.Hour))

	updated, err := e.ApplyDelta(context.Background(), "100", 50)
	require.NoError(t, err)
	require.Equal(t, int64(450), updated.CurrentAmount)
	require.Equal(t, campaign.StatusActive, updated.Status)
}

func TestApplyDeltaMissingCampaign(t *testing.T) {
	e := newTestEngine(t, true)

	_, err := e.ApplyDelta(context.Background(), "999", 100)
	var base errutil.BaseError
	require.True(t, errors.As(err, &base))
	require.Equal(t, errutil.StatusNotFound, base.Status())
}

func TestApplyDeltaDebitReopensCampaign(t *testing.T) {
	e := newTestEngine(t, true)
	seedCampaign(t, e, 1000, 1000, campaign.StatusCompleted, time.Now().Add(24*time.Hour))

	updated, err := e.ApplyDelta(context.Background(), "100", -1000)
	require.NoError(t, err)
	require.Equal(t, int64(0), updated.CurrentAmount)
	require.Equal(t, campaign.StatusActive, updated.Status)
}

func TestApplyDeltaReopenDisabled(t *testing.T) {
	e := newTestEngine(t, false)
	seedCampaign(t, e, 1000, 1000, campaign.StatusCompleted, time.Now().Add(24*time.Hour))

	updated, err := e.ApplyDelta(context.Background(), "100", -200)
	require.NoError(t, err)
	require.Equal(t, int64(800), updated.CurrentAmount)
	require.Equal(t, campaign.StatusCompleted, updated.Status)
}

func TestApplyDeltaExpiredUnderfundedFails(t *testing.T) {
	e := newTestEngine(t, true)
	seedCampaign(t, e, 100, 1000, campaign.StatusActive, time.Now().Add(-time.Hour))

	updated, err := e.ApplyDelta(context.Background(), "100", 50)
	require.NoError(t, err)
	require.Equal(t, int64(150), updated.CurrentAmount)
	require.Equal(t, campaign.StatusFailed, updated.Status)
}

func TestApplyDeltaFailedIsTerminal(t *testing.T) {
	e := newTestEngine(t, true)
	seedCampaign(t, e, 150, 1000, campaign.StatusFailed, time.Now().Add(-time.Hour))

	updated, err := e.ApplyDelta(context.Background(), "100", 100)
	require.NoError(t, err)
	require.Equal(t, int64(250), updated.CurrentAmount)
	require.Equal(t, campaign.StatusFailed, updated.Status)
}

func TestApplyDeltaConcurrentNoLostUpdates(t *testing.T) {
	e := newTestEngine(t, true)
	seedCampaign(t, e, 0, 1000, campaign.StatusActive, time.Now().Add(24*time.Hour))

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := e.ApplyDelta(context.Background(), "100", 100)
			return err
		})
	}
	require.NoError(t, g.Wait())

	final, err := e.campaigns.FindOne(context.Background(), &campaign.Campaign{ID: "100"})
	require.NoError(t, err)
	require.Equal(t, int64(1000), final.CurrentAmount)
	require.Equal(t, campaign.StatusCompleted, final.Status)

	var count int64
	require.NoError(t, e.db.Model(&LedgerEntry{}).Count(&count).Error)
	require.Equal(t, int64(10), count)
}
