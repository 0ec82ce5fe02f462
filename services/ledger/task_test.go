package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"donationhub/pkg/taskname"
	"donationhub/services/campaign"
	"donationhub/services/testutil"
)

type donationRow struct {
	ID         string `gorm:"column:id;primaryKey"`
	CampaignID string `gorm:"column:campaign_id"`
	Amount     int64  `gorm:"column:amount"`
	Status     string `gorm:"column:status"`
}

func (donationRow) TableName() string {
	return "donations"
}

func TestAuditorReportsDrift(t *testing.T) {
	db := testutil.NewTestDB(t, &campaign.Campaign{}, &donationRow{})

	require.NoError(t, db.Create(&campaign.Campaign{
		ID: "1", Name: "consistent", TargetAmount: 1000, CurrentAmount: 300,
		Status: campaign.StatusActive, EndDate: time.Now().Add(time.Hour),
	}).Error)
	require.NoError(t, db.Create(&campaign.Campaign{
		ID: "2", Name: "drifted", TargetAmount: 1000, CurrentAmount: 999,
		Status: campaign.StatusActive, EndDate: time.Now().Add(time.Hour),
	}).Error)

	require.NoError(t, db.Create(&donationRow{ID: "d1", CampaignID: "1", Amount: 300, Status: "completed"}).Error)
	require.NoError(t, db.Create(&donationRow{ID: "d2", CampaignID: "1", Amount: 50, Status: "pending"}).Error)
	require.NoError(t, db.Create(&donationRow{ID: "d3", CampaignID: "2", Amount: 100, Status: "completed"}).Error)

	auditor := NewAuditor(db)
	err := auditor.Handle(context.Background(), asynq.NewTask(taskname.LedgerAudit, nil))
	require.NoError(t, err)

	require.Equal(t, float64(1), promtestutil.ToFloat64(auditDrift))
}
