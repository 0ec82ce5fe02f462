package campaign

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextStatus(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name        string
		current     Status
		amount      int64
		target      int64
		endDate     time.Time
		allowReopen bool
		want        Status
	}{
		{"active stays active below target", StatusActive, 400, 1000, future, true, StatusActive},
		{"active completes at target", StatusActive, 1000, 1000, future, true, StatusCompleted},
		{"active completes above target", StatusActive, 1200, 1000, future, true, StatusCompleted},
		{"active fails past end date while underfunded", StatusActive, 400, 1000, past, true, StatusFailed},
		{"active completes past end date when funded", StatusActive, 1000, 1000, past, true, StatusCompleted},
		{"completed reopens below target", StatusCompleted, 900, 1000, future, true, StatusActive},
		{"completed stays completed when reopening disabled", StatusCompleted, 900, 1000, future, false, StatusCompleted},
		{"completed reopens to active even past end date", StatusCompleted, 900, 1000, past, true, StatusActive},
		{"failed is terminal below target", StatusFailed, 400, 1000, past, true, StatusFailed},
		{"failed is terminal even at target", StatusFailed, 1000, 1000, past, true, StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextStatus(tt.current, tt.amount, tt.target, tt.endDate, now, tt.allowReopen)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestStatusValid(t *testing.T) {
	require.True(t, StatusActive.Valid())
	require.True(t, StatusCompleted.Valid())
	require.True(t, StatusFailed.Valid())
	require.False(t, Status("archived").Valid())
	require.False(t, Status("").Valid())
}
