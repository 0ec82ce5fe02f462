package featureflags

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"donationhub/pkg/config"
)

func TestIsEnabledWithoutClient(t *testing.T) {
	ff := ProvideFeatureFlag(FeatureParams{Config: &config.Config{}})

	enabled, ok := ff.IsEnabled(context.Background(), "campaign_reopening")
	require.False(t, ok)
	require.False(t, enabled)
}
