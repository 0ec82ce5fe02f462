package featureflags

import (
	"context"

	"donationhub/pkg/config"

	"github.com/Flagsmith/flagsmith-go-client/v2"
	"go.uber.org/fx"
)

var Module = fx.Module("featureflags", fx.Provide(ProvideFeatureFlag))

type FeatureFlag interface {
	// IsEnabled reports whether the named flag is enabled. The second
	// return value is false when no flag service is configured or the
	// lookup failed, in which case callers fall back to static config.
	IsEnabled(ctx context.Context, name string) (bool, bool)
}

type featureflag struct {
	client *flagsmith.Client
}

type FeatureParams struct {
	fx.In
	Config *config.Config
}

func ProvideFeatureFlag(p FeatureParams) FeatureFlag {
	if p.Config.Flagsmith.ApiKey == "" {
		return &featureflag{}
	}

	opts := []flagsmith.Option{
		flagsmith.WithBaseURL(p.Config.Flagsmith.Addr),
		flagsmith.WithAnalytics(),
	}

	return &featureflag{
		client: flagsmith.NewClient(p.Config.Flagsmith.ApiKey, opts...),
	}
}

func (s *featureflag) IsEnabled(ctx context.Context, name string) (bool, bool) {
	if s.client == nil {
		return false, false
	}
	flags, err := s.client.GetEnvironmentFlags()
	if err != nil {
		return false, false
	}
	enabled, err := flags.IsFeatureEnabled(name)
	if err != nil {
		return false, false
	}
	return enabled, true
}
