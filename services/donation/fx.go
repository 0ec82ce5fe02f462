package donation

import (
	"go.uber.org/fx"

	"donationhub/services/campaign"
)

var Module = fx.Module("donation.service",
	fx.Provide(
		NewService,
		func(s *Service) campaign.DonationCounter { return s },
	),
	fx.Invoke(registerRoutes),
)
