package rediskey

const campaignOngoingKey = "campaign:ongoing"

// BuildOngoingListKey returns the cache key for the ongoing-campaign listing.
func BuildOngoingListKey() string {
	return campaignOngoingKey
}
