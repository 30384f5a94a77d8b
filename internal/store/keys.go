package store

// Key layout. Every per-tenant key embeds the tenant token so no code
// path can reach another tenant's data through a channel-id alone.

const auditLogKey = "audit-log"

func tenantConfigKey(tenant string) string { return "tenant-config:" + tenant }

func channelKey(tenant, id string) string { return "channel:" + tenant + ":" + id }

func channelPattern(tenant string) string { return "channel:" + tenant + ":*" }

func epgKey(tenant string) string { return "epg:" + tenant }

func manifestKey(tenant string) string { return "manifest-cache:" + tenant }

func overrideKey(tenant, pattern string) string { return "logo-override:" + tenant + ":" + pattern }

func overridePattern(tenant string) string { return "logo-override:" + tenant + ":*" }

func imageKey(cacheKey string) string { return "processed-image:" + cacheKey }

func rateLimitKey(client string) string { return "rate-limit:" + client }

func historyKey(tenant string) string { return "parse-history:" + tenant }

func ingestLockKey(tenant string) string { return "ingest-lock:" + tenant }

// ImageCacheKey names a processed image. The key is global, not
// tenant-scoped: identical source logos produce identical output.
func ImageCacheKey(channelID, kind string) string {
	return channelID + "_" + kind
}

// PlaceholderImageKey names a synthesised placeholder, versioned so a
// new generation invalidates older renders.
func PlaceholderImageKey(channelID, kind, version string) string {
	return channelID + "_" + kind + "_placeholder_" + version
}
