package config

import "os"

// parseEnv overlays secrets and deployment toggles from the environment.
// These intentionally have no flag equivalents so they never show up in
// process listings.
func parseEnv(config *Config) {
	if v, ok := os.LookupEnv("GATEWAY_FALLBACK_EMAIL"); ok {
		config.FallbackEmail = v
	}
	if v, ok := os.LookupEnv("GATEWAY_SCHEMA_MODE"); ok {
		config.SchemaMode = v
	}
	if v, ok := os.LookupEnv("GATEWAY_SEAL_SECRET"); ok {
		config.SealSecret = v
	}
	if v, ok := os.LookupEnv("GATEWAY_PHOTO_ADMIN_KEY"); ok {
		config.PhotoAdminKey = v
	}
	if v, ok := os.LookupEnv("GATEWAY_REQUIRED_SCOPE"); ok {
		config.RequiredScope = v
	}
}
