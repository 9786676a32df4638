package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/akarpov87/identity-gateway/internal/flagx"
	"github.com/akarpov87/identity-gateway/internal/timex"
)

// JsonConfig is the intermediate DTO for reading JSON configuration files.
// Interval fields use timex.Duration so the file can carry either "10m" or
// integer nanoseconds. Only fields present in the file override defaults.
type JsonConfig struct {
	EndpointAddrHTTP string `json:"endpoint_addr_http"`
	DatabaseDSN      string `json:"database_dsn"`

	JWKSURL         string         `json:"jwks_url"`
	Audience        string         `json:"audience"`
	AssertionHeader string         `json:"assertion_header"`
	KeyCacheTTL     timex.Duration `json:"key_cache_ttl"`
	RequiredScope   string         `json:"required_scope"`
	FallbackEmail   string         `json:"fallback_email"`

	SchemaMode string `json:"schema_mode"`
	SealSecret string `json:"seal_secret"`

	MongoURI        string `json:"mongo_uri"`
	MongoDatabase   string `json:"mongo_database"`
	MongoCollection string `json:"mongo_collection"`

	Neo4jURI      string `json:"neo4j_uri"`
	Neo4jUser     string `json:"neo4j_user"`
	Neo4jPassword string `json:"neo4j_password"`

	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`

	PhotoAPIBaseURL string `json:"photo_api_base_url"`
	PhotoAdminKey   string `json:"photo_admin_key"`

	ProvisionTimeout     timex.Duration `json:"provision_timeout"`
	ProvisionMaxInFlight int            `json:"provision_max_in_flight"`
}

// parseJson loads configuration values from the JSON file named by the
// -c or -config flags. When neither flag is set, nothing is loaded. An
// unreadable or invalid file panics, matching flag-parse behaviour.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	overlay(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.JWKSURL, c.JWKSURL)
	overlay(&config.Audience, c.Audience)
	overlay(&config.AssertionHeader, c.AssertionHeader)
	overlay(&config.RequiredScope, c.RequiredScope)
	overlay(&config.FallbackEmail, c.FallbackEmail)
	overlay(&config.SchemaMode, c.SchemaMode)
	overlay(&config.SealSecret, c.SealSecret)
	overlay(&config.MongoURI, c.MongoURI)
	overlay(&config.MongoDatabase, c.MongoDatabase)
	overlay(&config.MongoCollection, c.MongoCollection)
	overlay(&config.Neo4jURI, c.Neo4jURI)
	overlay(&config.Neo4jUser, c.Neo4jUser)
	overlay(&config.Neo4jPassword, c.Neo4jPassword)
	overlay(&config.S3RootUser, c.S3RootUser)
	overlay(&config.S3RootPassword, c.S3RootPassword)
	overlay(&config.S3Bucket, c.S3Bucket)
	overlay(&config.S3Region, c.S3Region)
	overlay(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	overlay(&config.PhotoAPIBaseURL, c.PhotoAPIBaseURL)
	overlay(&config.PhotoAdminKey, c.PhotoAdminKey)

	if c.KeyCacheTTL.Duration != 0 {
		config.KeyCacheTTL = time.Duration(c.KeyCacheTTL.Duration)
	}
	if c.ProvisionTimeout.Duration != 0 {
		config.ProvisionTimeout = time.Duration(c.ProvisionTimeout.Duration)
	}
	if c.ProvisionMaxInFlight != 0 {
		config.ProvisionMaxInFlight = c.ProvisionMaxInFlight
	}
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
