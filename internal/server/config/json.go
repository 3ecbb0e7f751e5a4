package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/bountyboard/internal/flagx"
	"github.com/dmitrijs2005/bountyboard/internal/timex"
)

// JsonConfig is the on-disk shape of the server config file. Durations use
// timex.Duration so both "15s" and integer nanoseconds are accepted.
// Pointers distinguish "absent" from "zero" for the numeric fields.
type JsonConfig struct {
	HTTPAddr                string          `json:"http_addr"`
	GRPCHealthAddr          *string         `json:"grpc_health_addr"`
	DatabaseDSN             string          `json:"database_dsn"`
	SecretKey               string          `json:"secret_key"`
	SessionValidityDuration *timex.Duration `json:"session_validity_duration"`
	S3RootUser              string          `json:"s3_root_user"`
	S3RootPassword          string          `json:"s3_root_password"`
	S3Bucket                string          `json:"s3_bucket"`
	S3Region                string          `json:"s3_region"`
	S3BaseEndpoint          string          `json:"s3_base_endpoint"`
	S3PublicBaseURL         *string         `json:"s3_public_base_url"`
	RedisAddr               *string         `json:"redis_addr"`
	RedisPassword           *string         `json:"redis_password"`
	RedisDB                 *int            `json:"redis_db"`
	LeaderboardCacheTTL     *timex.Duration `json:"leaderboard_cache_ttl"`
	LeaderboardRefreshSpec  *string         `json:"leaderboard_refresh_spec"`
	CORSAllowedOrigins      []string        `json:"cors_allowed_origins"`
}

// parseJson overlays values from the JSON file named by -c/-config onto
// config. Fields missing from the file keep their current values. A file
// that cannot be read or parsed panics, like a bad flag does.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	// empty is meaningful for these (disables the feature)
	if c.GRPCHealthAddr != nil {
		config.GRPCHealthAddr = *c.GRPCHealthAddr
	}
	if c.S3PublicBaseURL != nil {
		config.S3PublicBaseURL = *c.S3PublicBaseURL
	}
	if c.RedisAddr != nil {
		config.RedisAddr = *c.RedisAddr
	}
	if c.RedisPassword != nil {
		config.RedisPassword = *c.RedisPassword
	}
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	if c.LeaderboardRefreshSpec != nil {
		config.LeaderboardRefreshSpec = *c.LeaderboardRefreshSpec
	}
	if c.SessionValidityDuration != nil {
		config.SessionValidityDuration = c.SessionValidityDuration.Duration
	}
	if c.LeaderboardCacheTTL != nil {
		config.LeaderboardCacheTTL = c.LeaderboardCacheTTL.Duration
	}
	if c.CORSAllowedOrigins != nil {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
