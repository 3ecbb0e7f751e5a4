package config

import (
	"flag"
	"strings"
	"time"

	"github.com/dmitrijs2005/bountyboard/internal/flagx"
)

var serverFlags = []string{
	"-a", "-m", "-d", "-s", "-t", "-u", "-p", "-b", "-g", "-e", "-i",
	"-redis", "-redis-password", "-redis-db",
	"-leaderboard-ttl", "-leaderboard-refresh", "-cors",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string    HTTP bind address (e.g., ":8080")
//	-m string    gRPC health bind address
//	-d string    PostgreSQL DSN
//	-s string    JWT HMAC secret key
//	-t int       session validity, minutes
//	-u string    S3 root user
//	-p string    S3 root password
//	-b string    S3 bucket name
//	-g string    S3 region
//	-e string    S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-i string    public base URL for stored images
//	-redis string, -redis-password string, -redis-db int
//	-leaderboard-ttl duration, -leaderboard-refresh string (cron spec)
//	-cors string comma-separated allowed origins
//
// Unknown arguments are filtered out first with flagx.FilterArgs so that
// -c/-config and flags of other components do not collide.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run HTTP API")
	fs.StringVar(&config.GRPCHealthAddr, "m", config.GRPCHealthAddr, "address and port of gRPC health endpoint")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionValidity := fs.Int("t", int(config.SessionValidityDuration.Minutes()), "session validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3PublicBaseURL, "i", config.S3PublicBaseURL, "public base URL of stored images")

	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address, empty disables cache")
	fs.StringVar(&config.RedisPassword, "redis-password", config.RedisPassword, "redis password")
	fs.IntVar(&config.RedisDB, "redis-db", config.RedisDB, "redis database number")

	fs.DurationVar(&config.LeaderboardCacheTTL, "leaderboard-ttl", config.LeaderboardCacheTTL, "leaderboard cache TTL")
	fs.StringVar(&config.LeaderboardRefreshSpec, "leaderboard-refresh", config.LeaderboardRefreshSpec, "leaderboard refresh cron spec")

	origins := fs.String("cors", strings.Join(config.CORSAllowedOrigins, ","), "comma-separated CORS origins")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionValidityDuration = time.Duration(*sessionValidity) * time.Minute
	config.CORSAllowedOrigins = splitOrigins(*origins)
}

func splitOrigins(s string) []string {
	out := []string{}
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
