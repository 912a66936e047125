// Package cmdflags holds the command line flags shared by several commands.
// Every flag can also be set through the environment variable it names.
package cmdflags

import (
	"time"

	"github.com/urfave/cli/v2"

	"librarycat/internal/adapter/cache"
	"librarycat/internal/app"
	"librarycat/internal/db"
	"librarycat/internal/logutil"
)

func Addr(out *string) cli.Flag {
	if *out == "" {
		*out = ":8080"
	}
	return &cli.StringFlag{
		Name:        "addr",
		Usage:       "Address to bind the HTTP server to",
		EnvVars:     []string{"ADDR"},
		Value:       *out,
		Destination: out,
	}
}

// Storage returns the flags that select and configure the database.
func Storage(opts *db.Options) []cli.Flag {
	if opts.Driver == "" {
		opts.Driver = db.DriverSQLite
	}
	if opts.DSN == "" {
		opts.DSN = "library.db"
	}
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "db-driver",
			Usage:       "Storage backend: sqlite, postgres or memory",
			EnvVars:     []string{"DB_DRIVER"},
			Value:       opts.Driver,
			Destination: &opts.Driver,
		},
		&cli.StringFlag{
			Name:        "database-url",
			Aliases:     []string{"db"},
			Usage:       "SQLite file path or PostgreSQL connection string",
			EnvVars:     []string{"DATABASE_URL"},
			Value:       opts.DSN,
			Destination: &opts.DSN,
		},
	}
}

// SessionCache toggles the in-process session cache. Its default depends on
// the driver; see ApplySessionCacheDefault.
func SessionCache(opts *db.Options) cli.Flag {
	opts.CacheLifeWindow = cache.DefaultLifeWindow
	return &cli.BoolFlag{
		Name:        "session-cache",
		Usage:       "Cache session lookups in memory (default: on for sqlite and memory, off for postgres)",
		EnvVars:     []string{"SESSION_CACHE"},
		Destination: &opts.CacheSessions,
	}
}

// ApplySessionCacheDefault enables the cache for single-instance backends
// unless --session-cache or SESSION_CACHE was given.
func ApplySessionCacheDefault(ctx *cli.Context, opts *db.Options) {
	if !ctx.IsSet("session-cache") {
		opts.CacheSessions = db.SingleInstance(opts.Driver)
	}
}

func SessionTTL(out *time.Duration) cli.Flag {
	if *out == 0 {
		*out = app.DefaultSessionTTL
	}
	return &cli.DurationFlag{
		Name:        "session-ttl",
		Usage:       "Lifetime of a login session",
		EnvVars:     []string{"SESSION_TTL"},
		Value:       *out,
		Destination: out,
	}
}

func SessionSweep(out *time.Duration) cli.Flag {
	if *out == 0 {
		*out = 10 * time.Minute
	}
	return &cli.DurationFlag{
		Name:        "session-sweep",
		Usage:       "Interval between expired session sweeps (0 disables)",
		EnvVars:     []string{"SESSION_SWEEP"},
		Value:       *out,
		Destination: out,
	}
}

func HashScheme(out *string) cli.Flag {
	if *out == "" {
		*out = app.SchemePBKDF2
	}
	return &cli.StringFlag{
		Name:        "hash-scheme",
		Usage:       "Scheme for new password hashes: pbkdf2, scrypt, argon2id or bcrypt",
		EnvVars:     []string{"HASH_SCHEME"},
		Value:       *out,
		Destination: out,
	}
}

func InsecureCookie(out *bool) cli.Flag {
	return &cli.BoolFlag{
		Name:        "insecure-cookie",
		Usage:       "Send cookies without the Secure attribute (plain HTTP development only)",
		EnvVars:     []string{"INSECURE_COOKIE"},
		Value:       *out,
		Destination: out,
	}
}

// Logging returns the log level and format flags.
func Logging(level, format *string) []cli.Flag {
	if *level == "" {
		*level = "info"
	}
	if *format == "" {
		*format = logutil.FormatJSON
	}
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Minimum level to log: trace, debug, info, warn or error",
			EnvVars:     []string{"LOG_LEVEL"},
			Value:       *level,
			Destination: level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log output format: json or console",
			EnvVars:     []string{"LOG_FORMAT"},
			Value:       *format,
			Destination: format,
		},
	}
}

// OIDC holds the single sign-on settings. An empty Issuer disables SSO.
type OIDC struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func OIDCFlags(out *OIDC) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "oidc-issuer",
			Usage:       "OpenID Connect issuer URL; enables single sign-on",
			EnvVars:     []string{"OIDC_ISSUER"},
			Destination: &out.Issuer,
		},
		&cli.StringFlag{
			Name:        "oidc-client-id",
			EnvVars:     []string{"OIDC_CLIENT_ID"},
			Destination: &out.ClientID,
		},
		&cli.StringFlag{
			Name:        "oidc-client-secret",
			Usage:       "Client secret; prefer the environment variable over the flag",
			EnvVars:     []string{"OIDC_CLIENT_SECRET"},
			Destination: &out.ClientSecret,
		},
		&cli.StringFlag{
			Name:        "oidc-redirect-url",
			Usage:       "Callback URL registered with the issuer (ends in /auth/sso/callback)",
			EnvVars:     []string{"OIDC_REDIRECT_URL"},
			Destination: &out.RedirectURL,
		},
	}
}
