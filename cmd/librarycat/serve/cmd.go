package serve

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v2"

	adapthttp "librarycat/internal/adapter/http"
	"librarycat/internal/app"
	"librarycat/internal/cmdflags"
	"librarycat/internal/db"
	"librarycat/internal/httpserver"
	"librarycat/internal/logutil"
)

func Cmd() *cli.Command {
	var (
		addr           string
		opts           db.Options
		ttl            time.Duration
		sweep          time.Duration
		scheme         string
		insecureCookie bool
		oidc           cmdflags.OIDC
	)
	flags := []cli.Flag{
		cmdflags.Addr(&addr),
		cmdflags.SessionTTL(&ttl),
		cmdflags.SessionSweep(&sweep),
		cmdflags.SessionCache(&opts),
		cmdflags.HashScheme(&scheme),
		cmdflags.InsecureCookie(&insecureCookie),
	}
	flags = append(flags, cmdflags.Storage(&opts)...)
	flags = append(flags, cmdflags.OIDCFlags(&oidc)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web application",
		Flags: flags,
		Action: func(ctx *cli.Context) error {
			log := logutil.GetOrDefault(ctx.Context)
			cmdflags.ApplySessionCacheDefault(ctx, &opts)

			hasher, err := app.NewPasswordHasher(scheme)
			if err != nil {
				return err
			}
			if opts.CacheLifeWindow > ttl {
				opts.CacheLifeWindow = ttl
			}

			store, err := db.Open(ctx.Context, opts)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					log.Error().Err(err).Msg("Closing store")
				}
			}()

			auth := app.NewAuthService(store.Users, store.Sessions,
				app.WithHasher(hasher),
				app.WithSessionTTL(ttl),
			)
			catalog := app.NewCatalogService(store.Books)

			serverOpts := []adapthttp.Option{adapthttp.WithLogger(log)}
			if insecureCookie {
				log.Warn().Msg("Cookies are sent without the Secure attribute")
				serverOpts = append(serverOpts, adapthttp.WithInsecureCookies())
			}
			if oidc.Issuer != "" {
				if oidc.ClientID == "" || oidc.RedirectURL == "" {
					return errors.New("oidc: client id and redirect url are required with an issuer")
				}
				provider, err := adapthttp.NewOIDCProvider(ctx.Context, adapthttp.OIDCConfig{
					Issuer:       oidc.Issuer,
					ClientID:     oidc.ClientID,
					ClientSecret: oidc.ClientSecret,
					RedirectURL:  oidc.RedirectURL,
				})
				if err != nil {
					return err
				}
				log.Info().Str("issuer", oidc.Issuer).Msg("Single sign-on enabled")
				serverOpts = append(serverOpts, adapthttp.WithSSO(provider))
			}

			if sweep > 0 {
				go sweepSessions(ctx.Context, auth, sweep)
			}

			accounts, err := store.Users.Count(ctx.Context)
			if err != nil {
				return err
			}
			log.Info().
				Str("driver", opts.Driver).
				Int("accounts", accounts).
				Str("hash_scheme", hasher.Scheme()).
				Dur("session_ttl", auth.SessionTTL()).
				Bool("session_cache", opts.CacheSessions).
				Msg("Starting librarycat")
			return httpserver.Serve(ctx.Context, addr, adapthttp.New(auth, catalog, serverOpts...).Handler())
		},
	}
}

// sweepSessions removes expired sessions every interval until ctx ends.
func sweepSessions(ctx context.Context, auth *app.AuthService, interval time.Duration) {
	log := logutil.GetOrDefault(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := auth.SweepExpired(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Session sweep failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("removed", n).Msg("Expired sessions swept")
			}
		}
	}
}
