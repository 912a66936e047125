package migrate

import (
	"github.com/urfave/cli/v2"

	"librarycat/internal/cmdflags"
	"librarycat/internal/db"
	"librarycat/internal/logutil"
)

func Cmd() *cli.Command {
	var opts db.Options
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or upgrade the database schema and exit",
		Flags: cmdflags.Storage(&opts),
		Action: func(ctx *cli.Context) error {
			store, err := db.Open(ctx.Context, opts)
			if err != nil {
				return err
			}
			log := logutil.GetOrDefault(ctx.Context)
			log.Info().Str("driver", opts.Driver).Msg("Schema is up to date")
			return store.Close()
		},
	}
}
