package users

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"librarycat/internal/app"
	"librarycat/internal/cmdflags"
	"librarycat/internal/db"
	"librarycat/internal/domain"
	"librarycat/internal/logutil"
)

func Cmd() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage accounts",
		Subcommands: []*cli.Command{
			addCmd(),
		},
	}
}

func addCmd() *cli.Command {
	var opts db.Options
	var username, scheme string
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "username",
			Aliases:     []string{"u", "user"},
			Usage:       "Name of the account to create",
			Destination: &username,
			Required:    true,
		},
		cmdflags.HashScheme(&scheme),
	}
	return &cli.Command{
		Name:  "add",
		Usage: "Create an account (the password is prompted for, or read from the first line of stdin)",
		Flags: append(flags, cmdflags.Storage(&opts)...),
		Action: func(ctx *cli.Context) error {
			password, err := readPassword(os.Stdin, os.Stderr)
			if err != nil {
				return err
			}
			hasher, err := app.NewPasswordHasher(scheme)
			if err != nil {
				return err
			}

			store, err := db.Open(ctx.Context, opts)
			if err != nil {
				return err
			}
			defer store.Close()

			auth := app.NewAuthService(store.Users, store.Sessions, app.WithHasher(hasher))
			user, err := auth.Signup(ctx.Context, username, password)
			if errors.Is(err, domain.ErrDuplicateUsername) {
				return fmt.Errorf("user %q already exists", username)
			}
			if err != nil {
				return err
			}

			log := logutil.GetOrDefault(ctx.Context)
			log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("User created")
			return nil
		},
	}
}

// readPassword prompts twice on a terminal. Otherwise the first line of in
// is the password.
func readPassword(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return firstLine(in)
	}

	fmt.Fprint(prompt, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", err
	}
	fmt.Fprint(prompt, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	if len(first) == 0 {
		return "", errors.New("empty password")
	}
	return string(first), nil
}

func firstLine(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errors.New("missing password from stdin")
	}
	password := strings.TrimRight(sc.Text(), "\r")
	if len(password) == 0 {
		return "", errors.New("missing password from stdin")
	}
	return password, nil
}
