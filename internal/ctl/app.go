// Package ctl implements bountyctl, the operator tool that applies database
// migrations and creates accounts without going through the HTTP API.
package ctl

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dmitrijs2005/bountyboard/internal/common"
	"github.com/dmitrijs2005/bountyboard/internal/logging"
	"github.com/dmitrijs2005/bountyboard/internal/server/config"
	"github.com/dmitrijs2005/bountyboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bountyboard/internal/server/services"
)

const usage = `usage: bountyctl [-c config.json] [-d dsn] <command> [flags]

commands:
  migrate                      apply database migrations
  adduser -u <name> -e <email> create an account (password is prompted)
`

var ErrUsage = errors.New("invalid usage")

type Migrator interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
}

type Registrar interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.Session, error)
}

type App struct {
	db       *sql.DB
	migrator Migrator
	users    Registrar
	reader   *bufio.Reader
	out      io.Writer
}

// NewApp opens the database named by cfg.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	logger := logging.NewJSONLogger(os.Stderr, slog.LevelWarn)

	return &App{
		db:       db,
		migrator: rm,
		users:    services.NewUserService(db, rm, nil, cfg, logger),
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}, nil
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Run executes one command. args start with the command name.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return ErrUsage
	}

	switch args[0] {
	case "migrate":
		return a.migrate(ctx)
	case "adduser":
		return a.addUser(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

func (a *App) migrate(ctx context.Context) error {
	if err := a.migrator.RunMigrations(ctx, a.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}
	fmt.Fprintln(a.out, "Migrations applied")
	return nil
}

func (a *App) addUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(a.out)
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	var err error
	if *username == "" {
		if *username, err = GetSimpleText(a.reader, "Enter username", a.out); err != nil {
			return err
		}
	}
	if *email == "" {
		if *email, err = GetSimpleText(a.reader, "Enter email", a.out); err != nil {
			return err
		}
	}

	password, err := GetPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	confirm, err := GetPassword("Repeat password", a.out)
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	s, err := a.users.Register(ctx, services.RegisterInput{Username: *username, Email: *email, Password: password})
	if err != nil {
		var verr *common.ValidationError
		if errors.As(err, &verr) {
			for field, msg := range verr.Fields {
				fmt.Fprintf(a.out, "  %s: %s\n", field, msg)
			}
		}
		return err
	}

	fmt.Fprintf(a.out, "User %s created (id=%s)\n", s.Username, s.UserID)
	return nil
}

// SplitArgs separates the global flags from the command and its arguments.
// Every global flag takes a value, either "-x v" or "-x=v".
func SplitArgs(args []string) (global, command []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "-") {
			return args[:i], args[i:]
		}
		if !strings.Contains(a, "=") && i+1 < len(args) {
			i++
		}
	}
	return args, nil
}
