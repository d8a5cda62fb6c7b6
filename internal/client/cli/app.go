// Package cli implements the srpkeeper command line: register, login, and
// the commands that work on the cached login.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"io"

	"github.com/dmitrijs2005/srpkeeper/internal/client/client"
	"github.com/dmitrijs2005/srpkeeper/internal/client/config"
	"github.com/dmitrijs2005/srpkeeper/internal/client/services"
	"github.com/dmitrijs2005/srpkeeper/internal/logging"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	logger      logging.Logger
	db          *sql.DB
	reader      *bufio.Reader
	out         io.Writer
}

// NewApp returns an App that connects lazily, once the flags are parsed.
func NewApp() *App {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return &App{config: cfg, logger: logging.Nop{}}
}

// open wires the auth service from the resolved config. A service set
// beforehand is kept.
func (a *App) open(ctx context.Context, in io.Reader, out, errOut io.Writer) error {
	a.reader = bufio.NewReader(in)
	a.out = out

	logger, err := logging.NewJSON(errOut, a.config.LogLevel)
	if err != nil {
		return err
	}
	a.logger = logger

	if a.authService != nil {
		return nil
	}

	db, err := client.InitDatabase(ctx, a.config.DatabasePath)
	if err != nil {
		return err
	}
	a.db = db

	api := client.NewHTTPClient(a.config.ServerURL,
		client.WithRetries(a.config.Retries, client.DefaultRetryBase),
		client.WithTimeout(a.config.RequestTimeout),
	)
	a.authService = services.NewAuthService(api, db)
	return nil
}

func (a *App) close(ctx context.Context) error {
	if a.authService != nil {
		_ = a.authService.Close(ctx)
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
