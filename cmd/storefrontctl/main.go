package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/jonboulle/clockwork"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/storefront/internal/app"
	"github.com/ericfisherdev/storefront/internal/config"
)

const (
	cliName        = "storefrontctl"
	cliDescription = "Operates the storefront catalog service against its configured storage"
)

// CLI represents command structure
type CLI struct {
	// Debug is a debug logging mode flag
	Debug bool `help:"Debug logging" short:"d"`

	AuthorizeURL AuthorizeURLCmd `cmd:"" name:"authorize-url" help:"Print the upstream consent URL"`
	Setup        SetupCmd        `cmd:"" help:"Exchange an authorization code for the shared credential"`
	Sync         SyncCmd         `cmd:"" help:"Sync the catalog snapshot now"`
	Status       StatusCmd       `cmd:"" help:"Show credential, snapshot and last sync state"`
	Tax          TaxCmd          `cmd:"" help:"Manage the NCM and IPI tax tables"`
	Health       HealthCmd       `cmd:"" help:"Probe a running server's health endpoint"`
}

// runtime is bound into every command's Run method.
type runtime struct {
	ctx  context.Context
	out  io.Writer
	open func(context.Context) (*app.App, error)
}

func main() {
	var cli CLI
	kctx := kong.Parse(
		&cli,
		kong.UsageOnError(),
		kong.Name(cliName),
		kong.Description(cliDescription),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := &runtime{
		ctx: ctx,
		out: os.Stdout,
		open: func(ctx context.Context) (*app.App, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			if cli.Debug {
				cfg.LogLevel = slog.LevelDebug
			}
			slog.SetDefault(app.NewLogger(os.Stderr, cfg))
			return app.New(ctx, cfg, clockwork.NewRealClock())
		},
	}

	// See respective commands Run() methods
	err := kctx.Run(rt)
	stop()
	kctx.FatalIfErrorf(err)
}
