package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/ericfisherdev/storefront/internal/app"
	"github.com/ericfisherdev/storefront/internal/application"
	"github.com/ericfisherdev/storefront/internal/domain/model"
)

// AuthorizeURLCmd prints the consent URL an operator opens to start setup.
type AuthorizeURLCmd struct{}

// Run executes the command.
func (c *AuthorizeURLCmd) Run(rt *runtime) error {
	return rt.with(func(a *app.App) error {
		buf := make([]byte, 16)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generate state: %w", err)
		}
		fmt.Fprintln(rt.out, a.Credentials.AuthorizeURL(hex.EncodeToString(buf)))
		return nil
	})
}

// SetupCmd completes the authorization started from the consent URL.
type SetupCmd struct {
	Code string `arg:"" help:"Authorization code returned to the redirect URI"`
	Warm bool   `help:"Sync the catalog right after authorizing" default:"true" negatable:""`
}

// Run executes the command.
func (c *SetupCmd) Run(rt *runtime) error {
	return rt.with(func(a *app.App) error {
		cred, err := a.Credentials.Authorize(rt.ctx, c.Code)
		if err != nil {
			return err
		}
		fmt.Fprintf(rt.out, "authorized, access token valid until %s\n", cred.ExpiresAt().Format(time.RFC3339))

		if !c.Warm {
			return nil
		}
		result, err := a.Sync.Resync(rt.ctx, application.SyncModeMerge)
		if err != nil {
			return fmt.Errorf("initial sync: %w", err)
		}
		printSync(rt, result)
		return nil
	})
}

// SyncCmd forces a catalog sync.
type SyncCmd struct {
	Full bool `help:"Replace the snapshot instead of merging into it"`
}

// Run executes the command.
func (c *SyncCmd) Run(rt *runtime) error {
	mode := application.SyncModeMerge
	if c.Full {
		mode = application.SyncModeReplace
	}

	return rt.with(func(a *app.App) error {
		result, err := a.Sync.Resync(rt.ctx, mode)
		if err != nil {
			return err
		}
		printSync(rt, result)
		return nil
	})
}

// StatusCmd prints the stored state without contacting the upstream.
type StatusCmd struct{}

// Run executes the command.
func (c *StatusCmd) Run(rt *runtime) error {
	return rt.with(func(a *app.App) error {
		s := a.Status.Status(rt.ctx)

		w := tabwriter.NewWriter(rt.out, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "credential\tconfigured=%t\n", s.Credential.Configured)
		if s.Credential.Configured {
			fmt.Fprintf(w, "\tlast_refreshed=%s\n", s.Credential.LastRefreshedAt.Format(time.RFC3339))
			fmt.Fprintf(w, "\texpires_in=%s fresh=%t expired=%t\n",
				s.Credential.ExpiresIn.Round(time.Second), s.Credential.Fresh, s.Credential.Expired)
		}
		fmt.Fprintf(w, "snapshot\texists=%t\n", s.Snapshot.Exists)
		if s.Snapshot.Exists {
			fmt.Fprintf(w, "\tproducts=%d age=%s valid=%t\n",
				s.Snapshot.ProductCount, s.Snapshot.Age.Round(time.Second), s.Snapshot.Valid)
		}
		return w.Flush()
	})
}

// TaxCmd groups the tax table subcommands.
type TaxCmd struct {
	List   TaxListCmd   `cmd:"" help:"List a tax table"`
	Set    TaxSetCmd    `cmd:"" help:"Set one tax table entry"`
	Delete TaxDeleteCmd `cmd:"" help:"Delete one tax table entry"`
}

// TaxListCmd prints every entry of a table sorted by key.
type TaxListCmd struct {
	Table string `arg:"" enum:"ncm,ipi" help:"Table name (ncm or ipi)"`
}

// Run executes the command.
func (c *TaxListCmd) Run(rt *runtime) error {
	return rt.with(func(a *app.App) error {
		codes, err := a.Taxes.List(rt.ctx, model.TaxTable(c.Table))
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(codes))
		for k := range codes {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		w := tabwriter.NewWriter(rt.out, 0, 4, 2, ' ', 0)
		for _, k := range keys {
			fmt.Fprintf(w, "%s\t%s\n", k, codes[k])
		}
		return w.Flush()
	})
}

// TaxSetCmd upserts one entry.
type TaxSetCmd struct {
	Table string `arg:"" enum:"ncm,ipi" help:"Table name (ncm or ipi)"`
	Key   string `arg:"" help:"SKU for ncm, NCM code for ipi"`
	Value string `arg:"" help:"NCM code for ncm, rate in percent for ipi"`
}

// Run executes the command.
func (c *TaxSetCmd) Run(rt *runtime) error {
	return rt.with(func(a *app.App) error {
		return a.Taxes.SetMany(rt.ctx, model.TaxTable(c.Table), map[string]string{c.Key: c.Value})
	})
}

// TaxDeleteCmd removes one entry.
type TaxDeleteCmd struct {
	Table string `arg:"" enum:"ncm,ipi" help:"Table name (ncm or ipi)"`
	Key   string `arg:"" help:"Entry key"`
}

// Run executes the command.
func (c *TaxDeleteCmd) Run(rt *runtime) error {
	return rt.with(func(a *app.App) error {
		return a.Taxes.Delete(rt.ctx, model.TaxTable(c.Table), c.Key)
	})
}

// with opens the configured storage, runs fn and closes it again.
func (rt *runtime) with(fn func(a *app.App) error) (err error) {
	a, err := rt.open(rt.ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()
	return fn(a)
}

func printSync(rt *runtime, r *application.SyncResult) {
	fmt.Fprintf(rt.out, "sync %s: fetched=%d updated=%d added=%d total=%d partial=%t in %s\n",
		r.Mode, r.Fetched, r.Stats.Updated, r.Stats.Added, r.Stats.Total, r.Partial,
		r.Duration.Round(time.Millisecond))
}
