// Package cli implements the parceltrack command line client.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/parceltrack/internal/carrier"
	"github.com/noah-isme/parceltrack/internal/carrier/dpd"
	"github.com/noah-isme/parceltrack/internal/config"
	"github.com/noah-isme/parceltrack/internal/obs"
	"github.com/noah-isme/parceltrack/internal/transport"
)

// RegistryFunc builds the carrier registry a command talks to.
type RegistryFunc func(ctx context.Context) (*carrier.Registry, error)

// Options wires the command tree. Zero values fall back to stdout and a
// registry configured from the environment.
type Options struct {
	Out      io.Writer
	Registry RegistryFunc
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd(Options{}).Execute(); err != nil {
		os.Exit(1)
	}
}

type globals struct {
	pretty   bool
	logLevel string
	timeout  time.Duration
}

// NewRootCmd returns the parceltrack command tree.
func NewRootCmd(opts Options) *cobra.Command {
	g := &globals{}
	if opts.Registry == nil {
		opts.Registry = func(ctx context.Context) (*carrier.Registry, error) {
			return registryFromEnv(ctx, g)
		}
	}

	cmd := &cobra.Command{
		Use:          "parceltrack",
		Short:        "Track DPD and GLS parcels",
		SilenceUsage: true,
	}
	if opts.Out != nil {
		cmd.SetOut(opts.Out)
	}

	cmd.PersistentFlags().BoolVar(&g.pretty, "pretty", false, "indent JSON output")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level written to stderr")
	cmd.PersistentFlags().DurationVar(&g.timeout, "timeout", 30*time.Second, "overall lookup deadline")

	cmd.AddCommand(trackCmd(g, opts.Registry))
	cmd.AddCommand(barcodeCmd(g, opts.Registry))
	cmd.AddCommand(carriersCmd(g, opts.Registry))
	return cmd
}

// lookupContext bounds a lookup by --timeout and carries a stderr logger.
func (g *globals) lookupContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	logger := obs.NewLoggerTo(cmd.ErrOrStderr(), "console", g.logLevel)
	ctx := logger.WithContext(cmd.Context())
	if g.timeout > 0 {
		return context.WithTimeout(ctx, g.timeout)
	}
	return context.WithCancel(ctx)
}

func (g *globals) print(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if g.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func registryFromEnv(_ context.Context, g *globals) (*carrier.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	mapping, err := dpd.ParseContactMapping(cfg.ContactMapping)
	if err != nil {
		return nil, err
	}
	logger := obs.NewLoggerTo(os.Stderr, "console", g.logLevel)
	t, err := transport.New(transport.Options{
		Timeout:     cfg.CarrierTimeout,
		InsecureTLS: cfg.CarrierInsecureTLS,
		Breaker: transport.BreakerSettings{
			MinRequests:  cfg.BreakerMinRequests,
			FailureRatio: cfg.BreakerFailureRatio,
			OpenFor:      cfg.BreakerOpenFor,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	return carrier.NewRegistry(carrier.Options{
		Transport:      t,
		Zone:           cfg.Zone,
		DPDBaseURL:     cfg.DPDBaseURL,
		GLSBaseURL:     cfg.GLSBaseURL,
		GeocoderURL:    cfg.HereBaseURL,
		HereAppID:      cfg.HereAppID,
		HereAppCode:    cfg.HereAppCode,
		HereLayerID:    cfg.HereLayerID,
		ContactMapping: mapping,
	})
}
