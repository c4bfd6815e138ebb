// Package cli provides the cobra command tree of the connect binary.
//
// Every connector is a command group (connect notion ..., connect stripe ...)
// sharing the same profile, config and auth subcommands. Services are built
// in the root command's PersistentPreRunE so that --config-dir can relocate
// all local state.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/connect-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/connect-cli/internal/connectors/rest"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driven"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driving"
	"github.com/custodia-labs/connect-cli/internal/core/services"
	"github.com/custodia-labs/connect-cli/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Persistent flags.
var (
	formatFlag    string
	profileFlag   string
	configDirFlag string
	verboseFlag   bool
)

// Services shared by every command, built by initServices.
var (
	profileStore    driven.ProfileStore
	profileService  driving.ProfileService
	settingsService *services.SettingsService
	registry        driving.ConnectorRegistry
	credentials     driving.CredentialResolver
	metricsRegistry *prometheus.Registry
	httpMetrics     *rest.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "connect",
	Short: "Command-line clients for SaaS APIs",
	Long: `connect talks to Notion, Meta Ads, Stripe, Cloudflare, Mixpanel and
Google Drive from the terminal.

Each connector keeps named profiles under ~/.connect/<connector>/profiles.
Credentials come from the selected profile, overridden by environment
variables such as NOTION_API_KEY or STRIPE_API_KEY.

Examples:
  connect notion auth login
  connect notion search "roadmap"
  connect stripe customers list --limit 5 -f table
  connect -p staging cloudflare zones list`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: persistentPreRun,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&formatFlag, "format", "f", "", "output format: json, yaml, table or pretty")
	flags.StringVarP(&profileFlag, "profile", "p", "", "profile to use (default: the connector's current profile)")
	flags.StringVar(&configDirFlag, "config-dir", "", "configuration root (default ~/.connect)")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "log HTTP traffic and token refreshes")
}

func persistentPreRun(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verboseFlag)
	if f := os.Getenv(logger.FormatEnv); f != "" {
		if err := logger.SetFormat(logger.Format(f)); err != nil {
			return fmt.Errorf("%s: %w", logger.FormatEnv, err)
		}
	}
	if formatFlag != "" && !validFormat(formatFlag) {
		return fmt.Errorf("unknown output format %q (want json, yaml, table or pretty)", formatFlag)
	}
	return initServices(configDirFlag)
}

// initServices wires the stores and services rooted at configDir.
func initServices(configDir string) error {
	if configDir == "" {
		root, err := file.DefaultRoot()
		if err != nil {
			return err
		}
		configDir = root
	}

	store, err := file.NewProfileStore(configDir)
	if err != nil {
		return fmt.Errorf("opening profile store: %w", err)
	}
	settingsStore, err := file.NewSettingsStore(configDir)
	if err != nil {
		return fmt.Errorf("opening settings: %w", err)
	}

	registry = services.NewConnectorRegistry()
	profileStore = store
	profileService = services.NewProfileService(store, registry)
	settingsService = services.NewSettingsService(settingsStore)
	credentials = services.NewCredentialResolver()

	metricsRegistry = prometheus.NewRegistry()
	httpMetrics = rest.NewMetrics(metricsRegistry)

	logger.Debug("config root: %s", configDir)
	return nil
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// requireServices guards commands run without PersistentPreRunE.
func requireServices() error {
	if profileService == nil || settingsService == nil {
		return errors.New("services not configured")
	}
	return nil
}
