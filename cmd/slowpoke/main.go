// Command slowpoke runs the Telegram "slowpoke" bot and its maintenance
// commands.
//
//	slowpoke serve                 # bot + health/metrics/webhook/admin HTTP
//	slowpoke tenants               # list chats that have storage on disk
//	slowpoke sweep                 # run one retention pass and exit
//	slowpoke settings get <key>    # read a global setting
//	slowpoke settings set <k> <v>  # write a global setting
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/slowpoke-bot/internal/config"
	"github.com/tbourn/slowpoke-bot/internal/repo"
	"github.com/tbourn/slowpoke-bot/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type globalFlags struct {
	LogLevel     string
	ChatRoot     string
	SettingsPath string
	Pretty       bool
}

var (
	flags     globalFlags
	cfg       config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "slowpoke",
	Short:         "Telegram bot that calls out reposted forwards and links",
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cfg.LogLevel = sysutil.FirstNonEmpty(flags.LogLevel, cfg.LogLevel)
		cfg.ChatRoot = sysutil.FirstNonEmpty(flags.ChatRoot, cfg.ChatRoot)
		cfg.SettingsPath = sysutil.FirstNonEmpty(flags.SettingsPath, cfg.SettingsPath)
		if flags.Pretty {
			cfg.LogPretty = true
		}

		logCloser = sysutil.SetupLogger(sysutil.LogOptions{
			Level:   cfg.LogLevel,
			Pretty:  cfg.LogPretty,
			File:    cfg.LogFile,
			Service: cfg.OTEL.ServiceName,
		})
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	pf.StringVar(&flags.ChatRoot, "chat-root", "", "per-chat storage root (overrides CHAT_DATABASE_PATH)")
	pf.StringVar(&flags.SettingsPath, "settings-path", "", "settings database directory (overrides SETTINGS_DATABASE_PATH)")
	pf.BoolVar(&flags.Pretty, "pretty", false, "human-friendly console logs")

	rootCmd.AddCommand(serveCmd, tenantsCmd, sweepCmd, settingsCmd)
}

// openFactory builds the tenant store factory from the loaded config.
func openFactory() (*repo.Factory, error) {
	return repo.NewFactory(repo.FactoryOptions{
		Root:           cfg.ChatRoot,
		MaxConnections: cfg.MaxDBConnections,
		Retention:      cfg.MaxMessageAge,
		Tracing:        cfg.OTEL.Enabled,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("slowpoke failed")
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
