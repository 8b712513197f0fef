// Package main is the entry point for the vancedhelper CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"vancedhelper/pkg/channels"
	"vancedhelper/pkg/channels/console"
	"vancedhelper/pkg/commands"
	"vancedhelper/pkg/config"
	"vancedhelper/pkg/help"
	"vancedhelper/pkg/history"
	"vancedhelper/pkg/logger"
	"vancedhelper/pkg/prefs"
	"vancedhelper/pkg/prompt"
	"vancedhelper/pkg/reminders"
	"vancedhelper/pkg/state"
	"vancedhelper/pkg/version"
	"vancedhelper/pkg/web"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "vancedhelper",
	Short: "vancedhelper - An interactive helper bot for chat platforms",
	Long: `vancedhelper is a chat helper bot built around interactive prompts.
It asks users questions, validates their answers, and walks them through
multi-step flows like reminders and preferences over Discord, Telegram,
or a local console session.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot with all configured channels",
	Long: `Run the bot in the foreground, connecting every channel enabled in
the configuration file.

Examples:
  # Run with the default config
  vancedhelper run

  # Run with a specific config file
  vancedhelper run -c /etc/vancedhelper/config.yaml`,
	Run: runBot,
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start a local console session",
	Long: `Start a local console session for trying commands and prompt flows
without connecting a chat platform. Remote channels stay disconnected.

Examples:
  # Open the console
  vancedhelper console

  # Then, inside the session
  !help
  !remind
  exit`,
	Run: runConsole,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetFullVersion())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(versionCmd)
}

// bootstrapEnv loads an optional .env file and propagates the --config
// flag to the loader through its environment variable.
func bootstrapEnv() {
	_ = godotenv.Load()

	if configPath != "" {
		os.Setenv(config.ConfigPathEnv, configPath)
	}
}

func provideZapLogger(log *logger.Logger) *zap.Logger {
	return log.Logger
}

// botApp assembles the full application. Extra options let callers
// adjust fx behavior, such as suppressing fx logs for service mode.
func botApp(extra ...fx.Option) *fx.App {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		state.Module,
		history.Module,
		prompt.Module,
		help.Module,
		prefs.Module,
		reminders.Module,
		commands.Module,
		channels.Module,
		web.Module,

		fx.Provide(provideZapLogger),
		fx.Provide(config.ProvideWatcher),
		fx.Invoke(registerConfigReload),
		fx.Invoke(logStartup),
	}

	return fx.New(append(opts, extra...)...)
}

func logStartup(lc fx.Lifecycle, log *logger.Logger, cfg *config.Config, manager *channels.Manager) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			enabled := manager.GetEnabledChannels()
			if len(enabled) > 0 {
				names := make([]string, len(enabled))
				for i, ch := range enabled {
					names[i] = ch.Name()
				}
				log.Info("active channels", zap.Strings("channels", names))
			} else {
				log.Warn("no channels enabled")
			}

			if cfg.Web.Enabled {
				log.Info("status endpoint available",
					zap.String("host", cfg.Web.Host),
					zap.Int("port", cfg.Web.Port))
			}

			log.Info("press Ctrl+C to stop")
			return nil
		},
	})
}

// runBot runs the bot in the foreground until interrupted.
func runBot(cmd *cobra.Command, args []string) {
	bootstrapEnv()

	app := botApp()
	app.Run()
}

// runConsole starts a local console session. The remote channels are
// forced off so the session never touches Discord or Telegram.
func runConsole(cmd *cobra.Command, args []string) {
	bootstrapEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	app := fx.New(
		config.Module,
		// Invokes run in option order, so the override lands before
		// channel registration.
		fx.Invoke(applyConsoleOverrides),
		logger.Module,
		state.Module,
		history.Module,
		prompt.Module,
		help.Module,
		prefs.Module,
		reminders.Module,
		commands.Module,
		channels.Module,

		fx.Invoke(func(lc fx.Lifecycle, manager *channels.Manager) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					ch, err := manager.GetChannel("console")
					if err != nil {
						return fmt.Errorf("console channel missing: %w", err)
					}
					cch, ok := ch.(*console.Channel)
					if !ok {
						return fmt.Errorf("unexpected console channel type %T", ch)
					}

					go func() {
						defer cancel()
						select {
						case <-cch.Done():
						case <-ctx.Done():
						}
					}()
					return nil
				},
			})
		}),
		fx.NopLogger, // Suppress fx logs
	)

	if err := app.Start(ctx); err != nil {
		fmt.Printf("Error starting console session: %v\n", err)
		os.Exit(1)
	}

	<-ctx.Done()

	stopCtx := context.Background()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Printf("Error stopping console session: %v\n", err)
	}
}

// applyConsoleOverrides restricts the session to the console channel.
func applyConsoleOverrides(cfg *config.Config) {
	cfg.Channels.Discord.Enabled = false
	cfg.Channels.Telegram.Enabled = false
	cfg.Channels.Console.Enabled = true
	cfg.Web.Enabled = false
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
