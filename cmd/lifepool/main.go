package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/lifepool/pkg/config"
	"github.com/ajitpratap0/lifepool/pkg/logger"
)

var version = "0.1.0"

// globalFlags are shared by every command.
type globalFlags struct {
	configFile string
	logLevel   string
}

func main() {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "lifepool",
		Short: "lifepool - bounded object pools with deferred destruction",
		Long: `lifepool manages bounded pools of reusable items. Items that are
released or evicted wait out a grace period during which they can be
rescued before a destroy callback tears them down.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Path to YAML configuration file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lifepool v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	root.AddCommand(newConfigCmd(flags))
	root.AddCommand(newDemoCmd(flags))
	root.AddCommand(newInspectCmd(flags))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := root.ExecuteContext(ctx)
	_ = logger.Sync()
	if err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and installs the global logger.
func setup(flags *globalFlags) (*config.Config, *zap.Logger, error) {
	cfg := config.Default()
	if flags.configFile != "" {
		if err := config.Load(flags.configFile, cfg); err != nil {
			return nil, nil, err
		}
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Component("lifepool-cli")

	cfg.Normalize(log)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
