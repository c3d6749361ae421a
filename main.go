package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

// options holds the command line flags
type options struct {
	configPath      string
	retroarchConfig string
	backend         string
	cecClient       string
	verbosity       int
}

// exitCode is set by the root command and used by main
var exitCode int

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           AppName,
		Short:         "Turn HDMI-CEC remote buttons into keyboard input",
		Long:          `cec-input runs cec-client and presses the keys configured in retroarch.cfg when remote control buttons are used.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := runBridge(cmd, opts)
			exitCode = code
			return err
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", DefaultConfigPath, "Path to the cec-input config file (.yaml or .toml)")
	flags.StringVar(&opts.retroarchConfig, "retroarch-config", "", "Path to retroarch.cfg")
	flags.StringVar(&opts.backend, "backend", "", "Input backend: keybd or evdev")
	flags.StringVar(&opts.cecClient, "cec-client", "", "cec-client executable")
	flags.CountVarP(&opts.verbosity, "verbose", "v", "Enable info messages (-v) or info and debug messages (-vv)")

	rootCmd.AddCommand(newCheckCmd(opts), newKeysCmd())
	return rootCmd
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Resolve the retroarch.cfg key bindings without starting cec-client",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadOptions(cmd, opts)
			if err != nil {
				return reportFatal(cmd.ErrOrStderr(), err)
			}

			catalog := DefaultKeyCatalog()
			bindings, err := LoadBindings(config.RetroArchConfig, catalog)
			if err != nil {
				return reportFatal(cmd.ErrOrStderr(), err)
			}

			writeBindings(cmd.OutOrStdout(), bindings, catalog)
			return nil
		},
	}
}

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the key names supported in retroarch.cfg",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range DefaultKeyCatalog().Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

// loadOptions loads the config file and applies the command line overrides
func loadOptions(cmd *cobra.Command, opts *options) (*Config, error) {
	explicit := cmd.Flags().Changed("config")
	config, err := LoadConfig(opts.configPath, explicit)
	if err != nil {
		return nil, err
	}

	if opts.retroarchConfig != "" {
		config.RetroArchConfig = opts.retroarchConfig
	}
	if opts.backend != "" {
		config.Input.Backend = opts.backend
	}
	if opts.cecClient != "" {
		config.CECClient.Command = opts.cecClient
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func runBridge(cmd *cobra.Command, opts *options) (int, error) {
	config, err := loadOptions(cmd, opts)
	if err != nil {
		return 1, reportFatal(cmd.ErrOrStderr(), err)
	}

	logManager := NewLogManager(cmd.ErrOrStderr(), LogLevelForVerbosity(opts.verbosity), config.Logging.Directory)
	defer logManager.Close()
	notificationManager := NewNotificationManager(config, logManager)

	if config.SingleInstance {
		instance := NewSingleInstance("", AppName)
		if err := instance.Lock(); err != nil {
			logManager.LogError("Cannot start", err)
			notificationManager.NotifyError(err.Error())
			return 1, err
		}
		defer instance.Release()
	}

	catalog := DefaultKeyCatalog()
	bindings, err := LoadBindings(config.RetroArchConfig, catalog)
	if err != nil {
		logManager.LogError("Failed to resolve retroarch.cfg bindings", err, "path", config.RetroArchConfig)
		notificationManager.NotifyError("Unsupported keys in retroarch.cfg, see the log for details.")
		return 1, err
	}
	logManager.LogDebug("Resolved bindings", "bindings", fmt.Sprintf("%v", bindings))

	logManager.LogDebug("Registering device...")
	sink, err := NewInputSink(config, catalog, logManager)
	if err != nil {
		logManager.LogError("Failed to register input device", err)
		notificationManager.NotifyError(err.Error())
		return 1, err
	}
	defer sink.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	powerOn := secondsToDuration(config.Startup.PowerOnDelay)
	activeSource := secondsToDuration(config.Startup.ActiveSourceDelay)
	svc := NewService(
		config,
		NewTranslator(catalog),
		bindings,
		sink,
		NewSupervisor(logManager, secondsToDuration(config.CECClient.ShutdownGrace)),
		DefaultStartupScript(clockwork.NewRealClock(), powerOn, activeSource),
		logManager,
		NewStatusManager(logManager),
	)

	code, err := svc.Run(ctx)
	if err != nil {
		var launchErr *LaunchError
		if errors.As(err, &launchErr) {
			notificationManager.NotifyError(launchErr.Error())
		}
		return 1, err
	}
	return code, nil
}

// reportFatal prints a startup error before any logger is configured
func reportFatal(w io.Writer, err error) error {
	fmt.Fprintf(w, "Error: %v\n", err)
	return err
}

func writeBindings(w io.Writer, bindings Bindings, catalog *KeyCatalog) {
	actions := make([]string, 0, len(bindings))
	for action := range bindings {
		actions = append(actions, action)
	}
	sort.Strings(actions)

	for _, action := range actions {
		code := bindings[action]
		fmt.Fprintf(w, "%s = %s (%d)\n", action, catalog.NameOf(code), code)
	}
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
