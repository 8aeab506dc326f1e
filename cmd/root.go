package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/remoteaudio/cmd/config"
	"github.com/tphakala/remoteaudio/cmd/devices"
	"github.com/tphakala/remoteaudio/cmd/peer"
	"github.com/tphakala/remoteaudio/cmd/play"
	"github.com/tphakala/remoteaudio/cmd/record"
	"github.com/tphakala/remoteaudio/cmd/serve"
	"github.com/tphakala/remoteaudio/internal/buildinfo"
	"github.com/tphakala/remoteaudio/internal/conf"
	"github.com/tphakala/remoteaudio/internal/logger"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings, info *buildinfo.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "remoteaudio",
		Short:         "Virtual audio devices paced by a software clock",
		Long:          "remoteaudio exposes one virtual output and one virtual input device. Streams run on a period clock, and a UDP heartbeat peer receives playback diagnostics.",
		Version:       info.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Fprintf(os.Stderr, "error setting up flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(
		devices.Command(settings),
		play.Command(settings),
		record.Command(settings),
		peer.Command(settings),
		serve.Command(settings, info),
		config.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := conf.ValidateSettings(settings); err != nil {
			return err
		}
		return initializeLogging(settings)
	}

	return rootCmd
}

// initializeLogging replaces the global logger once flags are applied.
func initializeLogging(settings *conf.Settings) error {
	cfg := settings.Logging
	if settings.Debug {
		cfg.DefaultLevel = "debug"
		if cfg.Console != nil {
			console := *cfg.Console
			console.Level = "debug"
			cfg.Console = &console
		}
	}
	cl, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}
	logger.SetGlobal(cl)
	return nil
}

// setupFlags defines flags that are global to the command line interface.
// Defaults come from the loaded settings so flags only override what is given.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	flags.IntVarP(&settings.Audio.SampleRate, "rate", "r", settings.Audio.SampleRate, "Stream sample rate in Hz")
	flags.StringVarP(&settings.Audio.Format, "format", "f", settings.Audio.Format, "Sample format, e.g. s16le, float32ne")
	flags.StringVarP(&settings.Audio.Layout, "layout", "l", settings.Audio.Layout, "Channel layout name, e.g. Mono, Stereo, 5.1")
	flags.Float64Var(&settings.Audio.Latency, "latency", settings.Audio.Latency, "Software latency in seconds, 0 for the device default")
	flags.BoolVar(&settings.Heartbeat.Enabled, "heartbeat", settings.Heartbeat.Enabled, "Listen for a heartbeat peer and send it diagnostics")
	flags.StringVar(&settings.Heartbeat.Listen, "heartbeat-listen", settings.Heartbeat.Listen, "Heartbeat listen address")
	flags.DurationVar(&settings.Heartbeat.DiagnosticInterval, "diagnostic-interval", settings.Heartbeat.DiagnosticInterval, "Minimum spacing of diagnostic datagrams, 0 for every period")

	for key, name := range map[string]string{
		"debug":                        "debug",
		"audio.samplerate":             "rate",
		"audio.format":                 "format",
		"audio.layout":                 "layout",
		"audio.latency":                "latency",
		"heartbeat.enabled":            "heartbeat",
		"heartbeat.listen":             "heartbeat-listen",
		"heartbeat.diagnosticinterval": "diagnostic-interval",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}

	return nil
}
