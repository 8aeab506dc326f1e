// Package config implements the command that shows or saves the effective settings.
package config

import (
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/remoteaudio/internal/conf"
	"github.com/tphakala/remoteaudio/internal/errors"
	"github.com/tphakala/remoteaudio/internal/logger"
)

// Command creates the config command.
func Command(settings *conf.Settings) *cobra.Command {
	var write string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: "Config prints the settings after the config file, environment and flags were applied. " +
			"With --write they are saved to a file instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if write != "" {
				if err := conf.SaveYAMLConfig(write, settings); err != nil {
					return err
				}
				GetLogger().Info("configuration saved", logger.String("path", write))
				return nil
			}
			return Print(cmd.OutOrStdout(), settings)
		},
	}

	cmd.Flags().StringVar(&write, "write", "", "Save the effective configuration to this file")

	return cmd
}

// Print writes settings to w as YAML.
func Print(w io.Writer, settings *conf.Settings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "encode-settings").
			Build()
	}
	return enc.Close()
}
