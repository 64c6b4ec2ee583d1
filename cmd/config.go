package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samzong/aic/internal/config"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage aic configuration",
		Long:  `Manage aic configuration: API key, provider, model, language and prompt template.`,
	}

	configGetCmd = &cobra.Command{
		Use:   "get",
		Short: "Show the current configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			out := outWriter()
			fmt.Fprintln(out, "Current configuration:")
			fmt.Fprintf(out, "api_key: %s\n", config.MaskAPIKey(cfg.APIKey))
			fmt.Fprintf(out, "provider: %s\n", cfg.Provider)
			fmt.Fprintf(out, "model: %s\n", cfg.Model)
			fmt.Fprintf(out, "api_base: %s\n", valueOrUnset(cfg.APIBase))
			fmt.Fprintf(out, "timeout: %d\n", cfg.Timeout)
			fmt.Fprintf(out, "language: %s\n", cfg.Language)
			fmt.Fprintf(out, "prompt_template: %s\n", valueOrUnset(cfg.PromptTemplate))
			fmt.Fprintf(out, "log_file: %s\n", valueOrUnset(cfg.LogFile))
			return nil
		},
	}

	configSetCmd = &cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Set a configuration value",
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Keys,
		RunE: func(_ *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			if err := config.SetValue(path, args[0], args[1]); err != nil {
				return err
			}

			value := args[1]
			if args[0] == "api_key" {
				value = config.MaskAPIKey(value)
			}
			fmt.Fprintf(outWriter(), "Set %s to %s\n", args[0], value)
			return nil
		},
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(outWriter(), path)
			return nil
		},
	}
)

func valueOrUnset(s string) string {
	if s == "" {
		return "<not set>"
	}
	return s
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(configCmd)
}
