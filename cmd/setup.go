package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samzong/aic/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure API key, provider and model",
	Long: `Run the interactive setup again. Current values are offered as defaults ` +
		`and the model list is fetched from the provider.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}

		base, err := config.Load(path)
		if err != nil {
			if !errors.Is(err, config.ErrConfigNotFound) {
				logger.Warn().Err(err).Msg("ignoring unreadable configuration")
			}
			base = nil
		}

		if _, err := runSetup(cmd.Context(), path, base); err != nil {
			return err
		}
		fmt.Fprintf(outWriter(), "Configuration written to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
