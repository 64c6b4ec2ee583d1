package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samzong/aic/internal/config"
	"github.com/samzong/aic/internal/llm"
	"github.com/samzong/aic/internal/ui"
)

var listModels = llm.ListModels

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models available to your API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		sp := ui.NewSpinnerTo(errWriter(), "Fetching available models...")
		sp.Start()
		models, err := listModels(cmd.Context(), llmOptions(cfg))
		sp.Stop()
		if err != nil {
			return fmt.Errorf("failed to list models: %w", err)
		}

		out := outWriter()
		for _, m := range models {
			if m == cfg.Model {
				fmt.Fprintf(out, "%s (current)\n", m)
				continue
			}
			fmt.Fprintln(out, m)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
