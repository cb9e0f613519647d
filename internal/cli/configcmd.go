package cli

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"voxscribe/internal/config"
)

func newConfigCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a documented sample config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.CreateSample(app.cfgPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", app.cfgPath)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.showConfig(cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			suffix := ""
			if !app.cfgExists {
				suffix = " (not created yet; run `voxscribe config init`)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", app.cfgPath, suffix)
			return nil
		},
	})

	return cmd
}

func (a *appState) showConfig(cmd *cobra.Command) error {
	shown := *a.configuration()
	if shown.OpenAI.APIKey != "" {
		shown.OpenAI.APIKey = "(set)"
	}
	encoded, err := toml.Marshal(shown)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s", encoded)
	return nil
}
