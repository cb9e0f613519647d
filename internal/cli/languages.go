package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"voxscribe/internal/language"
)

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the languages whisper understands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names := language.Names()
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				code := language.CodeOf(name)
				rows = append(rows, []string{code, language.DisplayName(code)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"CODE", "LANGUAGE"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}
