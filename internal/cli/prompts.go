package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voxscribe/internal/prompts"
)

func newPromptsCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Manage saved initial-prompt profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.listPrompts(cmd)
		},
	}

	var addText string
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Save a new prompt profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.addPromptProfile(cmd, args[0], addText)
		},
	}
	addCmd.Flags().StringVar(&addText, "prompt", "", "Prompt text to save")
	_ = addCmd.MarkFlagRequired("prompt")

	var editText, renameTo string
	editCmd := &cobra.Command{
		Use:   "edit <name>",
		Short: "Change a profile's prompt text or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.editPromptProfile(cmd, args[0], renameTo, editText)
		},
	}
	editCmd.Flags().StringVar(&editText, "prompt", "", "New prompt text")
	editCmd.Flags().StringVar(&renameTo, "rename", "", "New profile name")

	deleteCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a prompt profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.deletePromptProfile(cmd, args[0])
		},
	}

	cmd.AddCommand(addCmd, editCmd, deleteCmd)
	return cmd
}

func (a *appState) listPrompts(cmd *cobra.Command) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	profiles, err := prompts.NewManager(st).List(cmd.Context())
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), `no prompt profiles saved; add one with voxscribe prompts add <name> --prompt "..."`)
		return nil
	}

	rows := make([][]string, 0, len(profiles))
	for i := range profiles {
		profile := &profiles[i]
		tokens := "?"
		if estimate, err := prompts.Estimate(profile.Prompt); err == nil {
			tokens = strconv.Itoa(estimate)
			if prompts.OverBudget(estimate) {
				tokens = fmt.Sprintf("%d (budget %d)", estimate, prompts.TokenBudget)
			}
		}
		rows = append(rows, []string{
			profile.Name,
			tokens,
			profile.UpdatedAt.Local().Format("2006-01-02 15:04"),
			truncate(profile.Prompt, 60),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"NAME", "TOKENS", "UPDATED", "PROMPT"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
	))
	return nil
}

func (a *appState) addPromptProfile(cmd *cobra.Command, name, text string) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	profile, err := prompts.NewManager(st).Add(cmd.Context(), name, text)
	if err != nil {
		return err
	}
	if tokens, err := prompts.Estimate(profile.Prompt); err == nil && prompts.OverBudget(tokens) {
		a.log().Warn("prompt exceeds the engine's context budget; its start will be dropped at transcription time",
			zap.Int("tokens", tokens),
			zap.Int("budget", prompts.TokenBudget))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved profile %q\n", profile.Name)
	return nil
}

func (a *appState) editPromptProfile(cmd *cobra.Command, name, rename, text string) error {
	if text == "" && rename == "" {
		return errors.New("nothing to change: pass --prompt, --rename, or both")
	}
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	mgr := prompts.NewManager(st)
	if text == "" {
		// Rename only: keep the saved prompt text.
		if text, err = mgr.Resolve(cmd.Context(), name); err != nil {
			return err
		}
	}
	if err := mgr.Edit(cmd.Context(), name, rename, text); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "updated profile %q\n", name)
	return nil
}

func (a *appState) deletePromptProfile(cmd *cobra.Command, name string) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := prompts.NewManager(st).Delete(cmd.Context(), name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted profile %q\n", name)
	return nil
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}
