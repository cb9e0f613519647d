package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"voxscribe/internal/doctor"
	"voxscribe/internal/platform"
)

func newDoctorCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that transcription can work on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runDoctorCmd(cmd)
		},
	}
	bindModelDirFlag(cmd, app)
	cmd.Flags().StringVar(&app.device, "device", app.device, "Compute device to check: auto, cpu, or cuda")
	return cmd
}

func (a *appState) runDoctorCmd(cmd *cobra.Command) error {
	// An unresolvable model dir surfaces as a failing check, not an abort.
	modelDir, err := platform.ResolveModelDir(a.modelDir)
	if err != nil {
		modelDir = ""
	}
	input := doctor.Input{
		ConfigPath:   a.cfgPath,
		ConfigExists: a.cfgExists,
		ConfigErr:    a.cfgErr,
		ModelDir:     modelDir,
		Model:        a.model,
		OutputDir:    a.outputDir,
		Device:       a.device,
	}
	doctorFn := a.doctorFn
	if doctorFn == nil {
		doctorFn = a.runDoctor
	}
	report := doctorFn(cmd.Context(), input)

	w := cmd.OutOrStdout()
	if a.jsonLogs {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return err
		}
	} else {
		for _, check := range report.Checks {
			label := "FAIL"
			if check.OK {
				label = " OK "
			}
			fmt.Fprintf(w, "[%s] %-16s %s\n", label, check.Name, check.Message)
			if check.Hint != "" {
				fmt.Fprintf(w, "       hint: %s\n", check.Hint)
			}
		}
	}
	if report.HasFailures {
		return errors.New("doctor found problems")
	}
	return nil
}

func (a *appState) runDoctor(ctx context.Context, input doctor.Input) doctor.Report {
	return doctor.NewChecker(a.log()).Run(ctx, input)
}
