package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"voxscribe/internal/download"
	"voxscribe/internal/platform"
	"voxscribe/internal/whisper"
)

func newModelsCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List and manage whisper models",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.listModels(cmd)
		},
	}
	cmd.PersistentFlags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")

	cmd.AddCommand(&cobra.Command{
		Use:   "pull <model...>",
		Short: "Download models and verify their checksums",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.pullModels(cmd, args)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "verify <model>",
		Short: "Check a downloaded model against its published checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.verifyModel(cmd, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <model>",
		Short: "Delete a downloaded model file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.removeModel(cmd, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the model directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := platform.ResolveModelDir(app.modelDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	})

	return cmd
}

func (a *appState) listModels(cmd *cobra.Command) error {
	dir, err := platform.ResolveModelDir(a.modelDir)
	if err != nil {
		return err
	}

	catalog := whisper.Catalog()
	rows := make([][]string, 0, len(catalog))
	for _, model := range catalog {
		downloaded := "-"
		if info, err := os.Stat(filepath.Join(dir, model.FileName)); err == nil && info.Mode().IsRegular() {
			downloaded = "yes"
		}
		english := "-"
		if model.EnglishOnly {
			english = "yes"
		}
		rows = append(rows, []string{
			model.Name,
			model.FileName,
			model.Params,
			model.VRAM,
			model.RelativeSpeed,
			english,
			downloaded,
		})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, renderTable(
		[]string{"MODEL", "FILE", "PARAMS", "VRAM", "SPEED", "ENGLISH-ONLY", "DOWNLOADED"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))
	fmt.Fprintf(w, "model directory: %s\n", dir)
	return nil
}

func (a *appState) pullModels(cmd *cobra.Command, names []string) error {
	dir, err := a.modelStorageDir()
	if err != nil {
		return err
	}
	for _, name := range names {
		resolved, err := whisper.ResolveModel(name, dir)
		if err != nil {
			return err
		}
		if resolved.IsCustomPath {
			return fmt.Errorf("%s is a file path; pull works on catalog models (see `voxscribe models`)", name)
		}
		err = download.DownloadFile(cmd.Context(), download.Options{
			URL:            resolved.URL,
			Destination:    resolved.Path,
			ExpectedSHA256: resolved.SHA256,
			ChecksumURL:    resolved.SHA256URL,
			Description:    fmt.Sprintf("Pulling %s", resolved.Name),
			NoProgress:     a.noProgress,
			Logger:         a.log(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s ready at %s\n", resolved.Name, resolved.Path)
	}
	return nil
}

func (a *appState) verifyModel(cmd *cobra.Command, name string) error {
	dir, err := platform.ResolveModelDir(a.modelDir)
	if err != nil {
		return err
	}
	resolved, err := whisper.ResolveModel(name, dir)
	if err != nil {
		return err
	}
	if resolved.IsCustomPath {
		return fmt.Errorf("no published checksum for custom model files like %s", resolved.Path)
	}
	if resolved.NeedsDownload {
		return fmt.Errorf("model %q is not downloaded; run `voxscribe models pull %s` first", resolved.Name, resolved.Name)
	}

	expected := resolved.SHA256
	if expected == "" {
		expected, err = download.ResolveExpectedChecksum(cmd.Context(), resolved.SHA256URL, filepath.Base(resolved.Path), nil)
		if err != nil {
			return err
		}
	}

	stop := startSpinner(a.progressEnabled(), "Verifying "+resolved.Name)
	err = download.VerifyFileChecksum(resolved.Path, expected)
	stop()
	if err != nil {
		return fmt.Errorf("%s: %w; re-pull it with `voxscribe models pull %s`", resolved.Name, err, resolved.Name)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s OK (%s)\n", resolved.Name, resolved.Path)
	return nil
}

func (a *appState) removeModel(cmd *cobra.Command, name string) error {
	dir, err := platform.ResolveModelDir(a.modelDir)
	if err != nil {
		return err
	}
	resolved, err := whisper.ResolveModel(name, dir)
	if err != nil {
		return err
	}
	if resolved.IsCustomPath {
		return fmt.Errorf("refusing to remove %s: remove works on catalog models in the model directory", resolved.Path)
	}
	if resolved.NeedsDownload {
		return fmt.Errorf("model %q is not downloaded", resolved.Name)
	}
	if err := os.Remove(resolved.Path); err != nil {
		return fmt.Errorf("remove model: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", resolved.Path)
	return nil
}
