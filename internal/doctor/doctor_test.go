package doctor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voxscribe/internal/ffmpeg"
	"voxscribe/internal/whisper"
)

// newTestChecker passes every probe unless a test overrides a field.
func newTestChecker(t *testing.T) *Checker {
	t.Helper()

	c := NewChecker(zap.NewNop())
	c.locateFFmpeg = func(*zap.Logger) (ffmpeg.Binary, error) {
		return ffmpeg.Binary{Path: "/opt/voxscribe/ffmpeg/ffmpeg", Bundled: true}, nil
	}
	c.locateEngine = func() (string, error) {
		return "/opt/voxscribe/libexec/whisper/whisper-cli", nil
	}
	c.resolveModel = func(modelRef, modelDir string) (whisper.ResolvedModel, error) {
		return whisper.ResolvedModel{Name: modelRef, Path: filepath.Join(modelDir, "ggml-"+modelRef+".bin")}, nil
	}
	c.lookPath = func(file string) (string, error) { return "/usr/bin/" + file, nil }
	c.runCommand = func(context.Context, string, ...string) error { return nil }
	return c
}

func findCheck(t *testing.T, report Report, id string) Check {
	t.Helper()
	for _, check := range report.Checks {
		if check.ID == id {
			return check
		}
	}
	t.Fatalf("check %s not in report", id)
	return Check{}
}

func TestRunAllPass(t *testing.T) {
	t.Parallel()

	c := newTestChecker(t)
	report := c.Run(context.Background(), Input{
		ConfigPath:   "/home/u/.config/voxscribe/config.toml",
		ConfigExists: true,
		ModelDir:     t.TempDir(),
		Model:        "base",
		OutputDir:    filepath.Join(t.TempDir(), "transcripts"),
	})

	require.False(t, report.HasFailures)
	require.False(t, report.GeneratedAt.IsZero())
	require.Len(t, report.Checks, 6)
	for _, check := range report.Checks {
		require.True(t, check.OK, "check %s: %s", check.ID, check.Message)
	}
	require.NotContains(t, checkIDs(report), "cuda")
}

func TestRunReportsMissingTools(t *testing.T) {
	t.Parallel()

	c := newTestChecker(t)
	c.locateFFmpeg = func(*zap.Logger) (ffmpeg.Binary, error) {
		return ffmpeg.Binary{}, errors.New("ffmpeg not found")
	}
	c.locateEngine = func() (string, error) {
		return "", errors.New("bundled whisper engine not found")
	}

	report := c.Run(context.Background(), Input{ModelDir: t.TempDir(), Model: "base"})
	require.True(t, report.HasFailures)

	ff := findCheck(t, report, "ffmpeg")
	require.False(t, ff.OK)
	require.Contains(t, ff.Hint, "chmod +x")

	engine := findCheck(t, report, "whisper_cli")
	require.False(t, engine.OK)
	require.Contains(t, engine.Hint, "VOXSCRIBE_WHISPER_PATH")
}

func TestRunFlagsUnparsableConfig(t *testing.T) {
	t.Parallel()

	c := newTestChecker(t)
	report := c.Run(context.Background(), Input{
		ConfigPath:   "/tmp/config.toml",
		ConfigExists: true,
		ConfigErr:    errors.New("toml: line 3: expected value"),
		ModelDir:     t.TempDir(),
		Model:        "base",
	})

	cfg := findCheck(t, report, "config")
	require.False(t, cfg.OK)
	require.Contains(t, cfg.Message, "line 3")
	require.Contains(t, cfg.Hint, "config init")
}

func TestRunMissingConfigStillPasses(t *testing.T) {
	t.Parallel()

	c := newTestChecker(t)
	report := c.Run(context.Background(), Input{
		ConfigPath: "/home/u/.config/voxscribe/config.toml",
		ModelDir:   t.TempDir(),
		Model:      "base",
	})

	cfg := findCheck(t, report, "config")
	require.True(t, cfg.OK)
	require.Contains(t, cfg.Message, "built-in defaults")
}

func TestRunModelNotDownloadedPassesWithHint(t *testing.T) {
	t.Parallel()

	c := newTestChecker(t)
	c.resolveModel = func(modelRef, modelDir string) (whisper.ResolvedModel, error) {
		return whisper.ResolvedModel{
			Name:          modelRef,
			Path:          filepath.Join(modelDir, "ggml-base.bin"),
			NeedsDownload: true,
		}, nil
	}

	report := c.Run(context.Background(), Input{ModelDir: t.TempDir(), Model: "base"})
	model := findCheck(t, report, "model")
	require.True(t, model.OK)
	require.Contains(t, model.Message, "not downloaded")
	require.Contains(t, model.Hint, "models pull base")
}

func TestRunUnknownModelFails(t *testing.T) {
	t.Parallel()

	c := newTestChecker(t)
	c.resolveModel = func(modelRef, modelDir string) (whisper.ResolvedModel, error) {
		return whisper.ResolvedModel{}, errors.New(`unknown model "colossal"`)
	}

	report := c.Run(context.Background(), Input{ModelDir: t.TempDir(), Model: "colossal"})
	model := findCheck(t, report, "model")
	require.False(t, model.OK)
	require.Contains(t, model.Hint, "voxscribe models")
}

func TestRunModelDirProbes(t *testing.T) {
	t.Parallel()

	c := newTestChecker(t)
	c.createTemp = func(dir, pattern string) (*os.File, error) {
		return nil, errors.New("permission denied")
	}

	report := c.Run(context.Background(), Input{ModelDir: t.TempDir(), Model: "base"})
	dir := findCheck(t, report, "model_dir")
	require.False(t, dir.OK)
	require.Contains(t, dir.Message, "permission denied")

	unset := c.Run(context.Background(), Input{Model: "base"})
	require.False(t, findCheck(t, unset, "model_dir").OK)
	require.Contains(t, findCheck(t, unset, "model_dir").Hint, "--model-dir")
}

func TestRunOutputDirUnsetPasses(t *testing.T) {
	t.Parallel()

	c := newTestChecker(t)
	report := c.Run(context.Background(), Input{ModelDir: t.TempDir(), Model: "base"})

	out := findCheck(t, report, "output_dir")
	require.True(t, out.OK)
	require.Contains(t, out.Message, "next to their inputs")
}

func TestRunCUDAOnlyWhenConfigured(t *testing.T) {
	t.Parallel()

	c := newTestChecker(t)

	cpu := c.Run(context.Background(), Input{ModelDir: t.TempDir(), Model: "base", Device: whisper.DeviceCPU})
	require.NotContains(t, checkIDs(cpu), "cuda")

	cuda := c.Run(context.Background(), Input{ModelDir: t.TempDir(), Model: "base", Device: whisper.DeviceCUDA})
	require.Contains(t, checkIDs(cuda), "cuda")
	require.True(t, findCheck(t, cuda, "cuda").OK)
}

func TestRunCUDAFailures(t *testing.T) {
	t.Parallel()

	c := newTestChecker(t)
	c.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	report := c.Run(context.Background(), Input{ModelDir: t.TempDir(), Model: "base", Device: whisper.DeviceCUDA})
	missing := findCheck(t, report, "cuda")
	require.False(t, missing.OK)
	require.Contains(t, missing.Hint, "device")

	c = newTestChecker(t)
	c.runCommand = func(context.Context, string, ...string) error {
		return errors.New("exit status 9")
	}
	report = c.Run(context.Background(), Input{ModelDir: t.TempDir(), Model: "base", Device: whisper.DeviceCUDA})
	flaky := findCheck(t, report, "cuda")
	require.False(t, flaky.OK)
	require.Contains(t, flaky.Hint, "reboot")
}

func checkIDs(report Report) []string {
	ids := make([]string, 0, len(report.Checks))
	for _, check := range report.Checks {
		ids = append(ids, check.ID)
	}
	return ids
}
