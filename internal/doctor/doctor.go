// Package doctor inspects the environment voxscribe runs in: bundled tools,
// model and output directories, GPU availability, config health.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"voxscribe/internal/ffmpeg"
	"voxscribe/internal/whisper"
)

// Check is one diagnostic result. Hint carries the suggested fix and may be
// set on passing checks too (e.g. a model that is valid but not pulled yet).
type Check struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// Report aggregates all checks of one doctor run.
type Report struct {
	GeneratedAt time.Time `json:"generatedAt"`
	HasFailures bool      `json:"hasFailures"`
	Checks      []Check   `json:"checks"`
}

// Input is the resolved configuration the checks run against.
type Input struct {
	ConfigPath   string
	ConfigExists bool
	ConfigErr    error
	ModelDir     string
	Model        string
	OutputDir    string
	Device       string
}

// Checker validates external tools and required filesystem paths.
type Checker struct {
	logger *zap.Logger

	// Swapped out in tests.
	locateFFmpeg func(logger *zap.Logger) (ffmpeg.Binary, error)
	locateEngine func() (string, error)
	resolveModel func(modelRef, modelDir string) (whisper.ResolvedModel, error)
	lookPath     func(file string) (string, error)
	runCommand   func(ctx context.Context, name string, args ...string) error
	mkdirAll     func(path string, perm os.FileMode) error
	createTemp   func(dir, pattern string) (*os.File, error)
	remove       func(path string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker(logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Checker{
		logger:       logger,
		locateFFmpeg: ffmpeg.Locate,
		locateEngine: locateBundledEngine,
		resolveModel: whisper.ResolveModel,
		lookPath:     exec.LookPath,
		runCommand:   runQuiet,
		mkdirAll:     os.MkdirAll,
		createTemp:   os.CreateTemp,
		remove:       os.Remove,
	}
}

// Run executes every applicable check and returns the combined report.
func (c *Checker) Run(ctx context.Context, input Input) Report {
	checks := []Check{
		c.checkConfig(input),
		c.checkFFmpeg(),
		c.checkEngine(),
		c.checkModelDir(input.ModelDir),
		c.checkModel(input.Model, input.ModelDir),
		c.checkOutputDir(input.OutputDir),
	}
	if input.Device == whisper.DeviceCUDA {
		checks = append(checks, c.checkCUDA(ctx))
	}

	report := Report{
		GeneratedAt: time.Now().UTC(),
		Checks:      checks,
	}
	for _, check := range checks {
		if !check.OK {
			report.HasFailures = true
			break
		}
	}
	return report
}

func (c *Checker) checkConfig(input Input) Check {
	check := Check{ID: "config", Name: "Config file"}

	switch {
	case input.ConfigErr != nil:
		check.Message = fmt.Sprintf("%s failed to load: %v", input.ConfigPath, input.ConfigErr)
		check.Hint = "Fix the TOML (or move the file aside); `voxscribe config init` writes a fresh sample."
	case !input.ConfigExists:
		check.OK = true
		check.Message = fmt.Sprintf("no config file at %s, using built-in defaults", input.ConfigPath)
	default:
		check.OK = true
		check.Message = fmt.Sprintf("loaded %s", input.ConfigPath)
	}
	return check
}

func (c *Checker) checkFFmpeg() Check {
	check := Check{ID: "ffmpeg", Name: "ffmpeg"}

	bin, err := c.locateFFmpeg(c.logger)
	if err != nil {
		check.Message = err.Error()
		check.Hint = "Install ffmpeg or reinstall voxscribe from a release bundle; if a bundled copy exists but lost its permission bit, `chmod +x` it."
		return check
	}

	check.OK = true
	if bin.Bundled {
		check.Message = fmt.Sprintf("bundled copy at %s", bin.Path)
	} else {
		check.Message = fmt.Sprintf("found on PATH at %s", bin.Path)
	}
	return check
}

func (c *Checker) checkEngine() Check {
	check := Check{ID: "whisper_cli", Name: "whisper-cli"}

	path, err := c.locateEngine()
	if err != nil {
		check.Message = err.Error()
		check.Hint = "Reinstall voxscribe from a release bundle or point VOXSCRIBE_WHISPER_PATH at a whisper-cli build."
		return check
	}

	check.OK = true
	check.Message = fmt.Sprintf("found at %s", path)
	return check
}

func (c *Checker) checkModelDir(modelDir string) Check {
	check := Check{ID: "model_dir", Name: "Model directory"}

	if strings.TrimSpace(modelDir) == "" {
		check.Message = "model directory is not set"
		check.Hint = "Set paths.model_dir in the config or pass --model-dir."
		return check
	}

	if err := c.probeWritable(modelDir); err != nil {
		check.Message = fmt.Sprintf("%s is not writable: %v", modelDir, err)
		check.Hint = "Model downloads need write access; choose another directory or fix its permissions."
		return check
	}

	check.OK = true
	check.Message = fmt.Sprintf("writable at %s", modelDir)
	return check
}

func (c *Checker) checkModel(model, modelDir string) Check {
	check := Check{ID: "model", Name: "Default model"}

	resolved, err := c.resolveModel(model, modelDir)
	if err != nil {
		check.Message = err.Error()
		check.Hint = "Pick a catalog name (`voxscribe models`) or point defaults.model at a .bin file."
		return check
	}

	check.OK = true
	switch {
	case resolved.IsCustomPath:
		check.Message = fmt.Sprintf("custom model file at %s", resolved.Path)
	case resolved.NeedsDownload:
		check.Message = fmt.Sprintf("model %q is not downloaded yet (would live at %s)", resolved.Name, resolved.Path)
		check.Hint = fmt.Sprintf("`voxscribe models pull %s` fetches it, or pass --auto-download when transcribing.", resolved.Name)
	default:
		check.Message = fmt.Sprintf("model %q present at %s", resolved.Name, resolved.Path)
	}
	return check
}

func (c *Checker) checkOutputDir(outputDir string) Check {
	check := Check{ID: "output_dir", Name: "Output directory"}

	if strings.TrimSpace(outputDir) == "" {
		check.OK = true
		check.Message = "not set; transcripts land next to their inputs"
		return check
	}

	if err := c.probeWritable(outputDir); err != nil {
		check.Message = fmt.Sprintf("%s is not writable: %v", outputDir, err)
		check.Hint = "Choose a writable output directory or fix its permissions."
		return check
	}

	check.OK = true
	check.Message = fmt.Sprintf("writable at %s", outputDir)
	return check
}

func (c *Checker) checkCUDA(ctx context.Context) Check {
	check := Check{ID: "cuda", Name: "CUDA"}

	smi, err := c.lookPath("nvidia-smi")
	if err != nil {
		check.Message = "device is set to cuda but nvidia-smi is not on PATH"
		check.Hint = "Install the NVIDIA driver, or set defaults.device to cpu or auto."
		return check
	}

	if err := c.runCommand(ctx, smi, "-L"); err != nil {
		check.Message = fmt.Sprintf("nvidia-smi failed: %v", err)
		check.Hint = "GPU detection can stop working after driver updates; reboot (or reload the nvidia kernel modules), or fall back to device=cpu."
		return check
	}

	check.OK = true
	check.Message = fmt.Sprintf("nvidia-smi at %s reports a usable GPU", smi)
	return check
}

// probeWritable creates the directory if needed and round-trips a temp file.
func (c *Checker) probeWritable(dir string) error {
	if err := c.mkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := c.createTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	_ = c.remove(name)
	return nil
}

func locateBundledEngine() (string, error) {
	if override := strings.TrimSpace(os.Getenv("VOXSCRIBE_WHISPER_PATH")); override != "" {
		if err := whisper.EnsureExecutable(override); err != nil {
			return "", fmt.Errorf("VOXSCRIBE_WHISPER_PATH is not executable: %w", err)
		}
		return override, nil
	}

	selfExe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve voxscribe executable path: %w", err)
	}
	return whisper.ResolveBundledEnginePath(selfExe)
}

func runQuiet(ctx context.Context, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run()
}
