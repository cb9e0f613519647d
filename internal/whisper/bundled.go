package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BundledEngine struct {
	Executable string
	Logger     *zap.Logger
}

func NewBundledEngine(logger *zap.Logger) (*BundledEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if override := strings.TrimSpace(os.Getenv("VOXSCRIBE_WHISPER_PATH")); override != "" {
		if err := EnsureExecutable(override); err != nil {
			return nil, fmt.Errorf("VOXSCRIBE_WHISPER_PATH is not executable: %w", err)
		}
		return &BundledEngine{Executable: override, Logger: logger}, nil
	}

	selfExe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve voxscribe executable path: %w", err)
	}

	whisperExe, err := ResolveBundledEnginePath(selfExe)
	if err != nil {
		return nil, err
	}

	return &BundledEngine{Executable: whisperExe, Logger: logger}, nil
}

func ResolveBundledEnginePath(selfExecutable string) (string, error) {
	for _, candidate := range EnginePathCandidates(selfExecutable) {
		if err := EnsureExecutable(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("bundled whisper engine not found near %s; reinstall voxscribe from an official release, expected at ../libexec/whisper/%s", selfExecutable, engineBinaryName())
}

func EnginePathCandidates(selfExecutable string) []string {
	binDir := filepath.Dir(selfExecutable)
	engineName := engineBinaryName()
	hostTarget := fmt.Sprintf("%s_%s", runtime.GOOS, normalizeArch(runtime.GOARCH))

	return []string{
		filepath.Join(binDir, "..", "libexec", "whisper", engineName),
		filepath.Join(binDir, "libexec", "whisper", engineName),
		filepath.Join(binDir, "packaging", "whisper", hostTarget, engineName),
		filepath.Join(binDir, engineName),
	}
}

func (b *BundledEngine) Name() string {
	return "bundled"
}

func (b *BundledEngine) Transcribe(ctx context.Context, req TranscriptionRequest) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	if err := EnsureExecutable(b.Executable); err != nil {
		return nil, fmt.Errorf("bundled whisper engine missing or not executable: %w", err)
	}

	outBase := filepath.Join(os.TempDir(), "voxscribe-"+uuid.NewString())
	jsonOut := outBase + ".json"

	args := buildEngineArgs(req, outBase)

	cmd := exec.CommandContext(ctx, b.Executable, args...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	b.Logger.Debug("running whisper engine", zap.String("engine", b.Executable), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return nil, classifyEngineFailure(b.Executable, err, stderr.String())
	}

	defer os.Remove(jsonOut)
	content, err := os.ReadFile(jsonOut)
	if err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}

	result, err := parseEngineOutput(content)
	if err != nil {
		return nil, err
	}

	result.Translated = req.Task == TaskTranslate
	if result.Translated {
		result.Language = "en"
	}
	return result, nil
}

func buildEngineArgs(req TranscriptionRequest, outBase string) []string {
	args := []string{"-m", req.ModelPath, "-f", req.AudioPath, "-oj", "-of", outBase}

	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = "auto"
	}
	args = append(args, "-l", lang)

	if req.Task == TaskTranslate {
		args = append(args, "-tr")
	}
	if req.Device == DeviceCPU {
		args = append(args, "-ng")
	}
	if prompt := strings.TrimSpace(req.InitialPrompt); prompt != "" {
		args = append(args, "--prompt", prompt)
	}

	beamSize := req.BeamSize
	if beamSize <= 0 {
		beamSize = DefaultBeamSize
	}
	bestOf := req.BestOf
	if bestOf <= 0 {
		bestOf = DefaultBestOf
	}
	args = append(args, "-bs", strconv.Itoa(beamSize), "-bo", strconv.Itoa(bestOf))

	if req.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(req.Threads))
	}

	return args
}

type engineOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseEngineOutput(content []byte) (*Result, error) {
	var out engineOutput
	if err := json.Unmarshal(content, &out); err != nil {
		return nil, fmt.Errorf("parse whisper output: %w", err)
	}

	segments := make([]Segment, 0, len(out.Transcription))
	for i, seg := range out.Transcription {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			ID:    i,
			Start: float64(seg.Offsets.From) / 1000.0,
			End:   float64(seg.Offsets.To) / 1000.0,
			Text:  text,
		})
	}

	return &Result{
		Language: strings.TrimSpace(out.Result.Language),
		Segments: segments,
		Text:     JoinSegments(segments),
	}, nil
}

func classifyEngineFailure(executable string, err error, stderr string) error {
	errText := strings.TrimSpace(stderr)
	if isMissingSharedLibraryError(errText) {
		return fmt.Errorf("bundled whisper engine at %s is missing required shared libraries (%s); reinstall voxscribe from an official release or rebuild whisper-cli with BUILD_SHARED_LIBS=OFF", executable, errText)
	}
	if isIllegalInstructionError(errText) || isIllegalInstructionError(err.Error()) {
		return fmt.Errorf("bundled whisper engine crashed with an illegal CPU instruction; " +
			"your CPU may lack required instruction set extensions; " +
			"set VOXSCRIBE_WHISPER_PATH to a whisper-cli binary built for your CPU")
	}
	if isOutOfMemoryError(errText) {
		return fmt.Errorf("whisper engine ran out of memory (%s); pick a smaller model (see `voxscribe models`) or run with --device cpu to use system RAM instead of VRAM", firstLine(errText))
	}
	return fmt.Errorf("whisper transcribe failed: %w (%s)", err, errText)
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "whisper-cli.exe"
	}
	return "whisper-cli"
}

// EnsureExecutable verifies path points at a runnable binary. On unix this
// includes the executable bit, which release archives occasionally drop.
func EnsureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isMissingSharedLibraryError(stderr string) bool {
	value := strings.ToLower(strings.TrimSpace(stderr))
	if value == "" {
		return false
	}

	patterns := []string{
		"error while loading shared libraries",
		"cannot open shared object file",
		"dyld: library not loaded",
		"image not found",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func isIllegalInstructionError(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "illegal instruction")
}

func isOutOfMemoryError(stderr string) bool {
	value := strings.ToLower(strings.TrimSpace(stderr))
	if value == "" {
		return false
	}

	patterns := []string{
		"out of memory",
		"cudamalloc failed",
		"failed to allocate",
		"insufficient memory",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return strings.TrimSpace(text[:i])
	}
	return text
}

func normalizeArch(arch string) string {
	switch arch {
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	default:
		return arch
	}
}
