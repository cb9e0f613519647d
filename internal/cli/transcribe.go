package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"voxscribe/internal/clipboard"
	"voxscribe/internal/config"
	"voxscribe/internal/download"
	"voxscribe/internal/ffmpeg"
	"voxscribe/internal/jobs"
	"voxscribe/internal/language"
	"voxscribe/internal/platform"
	"voxscribe/internal/prompts"
	"voxscribe/internal/remote"
	"voxscribe/internal/transcript"
	"voxscribe/internal/whisper"
)

func newTranscribeCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <files...>",
		Short: "Transcribe audio or video files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.transcribeFiles(cmd, args)
		},
	}
	bindTranscribeFlags(cmd, app)
	return cmd
}

// transcribeFiles validates the effective settings, builds the batch request,
// and hands it to the configured transcription runner.
func (a *appState) transcribeFiles(cmd *cobra.Command, files []string) error {
	ctx := cmd.Context()

	langCode, err := language.Normalize(a.language)
	if err != nil {
		return err
	}
	task := a.task
	if task == "" {
		task = whisper.TaskTranscribe
	}
	if !whisper.ValidTask(task) {
		return fmt.Errorf("invalid task %q (valid: %s, %s)", a.task, whisper.TaskTranscribe, whisper.TaskTranslate)
	}
	device := a.device
	if device == "" {
		device = whisper.DeviceAuto
	}
	if !whisper.ValidDevice(device) {
		return fmt.Errorf("invalid device %q (valid: %s, %s, %s)", a.device, whisper.DeviceAuto, whisper.DeviceCPU, whisper.DeviceCUDA)
	}
	specifier := a.specifier
	if specifier == "" {
		specifier = language.SpecifierName
	}
	if !language.ValidSpecifierMode(specifier) {
		return fmt.Errorf("invalid specifier %q (valid: %s, %s)", a.specifier, language.SpecifierName, language.SpecifierCode)
	}
	if a.engineName != "" && !config.ValidEngine(a.engineName) {
		return fmt.Errorf("unknown engine %q (valid: %s, %s, %s)", a.engineName, config.EngineAuto, config.EngineBundled, config.EngineOpenAI)
	}
	formats, err := transcript.ParseFormats(a.formats)
	if err != nil {
		return err
	}
	if a.copyToClip && len(files) > 1 {
		return errors.New("--copy needs a single input file")
	}

	outputDir := a.outputDir
	if outputDir != "" {
		outputDir, err = config.ExpandPath(outputDir)
		if err != nil {
			return err
		}
	}

	prompt, err := a.resolvePrompt(ctx)
	if err != nil {
		return err
	}

	req := jobs.Request{
		Files:         files,
		OutputDir:     outputDir,
		Formats:       formats,
		Model:         a.model,
		Language:      langCode,
		Task:          task,
		Device:        device,
		InitialPrompt: prompt,
		SpecifierMode: specifier,
		BeamSize:      a.beamSize,
		BestOf:        a.bestOf,
		Threads:       a.threads,
		Workers:       a.workers,
		KeepWAV:       a.keepWAV,
	}

	transcribeFn := a.transcribeFn
	if transcribeFn == nil {
		transcribeFn = a.runTranscription
	}

	started := time.Now()
	results, runErr := transcribeFn(ctx, req)
	a.printSummary(cmd, results, time.Since(started))

	if a.copyToClip && runErr == nil && len(results) == 1 {
		a.copyTranscript(ctx, results[0])
	}
	return runErr
}

// resolvePrompt combines --initial-prompt and --prompt-profile into the
// prompt text handed to the engine, warning when the estimate exceeds the
// engine's context budget.
func (a *appState) resolvePrompt(ctx context.Context) (string, error) {
	prompt := strings.TrimSpace(a.initialPrompt)
	if a.promptProfile != "" {
		if prompt != "" {
			return "", errors.New("--initial-prompt and --prompt-profile are mutually exclusive")
		}
		st, err := a.openStore()
		if err != nil {
			return "", err
		}
		defer st.Close()
		prompt, err = prompts.NewManager(st).Resolve(ctx, a.promptProfile)
		if err != nil {
			return "", err
		}
	}
	if prompt == "" {
		return "", nil
	}
	if tokens, err := prompts.Estimate(prompt); err == nil && prompts.OverBudget(tokens) {
		a.log().Warn("initial prompt exceeds the engine's context budget; its start will be dropped",
			zap.Int("tokens", tokens),
			zap.Int("budget", prompts.TokenBudget))
	}
	return prompt, nil
}

// runTranscription is the default transcribeFn: it builds the engine,
// prepares ffmpeg and the history store, and runs the batch.
func (a *appState) runTranscription(ctx context.Context, req jobs.Request) ([]jobs.Job, error) {
	engine, modelPath, err := a.buildEngine(ctx)
	if err != nil {
		return nil, err
	}
	req.ModelPath = modelPath
	if modelPath == "" {
		req.Model = "whisper-1"
	}

	ffbin, err := ffmpeg.Locate(a.log())
	if err != nil {
		return nil, err
	}
	var engineLibDir string
	if bundled, ok := engine.(*whisper.BundledEngine); ok {
		engineLibDir = filepath.Dir(bundled.Executable)
	}
	if err := ffmpeg.ApplyEnv(ffbin, engineLibDir); err != nil {
		return nil, err
	}

	st, err := a.openStore()
	if err != nil {
		a.log().Warn("history store unavailable, continuing without history", zap.Error(err))
		st = nil
	} else {
		defer st.Close()
	}

	runner := jobs.NewRunner(engine, ffbin.Path, st, nil, a.log())
	printer := a.eventPrinter()
	req.OnEvent = printer
	results, runErr := runner.Run(ctx, req)
	if printer == nil {
		replayQuietEvents(runner.Bus(), a.log())
	}
	return results, runErr
}

// replayQuietEvents forwards buffered per-file diagnostics to the structured
// logger after a run with no interactive printer, so piped and --no-progress
// invocations still surface silence notes and failure context.
func replayQuietEvents(bus *jobs.EventBus, logger *zap.Logger) {
	for _, event := range bus.Since(0) {
		switch event.Type {
		case jobs.EventTypeError, jobs.EventTypeLog:
			logger.Info("job event",
				zap.String("file", filepath.Base(event.Source)),
				zap.String("message", event.Message))
		}
	}
}

func (a *appState) buildEngine(ctx context.Context) (whisper.Engine, string, error) {
	if a.engineName == config.EngineOpenAI {
		cfg := a.configuration()
		engine, err := remote.NewEngine(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
		if err != nil {
			return nil, "", err
		}
		return engine, "", nil
	}

	engine, err := whisper.NewBundledEngine(a.log())
	if err != nil {
		return nil, "", err
	}
	resolved, err := a.ensureModelAvailable(ctx)
	if err != nil {
		return nil, "", err
	}
	return engine, resolved.Path, nil
}

// ensureModelAvailable resolves the selected model and downloads it when it
// is missing and --auto-download is on.
func (a *appState) ensureModelAvailable(ctx context.Context) (whisper.ResolvedModel, error) {
	dir, err := a.modelStorageDir()
	if err != nil {
		return whisper.ResolvedModel{}, err
	}
	resolved, err := whisper.ResolveModel(a.model, dir)
	if err != nil {
		return whisper.ResolvedModel{}, err
	}
	if !resolved.NeedsDownload {
		return resolved, nil
	}
	if !a.autoDownload {
		return whisper.ResolvedModel{}, fmt.Errorf("model %q is not downloaded; run `voxscribe models pull %s` or remove --auto-download=false", resolved.Name, resolved.Name)
	}

	a.log().Info("model not found locally, downloading",
		zap.String("model", resolved.Name),
		zap.String("path", resolved.Path))
	err = download.DownloadFile(ctx, download.Options{
		URL:            resolved.URL,
		Destination:    resolved.Path,
		ExpectedSHA256: resolved.SHA256,
		ChecksumURL:    resolved.SHA256URL,
		Description:    fmt.Sprintf("Pulling %s", resolved.Name),
		NoProgress:     a.noProgress,
		Logger:         a.log(),
	})
	if err != nil {
		return whisper.ResolvedModel{}, err
	}
	resolved.NeedsDownload = false
	return resolved, nil
}

func (a *appState) modelStorageDir() (string, error) {
	dir, err := platform.ResolveModelDir(a.modelDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return dir, nil
}

func (a *appState) progressEnabled() bool {
	return !a.noProgress && term.IsTerminal(int(os.Stderr.Fd()))
}

// eventPrinter renders job events as terse per-file lines on stderr, or nil
// when progress output is off. The runner invokes it from worker goroutines,
// so writes are serialized.
func (a *appState) eventPrinter() func(jobs.Event) {
	if !a.progressEnabled() {
		return nil
	}
	var mu sync.Mutex
	return func(event jobs.Event) {
		mu.Lock()
		defer mu.Unlock()
		switch event.Type {
		case jobs.EventTypeStatus:
			switch event.Status {
			case jobs.StatusExtracting, jobs.StatusTranscribing:
				fmt.Fprintf(os.Stderr, "  %-12s %s\n", event.Status, filepath.Base(event.Source))
			}
		case jobs.EventTypeResult, jobs.EventTypeError, jobs.EventTypeLog:
			fmt.Fprintf(os.Stderr, "%s\n", event.Message)
		}
	}
}

func (a *appState) printSummary(cmd *cobra.Command, results []jobs.Job, elapsed time.Duration) {
	if len(results) == 0 {
		return
	}
	w := cmd.OutOrStdout()

	var done, failed, stopped int
	rows := make([][]string, 0, len(results))
	for i := range results {
		job := &results[i]
		switch job.Status {
		case jobs.StatusDone:
			done++
		case jobs.StatusFailed:
			failed++
		case jobs.StatusStopped:
			stopped++
		}
		rows = append(rows, []string{
			filepath.Base(job.Source),
			string(job.Status),
			languageLabel(job),
			elapsedLabel(job),
			strconv.Itoa(len(job.Outputs)),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"FILE", "STATUS", "LANGUAGE", "TIME", "OUTPUTS"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))

	for i := range results {
		job := &results[i]
		if job.Status == jobs.StatusFailed && job.Err != nil {
			fmt.Fprintf(w, "%s: %v\n", filepath.Base(job.Source), job.Err)
		}
	}
	if len(results) == 1 {
		for _, output := range results[0].Outputs {
			fmt.Fprintln(w, output)
		}
	}
	fmt.Fprintf(w, "%d done, %d failed, %d stopped in %s\n", done, failed, stopped, elapsed.Round(time.Millisecond))
}

func languageLabel(job *jobs.Job) string {
	if job.Language == "" {
		if job.Status == jobs.StatusDone {
			return "unknown"
		}
		return "-"
	}
	return language.DisplayName(job.Language)
}

func elapsedLabel(job *jobs.Job) string {
	if job.Elapsed == 0 {
		return "-"
	}
	return job.Elapsed.Round(10 * time.Millisecond).String()
}

const blankAudioToken = "[BLANK_AUDIO]"

// isBlankTranscript reports whether the engine produced no usable speech.
// The bundled whisper engine emits the [BLANK_AUDIO] marker instead of text
// for silent input.
func isBlankTranscript(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}
	return strings.EqualFold(trimmed, blankAudioToken)
}

// copyTranscript puts the transcript text on the clipboard. Clipboard
// trouble never fails the run: the transcript files are already on disk.
func (a *appState) copyTranscript(ctx context.Context, job jobs.Job) {
	if job.Status != jobs.StatusDone {
		return
	}
	if isBlankTranscript(job.Text) {
		a.log().Warn("transcript is blank, skipping clipboard copy")
		return
	}
	copyFn := a.copyFn
	if copyFn == nil {
		copyFn = clipboard.CopyText
	}
	if err := copyFn(ctx, job.Text); err != nil {
		if errors.Is(err, clipboard.ErrUnavailable) {
			a.log().Warn("no clipboard command found, transcript files are on disk")
			return
		}
		a.log().Warn("failed to copy transcript to clipboard", zap.Error(err))
		return
	}
	a.log().Info("copied transcript to clipboard")
}
