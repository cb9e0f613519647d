package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"voxscribe/internal/clipboard"
	"voxscribe/internal/config"
	"voxscribe/internal/doctor"
	"voxscribe/internal/jobs"
	"voxscribe/internal/logging"
	"voxscribe/internal/platform"
	"voxscribe/internal/store"
	"voxscribe/internal/version"
	"voxscribe/internal/whisper"
)

type appState struct {
	verbose    bool
	jsonLogs   bool
	noProgress bool
	configPath string

	model         string
	modelDir      string
	language      string
	task          string
	device        string
	outputDir     string
	formats       []string
	initialPrompt string
	promptProfile string
	specifier     string
	workers       int
	engineName    string
	autoDownload  bool
	beamSize      int
	bestOf        int
	threads       int
	keepWAV       bool
	copyToClip    bool

	cfg       *config.Config
	cfgPath   string
	cfgExists bool
	cfgErr    error
	logger    *zap.Logger

	openStore    func() (*store.Store, error)
	transcribeFn func(ctx context.Context, req jobs.Request) ([]jobs.Job, error)
	copyFn       func(ctx context.Context, value string) error
	doctorFn     func(ctx context.Context, input doctor.Input) doctor.Report
}

func NewRootCmd() *cobra.Command {
	defaults := config.Default()
	app := &appState{
		model:        defaults.Defaults.Model,
		language:     defaults.Defaults.Language,
		task:         defaults.Defaults.Task,
		device:       defaults.Defaults.Device,
		formats:      defaults.Defaults.Formats,
		specifier:    defaults.Defaults.Specifier,
		engineName:   defaults.Defaults.Engine,
		autoDownload: true,
		beamSize:     whisper.DefaultBeamSize,
		bestOf:       whisper.DefaultBestOf,
	}
	app.openStore = app.openDefaultStore
	app.transcribeFn = app.runTranscription
	app.copyFn = clipboard.CopyText
	app.doctorFn = app.runDoctor

	cmd := &cobra.Command{
		Use:           "voxscribe [files...]",
		Short:         "Batch-transcribe audio and video files with a bundled whisper engine",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.initialize(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return app.transcribeFiles(cmd, args)
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindGlobalFlags(cmd, app)
	bindTranscribeFlags(cmd, app)

	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newModelsCmd(app))
	cmd.AddCommand(newLanguagesCmd())
	cmd.AddCommand(newPromptsCmd(app))
	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newDoctorCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindGlobalFlags(cmd *cobra.Command, app *appState) {
	flags := cmd.PersistentFlags()
	flags.BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	flags.BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
	flags.BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress output")
	flags.StringVar(&app.configPath, "config", "", "Path to the config file")
}

func bindTranscribeFlags(cmd *cobra.Command, app *appState) {
	flags := cmd.Flags()
	flags.StringVar(&app.language, "language", app.language, "Source language name or code; auto detects")
	flags.StringVar(&app.model, "model", app.model, "Model name or model file path")
	flags.StringVar(&app.task, "task", app.task, "Task: transcribe or translate")
	flags.StringVar(&app.device, "device", app.device, "Compute device: auto, cpu, or cuda")
	flags.StringVarP(&app.outputDir, "output-dir", "o", app.outputDir, "Directory for transcripts; default is next to each input")
	flags.StringSliceVar(&app.formats, "format", app.formats, "Output formats: txt, srt, vtt, json")
	flags.StringVar(&app.initialPrompt, "initial-prompt", app.initialPrompt, "Prompt fed to the engine to bias decoding")
	flags.StringVar(&app.promptProfile, "prompt-profile", app.promptProfile, "Saved prompt profile to use")
	flags.StringVar(&app.specifier, "specifier", app.specifier, "Language tag style in file names: language or code")
	flags.IntVar(&app.workers, "workers", app.workers, "Files to transcribe in parallel; 0 picks automatically")
	flags.StringVar(&app.engineName, "engine", app.engineName, "Engine: auto, bundled, or openai")
	flags.BoolVar(&app.autoDownload, "auto-download", app.autoDownload, "Download the model when it is missing")
	flags.IntVar(&app.beamSize, "beam-size", app.beamSize, "Beam search width")
	flags.IntVar(&app.bestOf, "best-of", app.bestOf, "Candidates to keep when sampling")
	flags.IntVar(&app.threads, "threads", app.threads, "Engine threads; 0 uses the engine default")
	flags.BoolVar(&app.keepWAV, "keep-wav", app.keepWAV, "Keep the extracted 16 kHz WAV next to the transcripts")
	flags.BoolVar(&app.copyToClip, "copy", app.copyToClip, "Copy the transcript to the clipboard (single file only)")
	bindModelDirFlag(cmd, app)
}

func bindModelDirFlag(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")
}

func (a *appState) initialize(cmd *cobra.Command) error {
	cfg, path, exists, err := config.Load(a.configPath)
	if err != nil {
		if cmd.Name() != "doctor" {
			return err
		}
		// doctor still runs on a broken config so it can report the problem.
		def := config.Default()
		cfg, exists = &def, true
		a.cfgErr = err
		path = a.configPath
		if path == "" {
			if p, perr := config.DefaultPath(); perr == nil {
				path = p
			}
		}
	}
	a.cfg, a.cfgPath, a.cfgExists = cfg, path, exists
	a.applyConfig(cmd.Flags())

	logger, err := logging.New(logging.Options{Verbose: a.verbose, JSON: a.jsonLogs})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

// applyConfig fills in every setting whose flag was not given on the command
// line from the config file. Precedence: flag, then file, then built-in
// default.
func (a *appState) applyConfig(flags *pflag.FlagSet) {
	changed := func(name string) bool {
		flag := flags.Lookup(name)
		return flag != nil && flag.Changed
	}
	if !changed("verbose") {
		a.verbose = a.cfg.Logging.Verbose
	}
	if !changed("json") {
		a.jsonLogs = a.cfg.Logging.JSON
	}
	if !changed("model") {
		a.model = a.cfg.Defaults.Model
	}
	if !changed("model-dir") && a.cfg.Paths.ModelDir != "" {
		a.modelDir = a.cfg.Paths.ModelDir
	}
	if !changed("language") {
		a.language = a.cfg.Defaults.Language
	}
	if !changed("task") {
		a.task = a.cfg.Defaults.Task
	}
	if !changed("device") {
		a.device = a.cfg.Defaults.Device
	}
	if !changed("output-dir") && a.cfg.Paths.OutputDir != "" {
		a.outputDir = a.cfg.Paths.OutputDir
	}
	if !changed("format") {
		a.formats = a.cfg.Defaults.Formats
	}
	if !changed("specifier") {
		a.specifier = a.cfg.Defaults.Specifier
	}
	if !changed("workers") {
		a.workers = a.cfg.Defaults.Workers
	}
	if !changed("engine") {
		a.engineName = a.cfg.Defaults.Engine
	}
}

func (a *appState) configuration() *config.Config {
	if a.cfg == nil {
		def := config.Default()
		a.cfg = &def
	}
	return a.cfg
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) openDefaultStore() (*store.Store, error) {
	path, err := platform.ResolveDatabasePath("")
	if err != nil {
		return nil, err
	}
	return store.Open(path)
}
