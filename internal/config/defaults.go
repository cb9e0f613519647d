package config

import (
	"voxscribe/internal/language"
	"voxscribe/internal/transcript"
	"voxscribe/internal/whisper"
)

// Engine selection values for defaults.engine and --engine.
const (
	EngineAuto    = "auto"
	EngineBundled = "bundled"
	EngineOpenAI  = "openai"
)

// ValidEngine reports whether name is a recognized engine selection.
func ValidEngine(name string) bool {
	switch name {
	case EngineAuto, EngineBundled, EngineOpenAI:
		return true
	}
	return false
}

// Default returns a Config populated with the stock defaults.
func Default() Config {
	return Config{
		Defaults: Defaults{
			Model:     whisper.DefaultModel,
			Language:  "auto",
			Task:      whisper.TaskTranscribe,
			Device:    whisper.DeviceAuto,
			Formats:   transcript.DefaultFormats(),
			Specifier: language.SpecifierName,
			Engine:    EngineAuto,
		},
	}
}
