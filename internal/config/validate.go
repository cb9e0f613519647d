package config

import (
	"fmt"
	"os"
	"strings"

	"voxscribe/internal/language"
	"voxscribe/internal/transcript"
	"voxscribe/internal/whisper"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.ModelDir, err = expandPath(strings.TrimSpace(c.Paths.ModelDir)); err != nil {
		return fmt.Errorf("paths.model_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}

	c.Defaults.Model = strings.TrimSpace(c.Defaults.Model)
	if c.Defaults.Model == "" {
		c.Defaults.Model = whisper.DefaultModel
	}

	c.Defaults.Language = strings.ToLower(strings.TrimSpace(c.Defaults.Language))
	if c.Defaults.Language == "" {
		c.Defaults.Language = "auto"
	}

	c.Defaults.Task = strings.ToLower(strings.TrimSpace(c.Defaults.Task))
	if c.Defaults.Task == "" {
		c.Defaults.Task = whisper.TaskTranscribe
	}

	c.Defaults.Device = strings.ToLower(strings.TrimSpace(c.Defaults.Device))
	if c.Defaults.Device == "" {
		c.Defaults.Device = whisper.DeviceAuto
	}

	c.Defaults.Specifier = strings.ToLower(strings.TrimSpace(c.Defaults.Specifier))
	if c.Defaults.Specifier == "" {
		c.Defaults.Specifier = language.SpecifierName
	}

	c.Defaults.Engine = strings.ToLower(strings.TrimSpace(c.Defaults.Engine))
	if c.Defaults.Engine == "" {
		c.Defaults.Engine = EngineAuto
	}

	c.Defaults.Formats = normalizeFormats(c.Defaults.Formats)

	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	if value, ok := os.LookupEnv("VOXSCRIBE_OPENAI_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.OpenAI.APIKey = strings.TrimSpace(value)
	} else if c.OpenAI.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.OpenAI.APIKey = strings.TrimSpace(value)
		}
	}
	c.OpenAI.BaseURL = strings.TrimSpace(c.OpenAI.BaseURL)

	return nil
}

func normalizeFormats(formats []string) []string {
	if len(formats) == 0 {
		return transcript.DefaultFormats()
	}
	out := make([]string, 0, len(formats))
	seen := make(map[string]struct{}, len(formats))
	for _, format := range formats {
		normalized := strings.ToLower(strings.TrimSpace(format))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	if len(out) == 0 {
		return transcript.DefaultFormats()
	}
	return out
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if _, err := language.Normalize(c.Defaults.Language); err != nil {
		return fmt.Errorf("defaults.language: %w", err)
	}
	if !whisper.ValidTask(c.Defaults.Task) {
		return fmt.Errorf("defaults.task must be %q or %q, got %q", whisper.TaskTranscribe, whisper.TaskTranslate, c.Defaults.Task)
	}
	if !whisper.ValidDevice(c.Defaults.Device) {
		return fmt.Errorf("defaults.device must be one of auto, cpu, cuda, got %q", c.Defaults.Device)
	}
	if !language.ValidSpecifierMode(c.Defaults.Specifier) {
		return fmt.Errorf("defaults.specifier must be %q or %q, got %q", language.SpecifierName, language.SpecifierCode, c.Defaults.Specifier)
	}
	for _, format := range c.Defaults.Formats {
		if !transcript.ValidFormat(format) {
			return fmt.Errorf("defaults.formats: unknown format %q", format)
		}
	}
	if c.Defaults.Workers < 0 {
		return fmt.Errorf("defaults.workers must be >= 0, got %d", c.Defaults.Workers)
	}
	if !ValidEngine(c.Defaults.Engine) {
		return fmt.Errorf("defaults.engine must be one of auto, bundled, openai, got %q", c.Defaults.Engine)
	}
	if c.Defaults.Engine == EngineOpenAI && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key must be set when defaults.engine is %q (or set VOXSCRIBE_OPENAI_API_KEY)", EngineOpenAI)
	}
	return nil
}
