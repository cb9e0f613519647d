// Package remote transcribes through the hosted OpenAI audio API instead of
// the bundled engine.
package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"voxscribe/internal/language"
	"voxscribe/internal/whisper"
)

// maxUploadBytes is the API's hard cap per audio upload.
const maxUploadBytes = 25 << 20

// Container formats the API ingests without re-encoding.
var acceptedExtensions = map[string]struct{}{
	".flac": {},
	".m4a":  {},
	".mp3":  {},
	".mp4":  {},
	".mpeg": {},
	".mpga": {},
	".oga":  {},
	".ogg":  {},
	".wav":  {},
	".webm": {},
}

// Engine sends audio to the hosted API. It ignores the local-only request
// fields (model path, device, decode tuning).
type Engine struct {
	client *openai.Client
}

// NewEngine builds a hosted engine. baseURL overrides the default endpoint
// when pointing at a compatible server.
func NewEngine(apiKey, baseURL string) (*Engine, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing OpenAI API key (set openai.api_key in the config or VOXSCRIBE_OPENAI_API_KEY)")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Engine{client: openai.NewClientWithConfig(cfg)}, nil
}

func (e *Engine) Name() string {
	return "openai"
}

// AcceptsSource reports whether the API takes this file as-is. Compressed
// originals often fit under the upload cap where an extracted WAV would not.
func (e *Engine) AcceptsSource(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := acceptedExtensions[ext]
	return ok
}

func (e *Engine) Transcribe(ctx context.Context, req whisper.TranscriptionRequest) (*whisper.Result, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return nil, errors.New("audio path is required")
	}
	if req.Task != "" && !whisper.ValidTask(req.Task) {
		return nil, fmt.Errorf("invalid task %q (valid: %s, %s)", req.Task, whisper.TaskTranscribe, whisper.TaskTranslate)
	}

	if err := checkUploadSize(req.AudioPath); err != nil {
		return nil, err
	}

	audioReq := openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: req.AudioPath,
		Prompt:   req.InitialPrompt,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}

	var (
		resp openai.AudioResponse
		err  error
	)
	if req.Task == whisper.TaskTranslate {
		resp, err = e.client.CreateTranslation(ctx, audioReq)
	} else {
		audioReq.Language = req.Language
		resp, err = e.client.CreateTranscription(ctx, audioReq)
	}
	if err != nil {
		return nil, fmt.Errorf("hosted transcription failed: %w", err)
	}

	return buildResult(resp, req.Task == whisper.TaskTranslate), nil
}

func checkUploadSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat audio file: %w", err)
	}
	if info.Size() > maxUploadBytes {
		return fmt.Errorf("%s is %.1f MB, over the hosted API's 25 MB upload limit; re-encode it smaller with ffmpeg (e.g. `ffmpeg -i %s -ac 1 -b:a 48k out.ogg`) or split it",
			path, float64(info.Size())/(1<<20), path)
	}
	return nil
}

func buildResult(resp openai.AudioResponse, translated bool) *whisper.Result {
	segments := make([]whisper.Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, whisper.Segment{
			ID:    seg.ID,
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		text = whisper.JoinSegments(segments)
	}

	result := &whisper.Result{
		Language:   detectedCode(resp.Language),
		Translated: translated,
		Segments:   segments,
		Text:       text,
	}
	if translated {
		result.Language = "en"
	}
	return result
}

// detectedCode maps the API's language field (a full name like "english")
// back to the canonical code. Unknown values pass through untouched.
func detectedCode(detected string) string {
	detected = strings.ToLower(strings.TrimSpace(detected))
	if detected == "" {
		return ""
	}
	if code, err := language.Normalize(detected); err == nil && code != "" {
		return code
	}
	return detected
}
