package whisper

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	TaskTranscribe = "transcribe"
	TaskTranslate  = "translate"
)

const (
	DeviceAuto = "auto"
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

// Decode defaults matching the engine's own.
const (
	DefaultBeamSize = 5
	DefaultBestOf   = 5
)

type TranscriptionRequest struct {
	AudioPath     string
	ModelPath     string
	Language      string // canonical code, empty means autodetect
	Task          string
	Device        string
	InitialPrompt string
	BeamSize      int
	BestOf        int
	Threads       int
}

type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type Result struct {
	Language   string
	Translated bool
	Segments   []Segment
	Text       string
}

type Engine interface {
	Name() string
	Transcribe(ctx context.Context, req TranscriptionRequest) (*Result, error)
}

func ValidTask(task string) bool {
	return task == TaskTranscribe || task == TaskTranslate
}

func ValidDevice(device string) bool {
	switch device {
	case DeviceAuto, DeviceCPU, DeviceCUDA:
		return true
	}
	return false
}

func (r TranscriptionRequest) validate() error {
	if strings.TrimSpace(r.AudioPath) == "" {
		return errors.New("audio path is required")
	}
	if strings.TrimSpace(r.ModelPath) == "" {
		return errors.New("model path is required")
	}
	if r.Task != "" && !ValidTask(r.Task) {
		return fmt.Errorf("invalid task %q (valid: %s, %s)", r.Task, TaskTranscribe, TaskTranslate)
	}
	if r.Device != "" && !ValidDevice(r.Device) {
		return fmt.Errorf("invalid device %q (valid: %s, %s, %s)", r.Device, DeviceAuto, DeviceCPU, DeviceCUDA)
	}
	return nil
}

// JoinSegments renders the plain-text transcript: trimmed segment texts, one
// per line, blanks skipped.
func JoinSegments(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n")
}
