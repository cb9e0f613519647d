package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"voxscribe/internal/whisper"
)

const verboseResponse = `{
  "task": "transcribe",
  "language": "english",
  "duration": 4.5,
  "segments": [
    {"id": 0, "seek": 0, "start": 0.0, "end": 2.5, "text": " Hello there."},
    {"id": 1, "seek": 0, "start": 2.5, "end": 4.5, "text": " General Kenobi."}
  ],
  "text": "Hello there. General Kenobi."
}`

func writeAudioFixture(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF fake audio"), 0o644))
	return path
}

func TestNewEngineRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewEngine("  ", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "API key")

	engine, err := NewEngine("sk-test", "")
	require.NoError(t, err)
	require.Equal(t, "openai", engine.Name())
}

func TestTranscribeMapsVerboseResponse(t *testing.T) {
	t.Parallel()

	var form struct {
		model, language, prompt, format string
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		form.model = r.FormValue("model")
		form.language = r.FormValue("language")
		form.prompt = r.FormValue("prompt")
		form.format = r.FormValue("response_format")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(verboseResponse))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	engine, err := NewEngine("sk-test", server.URL+"/v1")
	require.NoError(t, err)

	result, err := engine.Transcribe(context.Background(), whisper.TranscriptionRequest{
		AudioPath:     writeAudioFixture(t),
		Language:      "de",
		Task:          whisper.TaskTranscribe,
		InitialPrompt: "Jargon: voxscribe.",
	})
	require.NoError(t, err)

	require.Equal(t, "whisper-1", form.model)
	require.Equal(t, "de", form.language)
	require.Equal(t, "Jargon: voxscribe.", form.prompt)
	require.Equal(t, "verbose_json", form.format)

	require.Equal(t, "en", result.Language)
	require.False(t, result.Translated)
	require.Len(t, result.Segments, 2)
	require.Equal(t, "Hello there.", result.Segments[0].Text)
	require.InDelta(t, 2.5, result.Segments[0].End, 0.0001)
	require.InDelta(t, 4.5, result.Segments[1].End, 0.0001)
	require.Equal(t, "Hello there. General Kenobi.", result.Text)
}

func TestTranslateUsesTranslationEndpoint(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/audio/translations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"task": "translate", "language": "german", "segments": [{"id": 0, "start": 0, "end": 1.5, "text": " Good morning."}], "text": "Good morning."}`))
	})
	mux.HandleFunc("/v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		t.Error("translate request must not hit the transcription endpoint")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	engine, err := NewEngine("sk-test", server.URL+"/v1")
	require.NoError(t, err)

	result, err := engine.Transcribe(context.Background(), whisper.TranscriptionRequest{
		AudioPath: writeAudioFixture(t),
		Task:      whisper.TaskTranslate,
	})
	require.NoError(t, err)
	require.True(t, result.Translated)
	require.Equal(t, "en", result.Language)
	require.Equal(t, "Good morning.", result.Text)
}

func TestTranscribeRejectsOversizedUpload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "huge.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(maxUploadBytes+1))
	require.NoError(t, f.Close())

	engine, err := NewEngine("sk-test", "")
	require.NoError(t, err)

	_, err = engine.Transcribe(context.Background(), whisper.TranscriptionRequest{AudioPath: path})
	require.Error(t, err)
	require.Contains(t, err.Error(), "25 MB")
	require.Contains(t, err.Error(), "ffmpeg")
}

func TestTranscribeRejectsInvalidTask(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine("sk-test", "")
	require.NoError(t, err)

	_, err = engine.Transcribe(context.Background(), whisper.TranscriptionRequest{
		AudioPath: writeAudioFixture(t),
		Task:      "summarize",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid task")
}

func TestAcceptsSource(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine("sk-test", "")
	require.NoError(t, err)

	require.True(t, engine.AcceptsSource("/media/podcast.mp3"))
	require.True(t, engine.AcceptsSource("clip.M4A"))
	require.True(t, engine.AcceptsSource("talk.webm"))
	require.False(t, engine.AcceptsSource("raw.mkv"))
	require.False(t, engine.AcceptsSource("notes.txt"))
	require.False(t, engine.AcceptsSource("noext"))
}
