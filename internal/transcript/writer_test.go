package transcript

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"voxscribe/internal/whisper"
)

func sampleSegments() []whisper.Segment {
	return []whisper.Segment{
		{ID: 0, Start: 0, End: 2.5, Text: " Hello there. "},
		{ID: 1, Start: 2.5, End: 4.12, Text: "General Kenobi."},
	}
}

func TestWriteTXT(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteTXT(&buf, sampleSegments()))
	require.Equal(t, "Hello there.\nGeneral Kenobi.\n", buf.String())
}

func TestWriteTXTEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteTXT(&buf, nil))
	require.Equal(t, "", buf.String())
}

func TestWriteSRT(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteSRT(&buf, sampleSegments()))
	require.Equal(t, "1\n00:00:00,000 --> 00:00:02,500\nHello there.\n\n2\n00:00:02,500 --> 00:00:04,120\nGeneral Kenobi.\n\n", buf.String())
}

func TestWriteVTT(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteVTT(&buf, sampleSegments()))
	require.Equal(t, "WEBVTT\n\n00:00.000 --> 00:02.500\nHello there.\n\n00:02.500 --> 00:04.120\nGeneral Kenobi.\n\n", buf.String())
}

func TestWriteVTTEmptyStillHasHeader(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteVTT(&buf, nil))
	require.Equal(t, "WEBVTT\n\n", buf.String())
}

func TestCueTextArrowsAreNeutralized(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	segments := []whisper.Segment{{Start: 0, End: 1, Text: "a --> b"}}
	require.NoError(t, WriteVTT(&buf, segments))
	require.Contains(t, buf.String(), "a -> b")
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	result := &whisper.Result{
		Language: "en",
		Segments: sampleSegments(),
		Text:     "Hello there.\nGeneral Kenobi.",
	}
	require.NoError(t, WriteJSON(&buf, result))

	var decoded struct {
		Language string `json:"language"`
		Text     string `json:"text"`
		Segments []struct {
			ID    int     `json:"id"`
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Text  string  `json:"text"`
		} `json:"segments"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "en", decoded.Language)
	require.Len(t, decoded.Segments, 2)
	require.Equal(t, 4.12, decoded.Segments[1].End)
}

func TestWriteJSONEmptySegmentsStaysArray(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, &whisper.Result{Language: "en"}))
	require.Contains(t, buf.String(), `"segments": []`)
}

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		seconds     float64
		alwaysHours bool
		marker      byte
		want        string
	}{
		{name: "zero srt", seconds: 0, alwaysHours: true, marker: ',', want: "00:00:00,000"},
		{name: "zero vtt", seconds: 0, alwaysHours: false, marker: '.', want: "00:00.000"},
		{name: "subsecond", seconds: 0.5, alwaysHours: false, marker: '.', want: "00:00.500"},
		{name: "minutes", seconds: 125.25, alwaysHours: false, marker: '.', want: "02:05.250"},
		{name: "hours forced", seconds: 125.25, alwaysHours: true, marker: ',', want: "00:02:05,250"},
		{name: "hours when reached", seconds: 3725.001, alwaysHours: false, marker: '.', want: "01:02:05.001"},
		{name: "negative clamps", seconds: -3, alwaysHours: true, marker: ',', want: "00:00:00,000"},
		{name: "nan clamps", seconds: math.NaN(), alwaysHours: false, marker: '.', want: "00:00.000"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, FormatTimestamp(tt.seconds, tt.alwaysHours, tt.marker))
		})
	}
}

func TestOutputName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "meeting.english.srt", OutputName("meeting", "english", "srt"))
	require.Equal(t, "meeting.en.txt", OutputName("meeting", "en", ".txt"))
	require.Equal(t, "meeting.json", OutputName("meeting", "", "json"))
}

func TestUniquePathSuffixesCollisions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	first := UniquePath(dir, "talk.english.txt")
	require.Equal(t, filepath.Join(dir, "talk.english.txt"), first)
	require.NoError(t, os.WriteFile(first, []byte("a"), 0o644))

	second := UniquePath(dir, "talk.english.txt")
	require.Equal(t, filepath.Join(dir, "talk.english-1.txt"), second)
	require.NoError(t, os.WriteFile(second, []byte("b"), 0o644))

	third := UniquePath(dir, "talk.english.txt")
	require.Equal(t, filepath.Join(dir, "talk.english-2.txt"), third)
}

func TestParseFormats(t *testing.T) {
	t.Parallel()

	formats, err := ParseFormats([]string{"txt,srt", "vtt", "srt"})
	require.NoError(t, err)
	require.Equal(t, []string{"txt", "srt", "vtt"}, formats)

	formats, err = ParseFormats(nil)
	require.NoError(t, err)
	require.Equal(t, DefaultFormats(), formats)

	_, err = ParseFormats([]string{"docx"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "docx")
}

func TestWriteFileDispatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	result := &whisper.Result{Language: "en", Segments: sampleSegments(), Text: "x"}

	for _, format := range []string{FormatTXT, FormatSRT, FormatVTT, FormatJSON} {
		path := filepath.Join(dir, "out."+format)
		require.NoError(t, WriteFile(path, format, result))
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NotEmpty(t, content)
	}

	err := WriteFile(filepath.Join(dir, "out.bad"), "docx", result)
	require.Error(t, err)
}
