package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"voxscribe/internal/whisper"
)

// WriteFile renders a transcription result into path using the given format.
func WriteFile(path, format string, result *whisper.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create transcript file: %w", err)
	}

	var writeErr error
	switch format {
	case FormatTXT:
		writeErr = WriteTXT(f, result.Segments)
	case FormatSRT:
		writeErr = WriteSRT(f, result.Segments)
	case FormatVTT:
		writeErr = WriteVTT(f, result.Segments)
	case FormatJSON:
		writeErr = WriteJSON(f, result)
	default:
		writeErr = fmt.Errorf("unknown format %q", format)
	}

	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return fmt.Errorf("write %s transcript: %w", format, writeErr)
	}
	return nil
}

// WriteTXT emits one line of text per segment.
func WriteTXT(w io.Writer, segments []whisper.Segment) error {
	bw := bufio.NewWriter(w)
	for _, seg := range segments {
		if _, err := fmt.Fprintln(bw, strings.TrimSpace(seg.Text)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteSRT emits SubRip cues: 1-based index, comma decimals, hours always on.
func WriteSRT(w io.Writer, segments []whisper.Segment) error {
	bw := bufio.NewWriter(w)
	for i, seg := range segments {
		_, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			i+1,
			FormatTimestamp(seg.Start, true, ','),
			FormatTimestamp(seg.End, true, ','),
			sanitizeCueText(seg.Text),
		)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteVTT emits WebVTT cues: header, dot decimals, hours only when nonzero.
func WriteVTT(w io.Writer, segments []whisper.Segment) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprint(bw, "WEBVTT\n\n"); err != nil {
		return err
	}
	for _, seg := range segments {
		_, err := fmt.Fprintf(bw, "%s --> %s\n%s\n\n",
			FormatTimestamp(seg.Start, false, '.'),
			FormatTimestamp(seg.End, false, '.'),
			sanitizeCueText(seg.Text),
		)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

type jsonTranscript struct {
	Language string            `json:"language"`
	Text     string            `json:"text"`
	Segments []whisper.Segment `json:"segments"`
}

// WriteJSON emits the detected language plus all segments with timestamps.
func WriteJSON(w io.Writer, result *whisper.Result) error {
	segments := result.Segments
	if segments == nil {
		segments = []whisper.Segment{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonTranscript{
		Language: result.Language,
		Text:     result.Text,
		Segments: segments,
	})
}

// FormatTimestamp renders seconds as [HH:]MM:SS + decimal marker + millis.
// Hours appear when alwaysHours is set or the value reaches one hour.
// Negative and non-finite inputs clamp to zero.
func FormatTimestamp(seconds float64, alwaysHours bool, decimalMarker byte) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}

	millis := int64(math.Round(seconds * 1000.0))

	hours := millis / 3_600_000
	millis -= hours * 3_600_000
	minutes := millis / 60_000
	millis -= minutes * 60_000
	secs := millis / 1000
	millis -= secs * 1000

	var b strings.Builder
	if alwaysHours || hours > 0 {
		fmt.Fprintf(&b, "%02d:", hours)
	}
	fmt.Fprintf(&b, "%02d:%02d%c%03d", minutes, secs, decimalMarker, millis)
	return b.String()
}

// Arrows inside cue text would terminate the cue early in some players.
func sanitizeCueText(text string) string {
	return strings.ReplaceAll(strings.TrimSpace(text), "-->", "->")
}
