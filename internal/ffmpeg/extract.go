package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ExtractAudio converts any audio/video input into the 16 kHz mono PCM WAV
// the transcription engine expects.
func ExtractAudio(ctx context.Context, ffmpegPath, src, dst string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	args := buildExtractArgs(src, dst)

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	logger.Debug("extracting audio", zap.String("ffmpeg", ffmpegPath), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg extraction failed: %w (%s)", err, tailLines(output.String(), 4))
	}

	if info, err := os.Stat(dst); err != nil || info.Size() == 0 {
		return fmt.Errorf("ffmpeg reported success but produced no audio at %s", dst)
	}

	return nil
}

func buildExtractArgs(src, dst string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", src,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dst,
	}
}

// ProbeDuration asks ffprobe for the input's duration. Callers treat a
// failure as missing metadata, not a fatal error.
func ProbeDuration(ctx context.Context, ffprobePath, src string) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		src,
	}

	out, err := exec.CommandContext(ctx, ffprobePath, args...).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration: %w", err)
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

// LocateProbe finds ffprobe next to the resolved ffmpeg, falling back to PATH.
func LocateProbe(ffmpegPath string) (string, error) {
	sibling := filepath.Join(filepath.Dir(ffmpegPath), binaryName("ffprobe"))
	if err := ensureExecutable(sibling); err == nil {
		return sibling, nil
	}
	return exec.LookPath(binaryName("ffprobe"))
}

func tailLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
