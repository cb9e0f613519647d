package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"voxscribe/internal/audio"
	"voxscribe/internal/ffmpeg"
	"voxscribe/internal/language"
	"voxscribe/internal/transcript"
	"voxscribe/internal/whisper"
)

// Engines that can ingest a source file as-is opt out of WAV extraction.
type sourceIngester interface {
	AcceptsSource(path string) bool
}

// process runs one file through the stages, filling in job.Language and
// job.Outputs. Status classification happens in runOne.
func (r *run) process(ctx context.Context, job *Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(job.Source)
	if err != nil {
		return fmt.Errorf("input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not an audio file", job.Source)
	}

	if d, probeErr := r.probe(ctx, r.ffmpegPath, job.Source); probeErr == nil {
		job.Duration = d
	} else {
		r.logger.Debug("duration probe failed", zap.String("file", job.Source), zap.Error(probeErr))
	}

	outputDir := r.outputDir(job.Source)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(job.Source), filepath.Ext(job.Source))

	audioPath := job.Source
	extracted := false
	if r.needsExtraction(job.Source) {
		r.setStatus(job, StatusExtracting)
		wavPath, cleanup, err := r.extractToWAV(ctx, job, outputDir, stem)
		if err != nil {
			return err
		}
		if cleanup != nil {
			defer cleanup()
		}
		audioPath = wavPath
		extracted = true
	}

	result, err := r.transcribe(ctx, job, audioPath, extracted)
	if err != nil {
		return err
	}
	job.Language = result.Language
	job.Text = result.Text

	r.setStatus(job, StatusWriting)
	specifier := language.Specifier(result.Language, r.req.SpecifierMode, result.Translated)
	for _, format := range r.formats {
		name := transcript.OutputName(stem, specifier, format)
		path, err := r.reservePath(outputDir, name)
		if err != nil {
			return err
		}
		if err := transcript.WriteFile(path, format, result); err != nil {
			return err
		}
		job.Outputs = append(job.Outputs, path)
	}

	return nil
}

// transcribe invokes the engine, short-circuiting silent extractions to an
// empty result so downstream writers still produce valid files.
func (r *run) transcribe(ctx context.Context, job *Job, audioPath string, extracted bool) (*whisper.Result, error) {
	if extracted {
		silent, metrics, err := r.analyze(audioPath, audio.DefaultSilenceThresholdDBFS)
		if err == nil && job.Duration == 0 {
			job.Duration = metrics.Duration()
		}
		switch {
		case err != nil:
			r.logger.Debug("silence analysis failed", zap.String("file", audioPath), zap.Error(err))
		case silent:
			r.logEvent(job, fmt.Sprintf("no speech detected in %s (%.1f dBFS), writing empty transcripts",
				filepath.Base(job.Source), metrics.RMSdBFS))
			result := &whisper.Result{Language: r.req.Language}
			if r.req.Task == whisper.TaskTranslate {
				result.Language = "en"
				result.Translated = true
			}
			return result, nil
		}
	}

	r.setStatus(job, StatusTranscribing)
	result, err := r.engine.Transcribe(ctx, whisper.TranscriptionRequest{
		AudioPath:     audioPath,
		ModelPath:     r.req.ModelPath,
		Language:      r.req.Language,
		Task:          r.req.Task,
		Device:        r.req.Device,
		InitialPrompt: r.req.InitialPrompt,
		BeamSize:      r.req.BeamSize,
		BestOf:        r.req.BestOf,
		Threads:       r.req.Threads,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return result, nil
}

// extractToWAV converts the source into the 16 kHz mono WAV the engine
// expects. With KeepWAV it lands next to the transcripts, otherwise in a
// temp dir removed by the returned cleanup.
func (r *run) extractToWAV(ctx context.Context, job *Job, outputDir, stem string) (string, func(), error) {
	if r.req.KeepWAV {
		wavPath, err := r.reservePath(outputDir, stem+".wav")
		if err != nil {
			return "", nil, err
		}
		if err := r.extract(ctx, r.ffmpegPath, job.Source, wavPath, r.logger); err != nil {
			os.Remove(wavPath)
			return "", nil, err
		}
		job.Outputs = append(job.Outputs, wavPath)
		r.logEvent(job, fmt.Sprintf("kept extracted audio at %s", wavPath))
		return wavPath, nil, nil
	}

	tempDir, err := os.MkdirTemp("", "voxscribe-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp directory: %w", err)
	}

	wavPath := filepath.Join(tempDir, stem+".wav")
	if err := r.extract(ctx, r.ffmpegPath, job.Source, wavPath, r.logger); err != nil {
		os.RemoveAll(tempDir)
		return "", nil, err
	}
	return wavPath, func() { os.RemoveAll(tempDir) }, nil
}

func (r *run) needsExtraction(source string) bool {
	if ing, ok := r.engine.(sourceIngester); ok && ing.AcceptsSource(source) {
		return false
	}
	return true
}

// probeSourceDuration reports the media length when an ffprobe is installed
// next to ffmpeg or on PATH. History rows carry it as metadata.
func probeSourceDuration(ctx context.Context, ffmpegPath, src string) (time.Duration, error) {
	probePath, err := ffmpeg.LocateProbe(ffmpegPath)
	if err != nil {
		return 0, err
	}
	return ffmpeg.ProbeDuration(ctx, probePath, src)
}

// reservePath picks a collision-free output path and claims it with an empty
// file. Claiming under the lock keeps same-stem inputs running in parallel
// from landing on one path.
func (r *run) reservePath(dir, name string) (string, error) {
	r.outMu.Lock()
	defer r.outMu.Unlock()

	path := transcript.UniquePath(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("reserve output path: %w", err)
	}
	f.Close()
	return path, nil
}
