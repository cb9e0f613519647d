package ffmpeg

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"voxscribe/internal/platform"
)

// Binary describes the resolved ffmpeg installation.
type Binary struct {
	Path    string
	Bundled bool
}

// Locate resolves the ffmpeg binary: the VOXSCRIBE_FFMPEG_PATH override, the
// per-platform bundle next to the voxscribe executable, a libexec sibling,
// then PATH.
func Locate(logger *zap.Logger) (Binary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if override := strings.TrimSpace(os.Getenv("VOXSCRIBE_FFMPEG_PATH")); override != "" {
		if err := ensureExecutable(override); err != nil {
			return Binary{}, fmt.Errorf("VOXSCRIBE_FFMPEG_PATH is not executable: %w", err)
		}
		return Binary{Path: override, Bundled: true}, nil
	}

	selfExe, err := os.Executable()
	if err != nil {
		return Binary{}, fmt.Errorf("resolve voxscribe executable path: %w", err)
	}

	rt := platform.CurrentRuntime()
	var brokenBundle error
	for _, candidate := range BundleCandidates(selfExe, rt.OS, rt.Arch) {
		err := ensureExecutable(candidate)
		if err == nil {
			return Binary{Path: candidate, Bundled: true}, nil
		}
		if !os.IsNotExist(err) {
			logger.Debug("skipping ffmpeg candidate", zap.String("path", candidate), zap.Error(err))
			if brokenBundle == nil {
				brokenBundle = err
			}
		}
	}

	fromPath, err := exec.LookPath(binaryName("ffmpeg"))
	if err != nil {
		if brokenBundle != nil {
			return Binary{}, fmt.Errorf("bundled ffmpeg is unusable: %w", brokenBundle)
		}
		return Binary{}, fmt.Errorf("ffmpeg not found: no bundled copy near %s and nothing on PATH; install ffmpeg or reinstall voxscribe from an official release", selfExe)
	}
	return Binary{Path: fromPath}, nil
}

// BundleCandidates lists the bundled ffmpeg locations for an executable, in
// resolution order.
func BundleCandidates(selfExecutable, goos, arch string) []string {
	binDir := filepath.Dir(selfExecutable)
	name := binaryName("ffmpeg")

	var candidates []string
	if bundleDir, err := BundleDirFor(goos, arch); err == nil {
		candidates = append(candidates, filepath.Join(binDir, bundleDir, name))
	}
	candidates = append(candidates,
		filepath.Join(binDir, "..", "libexec", "ffmpeg", name),
		filepath.Join(binDir, name),
	)
	return candidates
}

// BundleDirFor maps a platform onto its directory inside the shipped ffmpeg
// tree. Linux splits by CPU architecture; everything else is flat.
func BundleDirFor(goos, arch string) (string, error) {
	switch goos {
	case "windows":
		return filepath.Join("ffmpeg", "windows"), nil
	case "darwin":
		return filepath.Join("ffmpeg", "mac"), nil
	case "linux":
		switch arch {
		case "amd64", "i686", "arm64", "armel", "armhf":
			return filepath.Join("ffmpeg", "linux", arch), nil
		case "arm":
			return filepath.Join("ffmpeg", "linux", "armhf"), nil
		default:
			return "", fmt.Errorf("no bundled ffmpeg for linux/%s", arch)
		}
	default:
		return "", fmt.Errorf("no bundled ffmpeg for %s", goos)
	}
}

// ApplyEnv prepends the directory of a bundled ffmpeg to PATH so every child
// process resolves the shipped binary ahead of any system install, and makes
// the engine's shared libraries loadable on linux.
func ApplyEnv(bin Binary, engineLibDir string) error {
	if bin.Bundled {
		if err := os.Setenv("PATH", PrependPath(os.Getenv("PATH"), filepath.Dir(bin.Path))); err != nil {
			return fmt.Errorf("update PATH: %w", err)
		}
	}

	if runtime.GOOS == "linux" && engineLibDir != "" {
		updated := appendPathList(os.Getenv("LD_LIBRARY_PATH"), engineLibDir)
		if err := os.Setenv("LD_LIBRARY_PATH", updated); err != nil {
			return fmt.Errorf("update LD_LIBRARY_PATH: %w", err)
		}
	}

	return nil
}

// PrependPath puts dir at the front of a PATH-style list, dropping any
// existing occurrence so the bundled copy always wins.
func PrependPath(current, dir string) string {
	if dir == "" {
		return current
	}

	var kept []string
	for _, part := range filepath.SplitList(current) {
		if part == dir || part == "" {
			continue
		}
		kept = append(kept, part)
	}

	parts := append([]string{dir}, kept...)
	return strings.Join(parts, string(os.PathListSeparator))
}

func appendPathList(current, dir string) string {
	for _, part := range filepath.SplitList(current) {
		if part == dir {
			return current
		}
	}
	if current == "" {
		return dir
	}
	return current + string(os.PathListSeparator) + dir
}

func binaryName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable (fix with: chmod +x %s)", path, path)
	}
	return nil
}
