package ffmpeg

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBundleDirFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		goos string
		arch string
		want string
	}{
		{goos: "windows", arch: "amd64", want: filepath.Join("ffmpeg", "windows")},
		{goos: "darwin", arch: "arm64", want: filepath.Join("ffmpeg", "mac")},
		{goos: "linux", arch: "amd64", want: filepath.Join("ffmpeg", "linux", "amd64")},
		{goos: "linux", arch: "i686", want: filepath.Join("ffmpeg", "linux", "i686")},
		{goos: "linux", arch: "arm64", want: filepath.Join("ffmpeg", "linux", "arm64")},
		{goos: "linux", arch: "armel", want: filepath.Join("ffmpeg", "linux", "armel")},
		{goos: "linux", arch: "armhf", want: filepath.Join("ffmpeg", "linux", "armhf")},
		{goos: "linux", arch: "arm", want: filepath.Join("ffmpeg", "linux", "armhf")},
	}

	for _, tt := range tests {
		dir, err := BundleDirFor(tt.goos, tt.arch)
		require.NoError(t, err, "%s/%s", tt.goos, tt.arch)
		require.Equal(t, tt.want, dir)
	}
}

func TestBundleDirForUnsupported(t *testing.T) {
	t.Parallel()

	_, err := BundleDirFor("linux", "mips")
	require.Error(t, err)

	_, err = BundleDirFor("plan9", "amd64")
	require.Error(t, err)
}

func TestBundleCandidatesOrder(t *testing.T) {
	t.Parallel()

	candidates := BundleCandidates("/opt/voxscribe/bin/voxscribe", "linux", "amd64")
	require.Len(t, candidates, 3)
	require.Contains(t, candidates[0], filepath.Join("ffmpeg", "linux", "amd64"))
	require.Contains(t, candidates[1], filepath.Join("libexec", "ffmpeg"))
	require.Equal(t, filepath.Dir(candidates[2]), "/opt/voxscribe/bin")
}

func TestPrependPathPutsBundleFirst(t *testing.T) {
	t.Parallel()

	sep := string(filepath.ListSeparator)
	current := strings.Join([]string{"/usr/local/bin", "/usr/bin"}, sep)

	updated := PrependPath(current, "/opt/voxscribe/ffmpeg/linux/amd64")
	parts := filepath.SplitList(updated)
	require.Equal(t, "/opt/voxscribe/ffmpeg/linux/amd64", parts[0])
	require.Equal(t, []string{"/opt/voxscribe/ffmpeg/linux/amd64", "/usr/local/bin", "/usr/bin"}, parts)
}

func TestPrependPathDeduplicates(t *testing.T) {
	t.Parallel()

	sep := string(filepath.ListSeparator)
	current := strings.Join([]string{"/usr/bin", "/opt/ff", "/bin"}, sep)

	updated := PrependPath(current, "/opt/ff")
	require.Equal(t, []string{"/opt/ff", "/usr/bin", "/bin"}, filepath.SplitList(updated))
}

func TestPrependPathEmptyCurrent(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/opt/ff", PrependPath("", "/opt/ff"))
	require.Equal(t, "keep", PrependPath("keep", ""))
}

func TestAppendPathListIsIdempotent(t *testing.T) {
	t.Parallel()

	first := appendPathList("", "/opt/libexec/whisper")
	require.Equal(t, "/opt/libexec/whisper", first)

	second := appendPathList(first, "/opt/libexec/whisper")
	require.Equal(t, first, second)
}

func TestBuildExtractArgs(t *testing.T) {
	t.Parallel()

	args := buildExtractArgs("/media/talk.mp4", "/tmp/talk.wav")
	require.Equal(t, []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", "/media/talk.mp4",
		"-vn", "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le",
		"/tmp/talk.wav",
	}, args)
}

func TestTailLines(t *testing.T) {
	t.Parallel()

	require.Equal(t, "c | d", tailLines("a\nb\nc\nd", 2))
	require.Equal(t, "only", tailLines("only", 4))
}
