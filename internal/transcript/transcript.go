package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	FormatTXT  = "txt"
	FormatSRT  = "srt"
	FormatVTT  = "vtt"
	FormatJSON = "json"
)

// DefaultFormats are written when the user does not choose.
func DefaultFormats() []string {
	return []string{FormatTXT, FormatSRT, FormatVTT}
}

func ValidFormat(format string) bool {
	switch format {
	case FormatTXT, FormatSRT, FormatVTT, FormatJSON:
		return true
	}
	return false
}

// ParseFormats expands comma-separated or repeated format values into a
// deduplicated list, rejecting unknown names.
func ParseFormats(values []string) ([]string, error) {
	var formats []string
	seen := make(map[string]struct{})

	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			format := strings.ToLower(strings.TrimSpace(part))
			if format == "" {
				continue
			}
			if !ValidFormat(format) {
				return nil, fmt.Errorf("unknown format %q (valid: %s, %s, %s, %s)", part, FormatTXT, FormatSRT, FormatVTT, FormatJSON)
			}
			if _, ok := seen[format]; ok {
				continue
			}
			seen[format] = struct{}{}
			formats = append(formats, format)
		}
	}

	if len(formats) == 0 {
		return DefaultFormats(), nil
	}
	return formats, nil
}

// OutputName builds the transcript file name: [stem].[specifier].[ext].
func OutputName(stem, specifier, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if specifier == "" {
		return stem + "." + ext
	}
	return stem + "." + specifier + "." + ext
}

// UniquePath returns dir/name, suffixing -1, -2... before the extension when
// the name is already taken, so transcripts of same-stem inputs never
// overwrite each other.
func UniquePath(dir, name string) string {
	candidate := filepath.Join(dir, name)
	if !pathExists(candidate) {
		return candidate
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", base, i, ext))
		if !pathExists(candidate) {
			return candidate
		}
	}
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
