package language

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type entry struct {
	code    string   // ISO 639-1 (or whisper's 3-letter exceptions)
	name    string   // canonical lowercase name
	aliases []string // alternate names accepted on input
}

// The language set the transcription engine was trained on.
var languages = []entry{
	{"en", "english", nil},
	{"zh", "chinese", []string{"mandarin"}},
	{"de", "german", nil},
	{"es", "spanish", []string{"castilian"}},
	{"ru", "russian", nil},
	{"ko", "korean", nil},
	{"fr", "french", nil},
	{"ja", "japanese", nil},
	{"pt", "portuguese", nil},
	{"tr", "turkish", nil},
	{"pl", "polish", nil},
	{"ca", "catalan", []string{"valencian"}},
	{"nl", "dutch", []string{"flemish"}},
	{"ar", "arabic", nil},
	{"sv", "swedish", nil},
	{"it", "italian", nil},
	{"id", "indonesian", nil},
	{"hi", "hindi", nil},
	{"fi", "finnish", nil},
	{"vi", "vietnamese", nil},
	{"he", "hebrew", nil},
	{"uk", "ukrainian", nil},
	{"el", "greek", nil},
	{"ms", "malay", nil},
	{"cs", "czech", nil},
	{"ro", "romanian", []string{"moldavian", "moldovan"}},
	{"da", "danish", nil},
	{"hu", "hungarian", nil},
	{"ta", "tamil", nil},
	{"no", "norwegian", nil},
	{"th", "thai", nil},
	{"ur", "urdu", nil},
	{"hr", "croatian", nil},
	{"bg", "bulgarian", nil},
	{"lt", "lithuanian", nil},
	{"la", "latin", nil},
	{"mi", "maori", nil},
	{"ml", "malayalam", nil},
	{"cy", "welsh", nil},
	{"sk", "slovak", nil},
	{"te", "telugu", nil},
	{"fa", "persian", nil},
	{"lv", "latvian", nil},
	{"bn", "bengali", nil},
	{"sr", "serbian", nil},
	{"az", "azerbaijani", nil},
	{"sl", "slovenian", nil},
	{"kn", "kannada", nil},
	{"et", "estonian", nil},
	{"mk", "macedonian", nil},
	{"br", "breton", nil},
	{"eu", "basque", nil},
	{"is", "icelandic", nil},
	{"hy", "armenian", nil},
	{"ne", "nepali", nil},
	{"mn", "mongolian", nil},
	{"bs", "bosnian", nil},
	{"kk", "kazakh", nil},
	{"sq", "albanian", nil},
	{"sw", "swahili", nil},
	{"gl", "galician", nil},
	{"mr", "marathi", nil},
	{"pa", "punjabi", []string{"panjabi"}},
	{"si", "sinhala", []string{"sinhalese"}},
	{"km", "khmer", nil},
	{"sn", "shona", nil},
	{"yo", "yoruba", nil},
	{"so", "somali", nil},
	{"af", "afrikaans", nil},
	{"oc", "occitan", nil},
	{"ka", "georgian", nil},
	{"be", "belarusian", nil},
	{"tg", "tajik", nil},
	{"sd", "sindhi", nil},
	{"gu", "gujarati", nil},
	{"am", "amharic", nil},
	{"yi", "yiddish", nil},
	{"lo", "lao", nil},
	{"uz", "uzbek", nil},
	{"fo", "faroese", nil},
	{"ht", "haitian creole", []string{"haitian"}},
	{"ps", "pashto", []string{"pushto"}},
	{"tk", "turkmen", nil},
	{"nn", "nynorsk", nil},
	{"mt", "maltese", nil},
	{"sa", "sanskrit", nil},
	{"lb", "luxembourgish", []string{"letzeburgesch"}},
	{"my", "myanmar", []string{"burmese"}},
	{"bo", "tibetan", nil},
	{"tl", "tagalog", nil},
	{"mg", "malagasy", nil},
	{"as", "assamese", nil},
	{"tt", "tatar", nil},
	{"haw", "hawaiian", nil},
	{"ln", "lingala", nil},
	{"ha", "hausa", nil},
	{"ba", "bashkir", nil},
	{"jw", "javanese", nil},
	{"su", "sundanese", nil},
}

// Index maps built at init time.
var (
	byCode map[string]*entry
	byName map[string]*entry
)

func init() {
	byCode = make(map[string]*entry, len(languages))
	byName = make(map[string]*entry, len(languages)*2)
	for i := range languages {
		e := &languages[i]
		byCode[e.code] = e
		byName[e.name] = e
		for _, alias := range e.aliases {
			byName[alias] = e
		}
	}
}

func lookup(input string) *entry {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return nil
	}
	if e, ok := byCode[input]; ok {
		return e
	}
	if e, ok := byName[input]; ok {
		return e
	}
	return nil
}

// Normalize resolves a user-supplied language (code or English name, any
// case) to its canonical code. Empty input and "auto" normalize to the empty
// string, which means autodetect.
func Normalize(input string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if trimmed == "" || trimmed == "auto" {
		return "", nil
	}
	if e := lookup(trimmed); e != nil {
		return e.code, nil
	}
	return "", fmt.Errorf("unknown language %q (see `voxscribe languages`)", input)
}

// NameOf returns the canonical lowercase name for a code, empty if unknown.
func NameOf(code string) string {
	if e := lookup(code); e != nil {
		return e.name
	}
	return ""
}

// CodeOf returns the code for a language name, empty if unknown.
func CodeOf(name string) string {
	if e := lookup(name); e != nil {
		return e.code
	}
	return ""
}

// DisplayName renders a code as a title-cased human name, falling back to
// the input verbatim for unrecognized codes.
func DisplayName(code string) string {
	name := NameOf(code)
	if name == "" {
		return code
	}
	return cases.Title(language.Und).String(name)
}

// Names returns all canonical language names, sorted.
func Names() []string {
	names := make([]string, 0, len(languages))
	for i := range languages {
		names = append(names, languages[i].name)
	}
	sort.Strings(names)
	return names
}

// Codes returns all language codes, sorted.
func Codes() []string {
	codes := make([]string, 0, len(languages))
	for i := range languages {
		codes = append(codes, languages[i].code)
	}
	sort.Strings(codes)
	return codes
}

const (
	SpecifierName = "language"
	SpecifierCode = "code"
)

// ValidSpecifierMode reports whether mode names a supported specifier style.
func ValidSpecifierMode(mode string) bool {
	return mode == SpecifierName || mode == SpecifierCode
}

// Specifier converts the language reported by the engine into the tag
// embedded in output file names. Translated results are always English no
// matter what language was detected. Unrecognized languages pass through
// verbatim.
func Specifier(detected, mode string, translated bool) string {
	if translated {
		if mode == SpecifierCode {
			return "en"
		}
		return "english"
	}

	detected = strings.ToLower(strings.TrimSpace(detected))
	e := lookup(detected)
	if e == nil {
		return detected
	}
	if mode == SpecifierCode {
		return e.code
	}
	return e.name
}
