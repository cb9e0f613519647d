package whisper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const DefaultModel = "base"

const modelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// Pointer files on the same host carry the upstream sha256 for weights we do
// not pin ourselves.
const modelPointerURL = "https://huggingface.co/ggerganov/whisper.cpp/raw/main/"

type Model struct {
	Name          string
	FileName      string
	URL           string
	SHA256        string
	SHA256URL     string
	Params        string
	VRAM          string
	RelativeSpeed string
	EnglishOnly   bool
}

type ResolvedModel struct {
	Name          string
	Path          string
	URL           string
	SHA256        string
	SHA256URL     string
	NeedsDownload bool
	IsCustomPath  bool
}

// Catalog rows in size order, smallest first.
var catalog = []Model{
	{
		Name:          "tiny",
		SHA256:        "be07e048e1e599ad46341c8d2a135645097a538221678b7acdd1b1919c6e1b21",
		Params:        "39 M",
		VRAM:          "~1 GB",
		RelativeSpeed: "~32x",
	},
	{
		Name:          "tiny.en",
		Params:        "39 M",
		VRAM:          "~1 GB",
		RelativeSpeed: "~32x",
		EnglishOnly:   true,
	},
	{
		Name:          "base",
		SHA256:        "60ed5bc3dd14eea856493d334349b405782ddcaf0028d4b5df4088345fba2efe",
		Params:        "74 M",
		VRAM:          "~1 GB",
		RelativeSpeed: "~16x",
	},
	{
		Name:          "base.en",
		Params:        "74 M",
		VRAM:          "~1 GB",
		RelativeSpeed: "~16x",
		EnglishOnly:   true,
	},
	{
		Name:          "small",
		SHA256:        "1be3a9b2063867b937e64e2ec7483364a79917e157fa98c5d94b5c1fffea987b",
		Params:        "244 M",
		VRAM:          "~2 GB",
		RelativeSpeed: "~6x",
	},
	{
		Name:          "small.en",
		Params:        "244 M",
		VRAM:          "~2 GB",
		RelativeSpeed: "~6x",
		EnglishOnly:   true,
	},
	{
		Name:          "medium",
		SHA256:        "6c14d5adee5f86394037b4e4e8b59f1673b6cee10e3cf0b11bbdbee79c156208",
		Params:        "769 M",
		VRAM:          "~5 GB",
		RelativeSpeed: "~2x",
	},
	{
		Name:          "medium.en",
		Params:        "769 M",
		VRAM:          "~5 GB",
		RelativeSpeed: "~2x",
		EnglishOnly:   true,
	},
	{
		Name:          "large-v3",
		SHA256:        "64d182b440b98d5203c4f9bd541544d84c605196c4f7b845dfa11fb23594d1e2",
		Params:        "1550 M",
		VRAM:          "~10 GB",
		RelativeSpeed: "1x",
	},
	{
		Name:          "large-v3-turbo",
		Params:        "809 M",
		VRAM:          "~6 GB",
		RelativeSpeed: "~8x",
	},
}

var registry map[string]Model

func init() {
	registry = make(map[string]Model, len(catalog))
	for i := range catalog {
		m := &catalog[i]
		m.FileName = "ggml-" + m.Name + ".bin"
		m.URL = modelBaseURL + m.FileName
		if m.SHA256 == "" {
			m.SHA256URL = modelPointerURL + m.FileName
		}
		registry[m.Name] = *m
	}
}

// Catalog returns the model table in size order.
func Catalog() []Model {
	models := make([]Model, len(catalog))
	copy(models, catalog)
	return models
}

// ModelNames returns catalog names in size order.
func ModelNames() []string {
	names := make([]string, 0, len(catalog))
	for i := range catalog {
		names = append(names, catalog[i].Name)
	}
	return names
}

func LookupModel(name string) (Model, bool) {
	model, ok := registry[strings.TrimSpace(name)]
	return model, ok
}

func ResolveModel(modelRef, modelDir string) (ResolvedModel, error) {
	if strings.TrimSpace(modelRef) == "" {
		modelRef = DefaultModel
	}

	if model, ok := LookupModel(modelRef); ok {
		if strings.TrimSpace(modelDir) == "" {
			return ResolvedModel{}, errors.New("model directory must not be empty for named model")
		}

		modelPath := filepath.Join(modelDir, model.FileName)
		_, statErr := os.Stat(modelPath)
		needsDownload := errors.Is(statErr, os.ErrNotExist)
		if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
			return ResolvedModel{}, fmt.Errorf("stat model path: %w", statErr)
		}

		return ResolvedModel{
			Name:          model.Name,
			Path:          modelPath,
			URL:           model.URL,
			SHA256:        model.SHA256,
			SHA256URL:     model.SHA256URL,
			NeedsDownload: needsDownload,
		}, nil
	}

	if !looksLikePath(modelRef) {
		return ResolvedModel{}, fmt.Errorf("unknown model %q (known models: %s)", modelRef, strings.Join(ModelNames(), ", "))
	}

	customPath := filepath.Clean(modelRef)
	if _, err := os.Stat(customPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ResolvedModel{}, fmt.Errorf("custom model path does not exist: %s", customPath)
		}
		return ResolvedModel{}, fmt.Errorf("stat custom model path: %w", err)
	}

	return ResolvedModel{
		Path:         customPath,
		IsCustomPath: true,
	}, nil
}

func looksLikePath(input string) bool {
	return strings.ContainsRune(input, os.PathSeparator) || strings.HasSuffix(strings.ToLower(input), ".bin")
}
