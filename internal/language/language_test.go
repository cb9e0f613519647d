package language

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeAcceptsCodesAndNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"english", "en"},
		{" English ", "en"},
		{"de", "de"},
		{"german", "de"},
		{"haitian creole", "ht"},
		{"haitian", "ht"},
		{"burmese", "my"},
		{"castilian", "es"},
		{"haw", "haw"},
		{"", ""},
		{"auto", ""},
		{"AUTO", ""},
	}

	for _, tt := range tests {
		got, err := Normalize(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		require.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestNormalizeRejectsUnknownLanguage(t *testing.T) {
	t.Parallel()

	_, err := Normalize("klingon")
	require.Error(t, err)
	require.Contains(t, err.Error(), "klingon")
}

func TestNameOfAndCodeOf(t *testing.T) {
	t.Parallel()

	require.Equal(t, "english", NameOf("en"))
	require.Equal(t, "japanese", NameOf("ja"))
	require.Equal(t, "", NameOf("xx"))
	require.Equal(t, "ja", CodeOf("japanese"))
	require.Equal(t, "", CodeOf("klingon"))
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "English", DisplayName("en"))
	require.Equal(t, "Haitian Creole", DisplayName("ht"))
	require.Equal(t, "xx", DisplayName("xx"))
}

func TestNamesSortedAndComplete(t *testing.T) {
	t.Parallel()

	names := Names()
	require.Len(t, names, 99)
	require.True(t, sortedStrings(names))
	require.Contains(t, names, "english")
	require.Contains(t, names, "sundanese")

	codes := Codes()
	require.Len(t, codes, 99)
	require.True(t, sortedStrings(codes))
}

func TestSpecifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		detected   string
		mode       string
		translated bool
		want       string
	}{
		{name: "name mode from code", detected: "en", mode: SpecifierName, want: "english"},
		{name: "name mode from name", detected: "english", mode: SpecifierName, want: "english"},
		{name: "code mode from code", detected: "de", mode: SpecifierCode, want: "de"},
		{name: "code mode from name", detected: "german", mode: SpecifierCode, want: "de"},
		{name: "translated forces english name", detected: "ja", mode: SpecifierName, translated: true, want: "english"},
		{name: "translated forces english code", detected: "ja", mode: SpecifierCode, translated: true, want: "en"},
		{name: "unknown passes through", detected: "zzz", mode: SpecifierName, want: "zzz"},
		{name: "unknown passes through in code mode", detected: "zzz", mode: SpecifierCode, want: "zzz"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Specifier(tt.detected, tt.mode, tt.translated))
		})
	}
}

func TestValidSpecifierMode(t *testing.T) {
	t.Parallel()

	require.True(t, ValidSpecifierMode(SpecifierName))
	require.True(t, ValidSpecifierMode(SpecifierCode))
	require.False(t, ValidSpecifierMode("iso"))
	require.False(t, ValidSpecifierMode(""))
}

func sortedStrings(values []string) bool {
	for i := 1; i < len(values); i++ {
		if values[i-1] > values[i] {
			return false
		}
	}
	return true
}
