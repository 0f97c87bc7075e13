package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	studios, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), studios)
	require.NotEmpty(t, studios)
}

func TestLoadParsesFileAndSkipsIncompleteEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name": "Alpha", "url": "https://example.org/category/alpha/"},
		{"name": "", "url": "https://example.org/category/broken/"},
		{"name": "NoURL"}
	]`), 0o600))

	studios, err := Load(path)
	require.NoError(t, err)
	require.Len(t, studios, 1)
	require.Equal(t, "Alpha", studios[0].Name)
	require.Equal(t, studios[0].URL, studios[0].SourceListingURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}
