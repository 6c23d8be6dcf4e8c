package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile_Apply(t *testing.T) {
	dir := t.TempDir()
	fp := filepath.Join(dir, "secretfinder.yml")
	content := `
target_dir: /srv/app
workers_amount: 16
maximum_text_length: 40
extensions: [".py", ".cfg"]
exclude: ["**/venv/**"]
archives: true
timeout: 2m
`
	require.NoError(t, os.WriteFile(fp, []byte(content), 0644))

	fc, err := LoadConfigFile(fp)
	require.NoError(t, err)

	opts := ScanOptions{Workers: DefaultWorkers, MaxTextLength: DefaultMaxTextLength, Depth: 3}
	fc.Apply(&opts)
	assert.Equal(t, ScanOptions{
		TargetDir:     "/srv/app",
		Workers:       16,
		MaxTextLength: 40,
		Extensions:    []string{".py", ".cfg"},
		Exclude:       []string{"**/venv/**"},
		Depth:         3,
		Archives:      true,
	}, opts)

	d, err := fc.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)
}

func TestLoadConfigFile_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadConfigFile(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("workers_amount: [\n"), 0644))
	_, err = LoadConfigFile(bad)
	assert.Error(t, err)

	s := "soon"
	_, err = FileConfig{Timeout: &s}.TimeoutDuration()
	assert.Error(t, err)

	d, err := FileConfig{}.TimeoutDuration()
	assert.NoError(t, err)
	assert.Zero(t, d)
}
