package internal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPatternDefs_Compile(t *testing.T) {
	set, err := NewPatternSet(DefaultPatternDefs())
	require.NoError(t, err)
	require.Equal(t, 4, set.Len())

	ids := make([]int, 0, set.Len())
	for _, p := range set.Patterns() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, ids)
}

func TestNewPatternSet_Errors(t *testing.T) {
	_, err := NewPatternSet(nil)
	assert.ErrorIs(t, err, ErrNoPatterns)

	_, err = NewPatternSet([]PatternDef{{ID: 1, Pattern: "a"}, {ID: 1, Pattern: "b"}})
	assert.ErrorIs(t, err, ErrDuplicatePatternID)

	_, err = NewPatternSet([]PatternDef{{ID: 1, Pattern: "("}})
	assert.Error(t, err)

	_, err = NewPatternSet([]PatternDef{{ID: 1, Pattern: ""}})
	assert.Error(t, err)
}

func TestPatternSet_PatternsIsACopy(t *testing.T) {
	set, err := NewPatternSet(DefaultPatternDefs())
	require.NoError(t, err)

	ps := set.Patterns()
	ps[0].ID = 99
	assert.Equal(t, 1, set.Patterns()[0].ID)
	assert.Equal(t, `^.*password.*$`, set.Patterns()[2].Source())
}

func TestLoadPatternFile(t *testing.T) {
	dir := t.TempDir()
	fp := filepath.Join(dir, "patterns.yml")
	content := `
patterns:
  - id: 10
    pattern: 'aws_secret_access_key'
    description: aws key
  - id: 11
    pattern: '^token\s*='
    description: token assignment
`
	require.NoError(t, os.WriteFile(fp, []byte(content), 0644))

	defs, err := LoadPatternFile(fp)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, PatternDef{ID: 10, Pattern: "aws_secret_access_key", Description: "aws key"}, defs[0])

	set, err := NewPatternSet(defs)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
}

func TestLoadPatternFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadPatternFile(filepath.Join(dir, "missing.yml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	empty := filepath.Join(dir, "empty.yml")
	require.NoError(t, os.WriteFile(empty, []byte("patterns: []\n"), 0644))
	_, err = LoadPatternFile(empty)
	assert.ErrorIs(t, err, ErrNoPatterns)

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("patterns: [\n"), 0644))
	_, err = LoadPatternFile(bad)
	assert.Error(t, err)
}

func BenchmarkNewPatternSet(b *testing.B) {
	defs := DefaultPatternDefs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := NewPatternSet(defs); err != nil {
			b.Fatal(err)
		}
	}
}
