package internal

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestMatcherProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	set, err := NewPatternSet([]PatternDef{{ID: 4, Pattern: "secret"}})
	if err != nil {
		t.Fatal(err)
	}
	p := set.Patterns()[0]

	properties.Property("text is the folded line cut to the limit", prop.ForAll(
		func(prefix, suffix string, limit int) bool {
			line := prefix + "SeCrEt" + suffix
			f, ok := NewMatcher(limit).Match(p, 1, line)
			if !ok {
				return false
			}
			want := strings.ToLower(line)
			if len(want) > limit {
				want = want[:limit]
			}
			return f.Text == want && len(f.Text) <= limit
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.IntRange(0, 64),
	))

	properties.Property("lines without the needle never match", prop.ForAll(
		func(line string) bool {
			if strings.Contains(strings.ToLower(line), "secret") {
				return true
			}
			_, ok := NewMatcher(100).Match(p, 1, line)
			return !ok
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestScanProperties(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	for _, dir := range []string{"a", "b/c", "d/e/f"} {
		for _, name := range []string{"one", "two", "three"} {
			files[dir+"/"+name+".py"] = "import os\nSECRET = os.environ['X']\npassword='p'\n" + name + "\n"
		}
	}
	writeTree(t, root, files)
	set, err := NewPatternSet(DefaultPatternDefs())
	if err != nil {
		t.Fatal(err)
	}

	scan := func(workers, queue int) []string {
		var buf bytes.Buffer
		opts := ScanOptions{TargetDir: root, Workers: workers, MaxTextLength: 100, QueueSize: queue}
		if err := NewScanner(set, nil).Scan(context.Background(), opts, NewResultSink(&buf, nil)); err != nil {
			t.Fatalf("scan: %v", err)
		}
		lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
		slices.Sort(lines)
		return lines
	}
	base := scan(1, 0)
	if !slices.ContainsFunc(base, func(l string) bool { return strings.HasSuffix(l, "text: secret_key = ") }) {
		t.Fatalf("trailing space lost from report: %q", base)
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)
	properties.Property("finding multiset does not depend on pool or queue size", prop.ForAll(
		func(workers, queue int) bool {
			return slices.Equal(base, scan(workers, queue))
		},
		gen.IntRange(1, 64),
		gen.IntRange(1, 16),
	))
	properties.TestingRun(t)
}
