package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	godiff "github.com/sergi/go-diff/diffmatchpatch"
	"gopkg.in/yaml.v3"

	"github.com/dacharyc/seqdiff"
)

// scenario is a named sequence of snapshots. Each step is one snapshot of
// whitespace-separated words.
type scenario struct {
	Name  string   `yaml:"name"`
	Steps []string `yaml:"steps"`
}

type scenarioFile struct {
	Scenarios []scenario `yaml:"scenarios"`
}

func loadScenarios(path string) ([]scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening scenarios")
	}
	defer f.Close()

	var file scenarioFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	for i, sc := range file.Scenarios {
		if sc.Name == "" {
			return nil, errors.Errorf("%s: scenario %d has no name", path, i)
		}
	}
	return file.Scenarios, nil
}

// token is one word of a snapshot. Repeated words are told apart by their
// occurrence count, so every token of a snapshot is a unique key.
type token struct {
	Text string `yaml:"text" json:"text"`
	Nth  int    `yaml:"nth" json:"nth"`
}

func tokenize(line string) []token {
	seen := make(map[string]int)
	var out []token
	for _, w := range strings.Fields(line) {
		out = append(out, token{Text: w, Nth: seen[w]})
		seen[w]++
	}
	return out
}

func render(tokens []token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

type replayer struct {
	out     io.Writer
	wire    string
	logger  log.Logger
	metrics *seqdiff.Metrics
	options []seqdiff.Option
}

// run replays sc and returns the number of steps whose diff did not
// reproduce the snapshot.
func (r *replayer) run(sc scenario) (int, error) {
	opts := append([]seqdiff.Option{seqdiff.WithLogger(r.logger), seqdiff.WithMetrics(r.metrics)}, r.options...)
	b := seqdiff.NewBuilder(func(t token) token { return t }, nil, opts...)
	mirror := seqdiff.NewMirror[token]()
	store := &seqdiff.SliceStore[token]{}
	dmp := godiff.New()

	fmt.Fprintf(r.out, "\n=== %s ===\n", sc.Name)

	var diffs []seqdiff.Diff[token]
	var prev []token
	failed := 0
	for i, line := range sc.Steps {
		next := tokenize(line)

		start := time.Now()
		d, err := b.Next(next)
		if err != nil {
			return failed, errors.Wrapf(err, "step %d", i)
		}
		took := time.Since(start)
		diffs = append(diffs, d)

		if err := mirror.Apply(d); err != nil {
			return failed, errors.Wrapf(err, "step %d: apply", i)
		}
		if err := seqdiff.ApplyTo[token](store, d); err != nil {
			return failed, errors.Wrapf(err, "step %d: store", i)
		}
		if !r.verify(fmt.Sprintf("step %d apply", i), next, mirror.Snapshot()) {
			failed++
		}
		if !r.verify(fmt.Sprintf("step %d store", i), next, store.Items) {
			failed++
		}

		fmt.Fprintf(r.out, "step %d: %d -> %d items in %v\n", i, len(prev), len(next), took)
		fmt.Fprintf(r.out, "  seqdiff:  grow=%d shrink=%d moved=%d changed=%d\n",
			d.Grow, d.Shrink, d.Permutation.Moved(), len(d.Change))
		ins, del := lineEdits(dmp, render(prev), render(next))
		fmt.Fprintf(r.out, "  go-diff:  inserted=%d deleted=%d\n", ins, del)
		if err := r.printWire(d); err != nil {
			return failed, err
		}
		prev = next
	}

	if len(diffs) > 0 {
		folded, err := seqdiff.Fold(diffs[0], diffs[1:]...)
		if err != nil {
			return failed, errors.Wrap(err, "folding")
		}
		got, err := seqdiff.Apply(nil, folded)
		if err != nil {
			return failed, errors.Wrap(err, "applying folded diff")
		}
		if !r.verify("folded", prev, got) {
			failed++
		}
		fmt.Fprintf(r.out, "folded %d diffs: grow=%d degree=%d shrink=%d\n",
			len(diffs), folded.Grow, folded.Degree, folded.Shrink)
	}

	level.Debug(r.logger).Log("scenario", sc.Name, "steps", len(sc.Steps), "failed", failed)
	return failed, nil
}

// verify reports a unified diff of want and got when they differ.
func (r *replayer) verify(what string, want, got []token) bool {
	w, g := render(want), render(got)
	if w == g {
		return true
	}
	text, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(w),
		B:        difflib.SplitLines(g),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	fmt.Fprintf(r.out, "MISMATCH (%s):\n%s", what, text)
	return false
}

func (r *replayer) printWire(d seqdiff.Diff[token]) error {
	var (
		out []byte
		err error
	)
	switch r.wire {
	case "":
		return nil
	case "json":
		out, err = json.Marshal(seqdiff.ToWire(d))
		out = append(out, '\n')
	default:
		out, err = yaml.Marshal(seqdiff.ToWire(d))
	}
	if err != nil {
		return errors.Wrap(err, "encoding wire diff")
	}
	_, err = r.out.Write(out)
	return err
}

// lineEdits counts the lines go-diff inserts and deletes turning a into b.
func lineEdits(dmp *godiff.DiffMatchPatch, a, b string) (inserted, deleted int) {
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)
	for _, d := range diffs {
		switch d.Type {
		case godiff.DiffInsert:
			inserted += strings.Count(d.Text, "\n")
		case godiff.DiffDelete:
			deleted += strings.Count(d.Text, "\n")
		}
	}
	return inserted, deleted
}

func builtinScenarios() []scenario {
	return []scenario{
		{
			Name: "Fox example (common anchor word)",
			Steps: []string{
				"The quick brown fox jumps",
				"A slow red fox leaps",
			},
		},
		{
			Name: "Prose with common words",
			Steps: []string{
				"The quick brown fox jumps over the lazy dog in the park",
				"A slow red fox leaps over the sleeping cat in the garden",
				"the garden in the cat sleeping the over leaps fox red slow A",
			},
		},
		{
			Name: "Playlist reordering",
			Steps: []string{
				"intro verse chorus verse chorus bridge outro",
				"intro chorus verse verse chorus outro bridge",
				"outro",
				"",
				"intro verse",
			},
		},
		{
			Name:  "Large file (500 lines, scattered changes)",
			Steps: []string{generateLargeText(500, 0), generateLargeText(500, 42)},
		},
	}
}

func generateLargeText(lines int, seed int) string {
	words := []string{"the", "quick", "brown", "fox", "jumps", "over", "lazy", "dog",
		"func", "main", "return", "if", "else", "for", "range", "var", "const",
		"import", "package", "type", "struct", "interface", "map", "slice"}

	result := make([]string, lines)
	for i := 0; i < lines; i++ {
		result[i] = words[(i*7+seed)%len(words)]
	}

	// Introduce some changes based on seed
	for i := seed % 10; i < lines; i += 10 + seed%5 {
		result[i] = fmt.Sprintf("changed%d", i)
	}

	return strings.Join(result, " ")
}
