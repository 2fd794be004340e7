package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/tidwall/gjson"
)

// applyOptions merges key=value pairs into params["options"]. Values that
// parse as JSON (true, 3, "x") keep their type; anything else is a string.
func applyOptions(params domain.JobParameters, pairs []string) error {
	if len(pairs) == 0 {
		return nil
	}
	opts, _ := params["options"].(map[string]any)
	if opts == nil {
		opts = map[string]any{}
	}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return fmt.Errorf("invalid --option %q, want key=value", pair)
		}
		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			parsed = v
		}
		opts[k] = parsed
	}
	params["options"] = opts
	return nil
}

// outputPath keeps batch results apart by suffixing the artifact name.
func outputPath(output, artifact string, batch bool) string {
	if !batch {
		return output
	}
	ext := filepath.Ext(output)
	base := strings.TrimSuffix(filepath.Base(artifact), filepath.Ext(artifact))
	return strings.TrimSuffix(output, ext) + "-" + base + ext
}

func writeResult(path string, payload []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", "  "); err != nil {
		return fmt.Errorf("failed to format result: %w", err)
	}
	buf.WriteByte('\n')
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// printSummary prints the well-known parts of an analysis result. Missing
// sections are skipped.
func printSummary(w io.Writer, payload []byte) {
	res := gjson.ParseBytes(payload)

	if score := res.Get("score"); score.Exists() {
		fmt.Fprintf(w, "Overall Score: %s/100\n", score.String())
	}
	if cats := res.Get("category_scores"); cats.IsObject() {
		fmt.Fprintln(w, "Category Scores:")
		cats.ForEach(func(k, v gjson.Result) bool {
			fmt.Fprintf(w, "  - %s: %s/100\n", k.String(), v.String())
			return true
		})
	}
	for _, section := range []struct{ key, title string }{
		{"insights.strengths", "Strengths"},
		{"insights.improvements", "Improvements"},
		{"insights.missing_skills", "Missing Skills"},
	} {
		items := res.Get(section.key).Array()
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s:\n", section.title)
		for i, item := range items {
			fmt.Fprintf(w, "  %d. %s\n", i+1, item.String())
		}
	}
}
