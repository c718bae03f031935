package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/povarna/generative-ai-agents/api-discovery/internal/models"
)

// DefaultOffTopicThreshold is the best-match score below which the prompt
// asks the model to say no suitable API exists
const DefaultOffTopicThreshold = 35.0

//go:embed template.tmpl
var promptTemplate string

var tmpl = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"pct":  func(score float64) string { return fmt.Sprintf("%.1f", score) },
	"cell": func(s string) string { return strings.ReplaceAll(s, "|", `\|`) },
}).Parse(promptTemplate))

type Options struct {
	OffTopicThreshold float64
}

type promptData struct {
	Query     string
	Results   []models.QueryResult
	OffTopic  bool
	Threshold float64
}

// Build renders the LLM prompt for query and its ranked results
func Build(query string, results []models.QueryResult) string {
	return BuildWithOptions(query, results, Options{OffTopicThreshold: DefaultOffTopicThreshold})
}

func BuildWithOptions(query string, results []models.QueryResult, opts Options) string {
	data := promptData{
		Query:     strings.TrimSpace(query),
		Results:   results,
		OffTopic:  IsOffTopic(results, opts.OffTopicThreshold),
		Threshold: opts.OffTopicThreshold,
	}

	var buf bytes.Buffer
	// the template only reads plain fields, so Execute cannot fail at runtime
	_ = tmpl.Execute(&buf, data)
	return buf.String()
}

// IsOffTopic reports whether there are no results or the best one scores
// below threshold
func IsOffTopic(results []models.QueryResult, threshold float64) bool {
	if len(results) == 0 {
		return true
	}
	best := results[0].Score
	for _, r := range results[1:] {
		if r.Score > best {
			best = r.Score
		}
	}
	return best < threshold
}
