package prompt

import (
	"strings"
	"testing"

	"github.com/povarna/generative-ai-agents/api-discovery/internal/models"
)

const offTopicMarker = "State plainly that no suitable API exists"

func sampleResults() []models.QueryResult {
	return []models.QueryResult{
		{
			Title:       "Payments API",
			Description: "Card payments and refunds",
			Score:       87,
			BaseURLs:    []string{"https://api.pay.example/v1"},
			Endpoints: []models.Endpoint{
				{Method: "POST", Path: "/charges", Summary: "Create a charge"},
				{Method: "POST", Path: "/refunds", Summary: "Refund a charge"},
			},
			TotalEndpoints: 5,
		},
		{
			Title:       "Orders API",
			Description: "Order management",
			Score:       42.5,
			BaseURLs:    []string{},
			Endpoints:   []models.Endpoint{},
		},
	}
}

func TestBuild_RendersResults(t *testing.T) {
	out := Build("  How do I refund a card payment?  ", sampleResults())

	expected := []string{
		"> How do I refund a card payment?\n",
		"| # | API | Match | Endpoints |",
		"| 1 | Payments API | 87.0% | 5 |",
		"| 2 | Orders API | 42.5% | 0 |",
		"### Payments API — 87.0% match",
		"**Description:** Card payments and refunds",
		"**Example Endpoints:**\n- `POST /charges` — Create a charge\n- `POST /refunds` — Refund a charge\n",
		"**Base URLs:**\n- https://api.pay.example/v1\n",
		"### Orders API — 42.5% match",
		"**Example Endpoints:**\n_No endpoint details available_\n",
		"1. **API Existence**",
		"2. **Relevant APIs**",
		"3. **Closest Match and Differences**",
		"4. **Conclusion**",
		"Focus especially on **endpoint names**",
	}

	for _, want := range expected {
		if !strings.Contains(out, want) {
			t.Errorf("expected prompt to contain %q\n---\n%s", want, out)
		}
	}

	if strings.Count(out, "**Base URLs:**") != 1 {
		t.Error("expected base URLs only for the API that has them")
	}
	if strings.Contains(out, offTopicMarker) {
		t.Error("did not expect off-topic guidance for a strong match")
	}
	if strings.Index(out, "### Payments API") > strings.Index(out, "### Orders API") {
		t.Error("expected detail blocks in rank order")
	}
}

func TestBuild_NoResultsIsOffTopic(t *testing.T) {
	out := Build("what is the weather on mars", nil)

	if !strings.Contains(out, offTopicMarker) {
		t.Errorf("expected off-topic guidance\n%s", out)
	}
	if strings.Contains(out, "| # | API |") {
		t.Error("did not expect a summary table without results")
	}
	if !strings.Contains(out, "4. **Conclusion**") {
		t.Error("expected the required sections to remain")
	}
}

func TestBuild_LowScoreIsOffTopic(t *testing.T) {
	results := []models.QueryResult{{Title: "Orders API", Description: "Orders", Score: 21.3}}

	out := Build("bake bread", results)
	if !strings.Contains(out, offTopicMarker) {
		t.Error("expected off-topic guidance for weak matches")
	}
	if !strings.Contains(out, "below 35.0%") {
		t.Error("expected threshold in guidance")
	}
}

func TestBuildWithOptions_Threshold(t *testing.T) {
	results := sampleResults()

	if out := BuildWithOptions("q", results, Options{OffTopicThreshold: 90}); !strings.Contains(out, offTopicMarker) {
		t.Error("expected off-topic guidance with a threshold above the best score")
	}
	if out := BuildWithOptions("q", results, Options{OffTopicThreshold: 50}); strings.Contains(out, offTopicMarker) {
		t.Error("did not expect off-topic guidance with a threshold below the best score")
	}
}

func TestBuild_Pure(t *testing.T) {
	results := sampleResults()
	if Build("q", results) != Build("q", results) {
		t.Error("expected identical output for identical input")
	}
}

func TestBuild_EscapesTableCells(t *testing.T) {
	results := []models.QueryResult{{Title: "A|B API", Description: "d", Score: 80}}

	out := Build("q", results)
	if !strings.Contains(out, `| 1 | A\|B API | 80.0% | 0 |`) {
		t.Errorf("expected escaped pipe in table\n%s", out)
	}
}

func TestIsOffTopic(t *testing.T) {
	tests := []struct {
		name    string
		results []models.QueryResult
		want    bool
	}{
		{"empty", nil, true},
		{"below", []models.QueryResult{{Score: 34.9}}, true},
		{"at threshold", []models.QueryResult{{Score: 35}}, false},
		{"best not first", []models.QueryResult{{Score: 10}, {Score: 60}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOffTopic(tt.results, DefaultOffTopicThreshold); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
