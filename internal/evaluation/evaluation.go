// Package evaluation replays labelled questions through the query pipeline and
// scores whether each answer was grounded and whether the guardrail refused
// when it should have.
package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
	"github.com/kpkavin04/VerifAI/internal/core/ports"
)

// Case is one labelled question. ExpectedSources holds chunk id prefixes (a
// doc id such as "leave_policy" matches every chunk of that document).
type Case struct {
	ID                string   `json:"id"`
	Question          string   `json:"question"`
	ExpectedSources   []string `json:"expected_sources"`
	AcceptableRefusal bool     `json:"acceptable_refusal"`
	TopK              *int     `json:"top_k,omitempty"`
}

type Result struct {
	ID       string
	Question string
	Outcome  domain.Outcome

	// Grounded: every returned source matches an expected prefix.
	Grounded bool
	// Faithful: no answer was given where a refusal was expected.
	Faithful bool
	// RefusalCorrect: answered exactly when an answer was expected.
	RefusalCorrect bool
	Answered       bool

	Confidence float64
	LatencyMS  int64
	Error      string
}

type Totals struct {
	Cases          int
	Grounded       int
	Faithful       int
	RefusalCorrect int
	Answered       int
	Errors         int
	AvgLatencyMS   float64
}

// LoadCases reads a JSON array of cases.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cases: %w", err)
	}
	var cases []Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse cases %s: %w", path, err)
	}
	for i, c := range cases {
		if strings.TrimSpace(c.Question) == "" {
			return nil, fmt.Errorf("case %d (%q) has no question", i, c.ID)
		}
		if c.ID == "" {
			cases[i].ID = fmt.Sprintf("case_%d", i+1)
		}
	}
	return cases, nil
}

type Runner struct {
	service ports.QueryService
	now     func() time.Time
}

func NewRunner(service ports.QueryService) *Runner {
	return &Runner{service: service, now: time.Now}
}

// Run asks every case in order. A failed request is scored as not answered
// and keeps its error; only ctx cancellation stops the run.
func (r *Runner) Run(ctx context.Context, cases []Case) ([]Result, error) {
	results := make([]Result, 0, len(cases))
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		start := r.now()
		resp, err := r.service.Answer(ctx, domain.QueryRequest{Question: c.Question, TopK: c.TopK})
		latency := r.now().Sub(start).Milliseconds()

		var result Result
		if err != nil {
			result = Score(c, nil)
			result.Error = err.Error()
		} else {
			result = Score(c, resp)
		}
		result.LatencyMS = latency
		results = append(results, result)
	}
	return results, nil
}

// Score grades one response. A nil response counts as an unanswered request
// without sources.
func Score(c Case, resp *domain.QueryResponse) Result {
	result := Result{ID: c.ID, Question: c.Question}
	var sources []domain.SourceRef
	if resp != nil {
		result.Outcome = resp.Outcome
		result.Answered = resp.Answer != nil
		sources = resp.Sources
		if resp.Confidence != nil {
			result.Confidence = *resp.Confidence
		}
	}

	result.Grounded = grounded(sources, c.ExpectedSources)
	result.Faithful = !(result.Answered && c.AcceptableRefusal)
	if c.AcceptableRefusal {
		result.RefusalCorrect = !result.Answered
	} else {
		result.RefusalCorrect = result.Answered
	}
	return result
}

func grounded(sources []domain.SourceRef, expected []string) bool {
	if len(expected) == 0 {
		return true
	}
	for _, src := range sources {
		if !matchesAny(src.ID, expected) {
			return false
		}
	}
	return true
}

func matchesAny(id string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

func Summarize(results []Result) Totals {
	t := Totals{Cases: len(results)}
	var latency int64
	for _, r := range results {
		if r.Grounded {
			t.Grounded++
		}
		if r.Faithful {
			t.Faithful++
		}
		if r.RefusalCorrect {
			t.RefusalCorrect++
		}
		if r.Answered {
			t.Answered++
		}
		if r.Error != "" {
			t.Errors++
		}
		latency += r.LatencyMS
	}
	if t.Cases > 0 {
		t.AvgLatencyMS = float64(latency) / float64(t.Cases)
	}
	return t
}
