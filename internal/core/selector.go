package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"triagemd/internal/flowchart"
	"triagemd/internal/llm"
	"triagemd/internal/retrieval"
	"triagemd/pkg"
)

// Ranker is the relevance-ranking capability the selector consumes.
type Ranker interface {
	Rank(ctx context.Context, query string, k int) ([]retrieval.Candidate, error)
}

// ChartStore is the flowchart lookup capability the selector consumes.
type ChartStore interface {
	Load(name string) (*pkg.Flowchart, pkg.Graph, error)
}

// NoFlowchartToken is the exact answer the selection prompt allows the model
// to give when none of the candidates fits.
const NoFlowchartToken = "no flowchart available"

// Selection is the result of picking a flowchart for an opening concern.
type Selection struct {
	Name      string
	Flowchart *pkg.Flowchart
	Graph     pkg.Graph
	// Alternates are up to three other plausible flowcharts, restored from
	// the ranked candidates, for callers that present a choice.
	Alternates []pkg.FlowchartSummary
}

// Selector picks the active flowchart on the first turn of an interview:
// embed-and-rank the opening concern, let the model confirm one candidate,
// redirect the nested special cases, then load.
type Selector struct {
	ranker Ranker
	store  ChartStore
	llm    llm.Client
	topK   int
	log    *zap.Logger
}

// NewSelector builds a selector considering the top-k ranked candidates.
func NewSelector(ranker Ranker, store ChartStore, client llm.Client, topK int, log *zap.Logger) *Selector {
	if topK <= 0 {
		topK = 5
	}
	return &Selector{ranker: ranker, store: store, llm: client, topK: topK, log: log}
}

// Select resolves the opening message to a loaded flowchart/graph pair.
// Returns ErrNotFound (with the underlying reason attached) when the ranking
// is empty, the model declines every candidate, or the chosen flowchart
// cannot be loaded; the caller must fall back to the fixed refusal message
// and must not start the navigator.
func (s *Selector) Select(ctx context.Context, opening string, demo pkg.Demographics) (*Selection, error) {
	query := fmt.Sprintf("Patient's demographics: %s; Patient's concern: %s", demo, opening)

	candidates, err := s.ranker.Rank(ctx, query, s.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: rank: %v", ErrCollaborator, err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: ranking returned no candidates", ErrNotFound)
	}

	raw, err := s.llm.Invoke(ctx, pkg.PromptPick, pickContext(query, candidates), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: pick: %v", ErrCollaborator, err)
	}
	choice := cleanChoice(raw, candidates)
	if strings.EqualFold(choice, NoFlowchartToken) {
		return nil, fmt.Errorf("%w: model declined all candidates", ErrNotFound)
	}

	loadName := flowchart.NestedVariant(choice)
	chart, graph, err := s.store.Load(loadName)
	if err != nil {
		if errors.Is(err, flowchart.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return nil, err
	}
	if s.log != nil {
		s.log.Info("flowchart selected",
			zap.String("choice", choice),
			zap.String("loaded", loadName),
			zap.Int("candidates", len(candidates)))
	}
	return &Selection{
		Name:       loadName,
		Flowchart:  chart,
		Graph:      graph,
		Alternates: alternates(choice, candidates),
	}, nil
}

// pickContext renders the selection prompt body: the composite query plus the
// ranked candidate catalog lines, best first.
func pickContext(query string, candidates []retrieval.Candidate) string {
	var b strings.Builder
	b.WriteString(query)
	b.WriteString("\nCandidate flowcharts:\n")
	for _, c := range candidates {
		b.WriteString("- ")
		if c.Raw != "" {
			b.WriteString(c.Raw)
		} else {
			b.WriteString(c.Name)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// cleanChoice normalizes the model's answer and snaps it onto a candidate
// name when one matches, keeping the canonical casing from the catalog.
func cleanChoice(raw string, candidates []retrieval.Candidate) string {
	choice := strings.Trim(strings.TrimSpace(raw), "\"'`.")
	for _, c := range candidates {
		if strings.EqualFold(choice, c.Name) {
			return c.Name
		}
	}
	// Models sometimes answer in a sentence; take a contained candidate name.
	for _, c := range candidates {
		if c.Name != "" && strings.Contains(strings.ToLower(choice), strings.ToLower(c.Name)) {
			return c.Name
		}
	}
	if strings.Contains(strings.ToLower(choice), NoFlowchartToken) {
		return NoFlowchartToken
	}
	return choice
}

// alternates merges the primary choice with the ranked candidates into a
// short deduplicated recommendation list, primary excluded. Three alternates
// when the primary came from the ranking, two otherwise.
func alternates(primary string, candidates []retrieval.Candidate) []pkg.FlowchartSummary {
	max := 3
	for _, c := range candidates {
		if strings.EqualFold(c.Name, primary) {
			max = 2
			break
		}
	}
	var out []pkg.FlowchartSummary
	seen := map[string]bool{strings.ToLower(primary): true}
	for _, c := range candidates {
		key := strings.ToLower(c.Name)
		if c.Name == "" || seen[key] {
			continue
		}
		seen[key] = true
		name := flowchart.NestedVariant(c.Name)
		out = append(out, pkg.FlowchartSummary{
			ID:          flowchart.Slugify(name),
			Name:        name,
			Description: c.Description,
		})
		if len(out) == max {
			break
		}
	}
	return out
}
