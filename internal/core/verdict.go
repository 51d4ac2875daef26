package core

import (
	"fmt"
	"strconv"
	"strings"
)

// verdict is the classifier's decision about the patient's latest reply.
type verdict int

const (
	verdictBranch verdict = iota
	verdictOffTopic
	verdictUncertain
)

// parseVerdict interprets the classifier's raw output against the current
// node's branch count. Branch numbers are 1-based in the prompt. Anything
// that is neither a known token nor an in-range branch number is a
// collaborator failure: the vocabulary and the loaded graph have diverged,
// and that must not be silently ignored.
func parseVerdict(raw string, branches int) (int, verdict, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.Trim(norm, "\"'`.!:")
	switch strings.ReplaceAll(norm, " ", "-") {
	case "off-topic", "offtopic":
		return 0, verdictOffTopic, nil
	case "uncertain", "unclear", "inconclusive":
		return 0, verdictUncertain, nil
	}
	// Accept a bare number or a short phrase ending in one ("branch 2").
	fields := strings.Fields(norm)
	if len(fields) > 0 {
		if n, err := strconv.Atoi(strings.Trim(fields[len(fields)-1], ".)")); err == nil {
			if n < 1 || n > branches {
				return 0, 0, fmt.Errorf("%w: branch %d out of range (node has %d)", ErrCollaborator, n, branches)
			}
			return n - 1, verdictBranch, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: unparseable verdict %q", ErrCollaborator, raw)
}
