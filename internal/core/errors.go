package core

import "errors"

var (
	// ErrNotFound means no flowchart could be selected or loaded for the
	// patient's concern. The caller answers with the fixed refusal message
	// and must not start the interview.
	ErrNotFound = errors.New("no relevant flowchart found")

	// ErrCollaborator marks failures of the classification or generation
	// collaborator, including unparseable verdicts and verdicts naming a
	// branch the graph does not have. The session is left untouched so the
	// caller may retry the turn.
	ErrCollaborator = errors.New("collaborator failure")
)
