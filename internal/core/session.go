package core

import (
	"triagemd/pkg"
)

// Session is the per-interview state the navigator reads and mutates. It is
// an explicit value handed into every Advance call; nothing here is shared
// between sessions. The caller is responsible for serializing turns of the
// same session (one turn fully processed before the next is accepted).
type Session struct {
	ID           string
	Demographics pkg.Demographics

	// Opening is the patient's original concern, set when the flowchart is
	// selected. The opening is on-topic by construction and is never counted
	// against the derailment thresholds.
	Opening string

	// Flowchart and Graph are the active pair; both are swapped together on
	// a flowchart switch. Nil Flowchart means selection has not happened yet.
	Flowchart *pkg.Flowchart
	Graph     pkg.Graph

	// CurrentNode is always a valid node id of Flowchart; Path's last
	// element always equals CurrentNode.
	CurrentNode string
	Path        []string

	// OffTopicCount and UncertainCount accumulate consecutive derailments at
	// the current node. They are reset together, and only when the node or
	// flowchart changes.
	OffTopicCount  int
	UncertainCount int

	// Window is the conversation scoped to the current node only. It is
	// collapsed whenever the node changes so each question gets a clean
	// context for its own sub-dialogue.
	Window []pkg.Turn

	// PatientTurns counts patient messages across the whole interview; the
	// first one carries the opening-message off-topic exemption.
	PatientTurns int
}

// NewSession creates an empty session; no flowchart is attached until the
// selector has run.
func NewSession(id string, demo pkg.Demographics) *Session {
	return &Session{ID: id, Demographics: demo}
}

// Retrieved reports whether a flowchart has been selected for this session.
func (s *Session) Retrieved() bool { return s.Flowchart != nil }

// AttachFlowchart activates a flowchart/graph pair, entering at its entry
// node. Used both for the initial selection and for flowchart switches: the
// path restarts at the entry, the counters reset together and the node-scoped
// window is cleared.
func (s *Session) AttachFlowchart(opening string, chart *pkg.Flowchart, graph pkg.Graph) {
	s.Opening = opening
	s.Flowchart = chart
	s.Graph = graph
	s.CurrentNode = chart.Entry
	s.Path = []string{chart.Entry}
	s.OffTopicCount = 0
	s.UncertainCount = 0
	s.Window = nil
}

// Node returns the current node. The invariant that CurrentNode is a valid
// key of the active flowchart makes the lookup infallible after attach.
func (s *Session) Node() pkg.Node {
	return s.Flowchart.Nodes[s.CurrentNode]
}
