package pkg

import "time"

// Speaker identifies who authored a turn. There are only two speakers in an
// interview: the patient and the assistant.
type Speaker string

const (
	SpeakerPatient   Speaker = "patient"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is a single utterance in the interview, scoped to the node that was
// active when it was spoken.
type Turn struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at,omitempty"`
}

// NodeKind tags a flowchart node with its role in the interview. It is
// derived once from the node-id prefix when a flowchart file is loaded and
// carried explicitly from then on.
type NodeKind int

const (
	// KindQuestion is an interior node: the interview keeps navigating.
	KindQuestion NodeKind = iota
	// KindInfo is an informational leaf: the interview ends with guidance.
	KindInfo
	// KindSwitch directs the interview onto a different flowchart.
	KindSwitch
)

func (k NodeKind) String() string {
	switch k {
	case KindQuestion:
		return "question"
	case KindInfo:
		return "info"
	case KindSwitch:
		return "switch"
	}
	return "unknown"
}

// Terminal reports whether landing on a node of this kind ends the interview
// for the current flowchart.
func (k NodeKind) Terminal() bool { return k != KindQuestion }

// Node is one step of a triage flowchart.
type Node struct {
	ID      string   `json:"id"`
	Kind    NodeKind `json:"kind"`
	Content string   `json:"content"`
}

// Flowchart is an immutable triage protocol: a named set of nodes with a
// designated entry point. It never changes after loading, so it is safe to
// share between sessions.
type Flowchart struct {
	Name  string          `json:"name"`
	Entry string          `json:"entry"`
	Nodes map[string]Node `json:"nodes"`
}

// Graph holds the allowed transitions of a flowchart: for each node id, the
// ordered list of target node ids. Order matters because the classifier's
// branch verdict is an index into this list. A Graph is paired 1:1 with its
// Flowchart and the two are always swapped together.
type Graph map[string][]string

// Demographics is the administrative information collected before the
// interview starts. It seeds the retrieval query.
type Demographics struct {
	Sex string `json:"sex"`
	Age string `json:"age"`
}

// String renders demographics the way the retrieval query expects them.
func (d Demographics) String() string {
	return "Sex - " + d.Sex + ", Age - " + d.Age
}

// PromptKind selects which instruction template the response generator uses
// for a turn.
type PromptKind int

const (
	// PromptQuestion asks the current node's question after normal branch
	// progress.
	PromptQuestion PromptKind = iota
	// PromptGuidance delivers terminal content: informational leaves,
	// escalations and refusals.
	PromptGuidance
	// PromptOffTopic steers a wandering patient back to the question.
	PromptOffTopic
	// PromptClarify re-asks when the reply could not be mapped to a branch.
	PromptClarify
	// PromptClassify asks the model for a branch verdict. Not user facing.
	PromptClassify
	// PromptPick asks the model to choose a flowchart from ranked
	// candidates. Not user facing.
	PromptPick
)

func (p PromptKind) String() string {
	switch p {
	case PromptQuestion:
		return "question"
	case PromptGuidance:
		return "guidance"
	case PromptOffTopic:
		return "off_topic"
	case PromptClarify:
		return "clarify"
	case PromptClassify:
		return "classify"
	case PromptPick:
		return "pick"
	}
	return "unknown"
}

// ChatRequest carries a patient message to the interview endpoint.
type ChatRequest struct {
	Content string `json:"content"`
}

// ChatResponse is the assistant's reply plus the navigation state the caller
// may want to display.
type ChatResponse struct {
	Reply      string   `json:"reply"`
	Node       string   `json:"node,omitempty"`
	Path       []string `json:"path,omitempty"`
	PromptKind string   `json:"prompt_kind"`
	Terminal   bool     `json:"terminal"`
	Capped     bool     `json:"capped,omitempty"`
}

// FlowchartSummary is the metadata returned for alternate recommendations.
type FlowchartSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// FlowchartView is the full flowchart representation returned by the
// retrieval endpoint: nodes plus ordered edges.
type FlowchartView struct {
	Name  string              `json:"name"`
	Entry string              `json:"entry"`
	Nodes []Node              `json:"nodes"`
	Edges map[string][]string `json:"edges"`
}
