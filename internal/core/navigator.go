// Package core implements the interview engine: the navigator state machine
// that walks a triage flowchart turn by turn, and the selector that picks the
// flowchart for a patient's opening concern.
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"triagemd/internal/llm"
	"triagemd/pkg"
)

// TranscriptLog receives every turn in order for append-only recording. A nil
// log is a no-op, not an error; recording failures never fail the turn.
type TranscriptLog interface {
	Append(ctx context.Context, sessionID string, turn pkg.Turn) error
}

// Outcome is what one processed patient turn produced.
type Outcome struct {
	Reply      string
	PromptKind pkg.PromptKind
	// Terminal is true when the current flowchart's interview is over:
	// an informational or switch node was reached, or escalation fired.
	Terminal bool
	// Escalated is true when the derailment threshold forced the reply.
	Escalated bool
	// Switched is true when the terminal node asks for a different
	// flowchart; the caller restarts selection on the next patient message.
	Switched bool
}

// Navigator owns the per-turn state machine. It holds no session state of its
// own, so one navigator serves any number of concurrent sessions.
type Navigator struct {
	llm        llm.Client
	transcript TranscriptLog
	threshold  int
	log        *zap.Logger
}

// NewNavigator builds a navigator. threshold is how many consecutive
// off-topic or uncertain replies at one node are tolerated; transcript may be
// nil.
func NewNavigator(client llm.Client, transcript TranscriptLog, threshold int, log *zap.Logger) *Navigator {
	if threshold <= 0 {
		threshold = 3
	}
	return &Navigator{llm: client, transcript: transcript, threshold: threshold, log: log}
}

// Advance processes one patient turn: classify the reply against the current
// node's branches, move or hold, then generate the assistant's answer. The
// session is mutated only after generation succeeds, so a collaborator
// failure leaves it exactly as it was and the caller may retry the turn.
func (n *Navigator) Advance(ctx context.Context, sess *Session, message string) (Outcome, error) {
	if !sess.Retrieved() {
		return Outcome{}, fmt.Errorf("session %s has no flowchart attached", sess.ID)
	}

	patientTurn := pkg.Turn{Speaker: pkg.SpeakerPatient, Text: message, At: time.Now()}
	window := append(append([]pkg.Turn(nil), sess.Window...), patientTurn)

	node := sess.Node()
	branches := sess.Graph[sess.CurrentNode]

	// Classify, unless the node has nowhere to go (terminal nodes re-entered
	// by a stray extra message just repeat their guidance).
	offTopic, uncertain := sess.OffTopicCount, sess.UncertainCount
	nextNode := sess.CurrentNode
	v := verdictUncertain
	branch := 0
	if len(branches) > 0 {
		raw, err := n.llm.Invoke(ctx, pkg.PromptClassify, classifyContext(node, branches, sess.Flowchart), window)
		if err != nil {
			return Outcome{}, fmt.Errorf("%w: classify: %v", ErrCollaborator, err)
		}
		branch, v, err = parseVerdict(raw, len(branches))
		if err != nil {
			return Outcome{}, err
		}
	}

	switch v {
	case verdictOffTopic:
		// The opening concern is on-topic by construction and never counts.
		if sess.PatientTurns > 0 {
			offTopic++
		}
	case verdictUncertain:
		if len(branches) > 0 {
			uncertain++
		}
	case verdictBranch:
		nextNode = branches[branch]
	}

	moved := nextNode != sess.CurrentNode
	target := sess.Flowchart.Nodes[nextNode]

	// Choose the reply content and template. Escalation overrides the node's
	// own content but not the state transition computed above.
	escalated := offTopic > n.threshold || uncertain > n.threshold
	var kind pkg.PromptKind
	var content string
	switch {
	case escalated:
		kind, content = pkg.PromptGuidance, EscalationMessage
	case len(branches) == 0:
		// A stray message after the interview ended just repeats the
		// terminal guidance.
		kind, content = pkg.PromptGuidance, node.Content
	case moved && target.Kind.Terminal():
		kind, content = pkg.PromptGuidance, target.Content
	case moved:
		kind, content = pkg.PromptQuestion, target.Content
	case v == verdictOffTopic:
		kind, content = pkg.PromptOffTopic, node.Content
	default:
		kind, content = pkg.PromptClarify, node.Content
	}

	reply, err := n.llm.Invoke(ctx, kind, content, window)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: generate: %v", ErrCollaborator, err)
	}
	assistantTurn := pkg.Turn{Speaker: pkg.SpeakerAssistant, Text: reply, At: time.Now()}

	// Generation succeeded; commit the whole turn atomically.
	sess.PatientTurns++
	if moved {
		sess.CurrentNode = nextNode
		sess.Path = append(sess.Path, nextNode)
		// Counters reset together, and the new node starts its sub-dialogue
		// with just this exchange.
		sess.OffTopicCount, sess.UncertainCount = 0, 0
		sess.Window = []pkg.Turn{patientTurn, assistantTurn}
	} else {
		sess.OffTopicCount, sess.UncertainCount = offTopic, uncertain
		sess.Window = append(window, assistantTurn)
	}

	n.record(ctx, sess.ID, patientTurn)
	n.record(ctx, sess.ID, assistantTurn)

	out := Outcome{
		Reply:      reply,
		PromptKind: kind,
		Terminal:   escalated || sess.Node().Kind.Terminal(),
		Escalated:  escalated,
		Switched:   !escalated && sess.Node().Kind == pkg.KindSwitch,
	}
	if n.log != nil {
		n.log.Info("turn advanced",
			zap.String("session_id", sess.ID),
			zap.String("node", sess.CurrentNode),
			zap.String("prompt_kind", kind.String()),
			zap.Bool("terminal", out.Terminal),
			zap.Int("off_topic", sess.OffTopicCount),
			zap.Int("uncertain", sess.UncertainCount))
	}
	return out, nil
}

func (n *Navigator) record(ctx context.Context, sessionID string, turn pkg.Turn) {
	if n.transcript == nil {
		return
	}
	if err := n.transcript.Append(ctx, sessionID, turn); err != nil && n.log != nil {
		n.log.Warn("transcript append failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// classifyContext renders the current question and its ordered branches for
// the classification prompt. Each branch is shown by its target step so the
// model can map the reply onto it.
func classifyContext(node pkg.Node, branches []string, chart *pkg.Flowchart) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(node.Content)
	b.WriteString("\nBranches:\n")
	for i, id := range branches {
		fmt.Fprintf(&b, "%d. %s\n", i+1, chart.Nodes[id].Content)
	}
	return b.String()
}
