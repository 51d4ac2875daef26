package core

// prompts.go holds the fixed user-facing messages the interview can fall back
// to. Keeping them in a separate file makes them easy to tweak without
// touching the rest of the code.

const (
	// WelcomeMessage greets the patient once demographics are collected.
	WelcomeMessage = "Welcome! Thank you for sharing the information. How can I help you today?"

	// RefusalMessage is sent when no flowchart covers the patient's concern.
	// The interview does not start.
	RefusalMessage = "Sorry, I am not authorized to help with this condition. Please consult a healthcare professional for personalized triage."

	// EscalationMessage replaces the node content when too many consecutive
	// off-topic or inconclusive replies pile up at one question.
	EscalationMessage = "Sorry, I can't proceed due to the lack of information. Please consult a healthcare professional directly."

	// CapMessage is sent when the patient exceeds the per-session message
	// limit.
	CapMessage = "We have reached the message limit for this visit. Please consult a healthcare professional to continue."
)
