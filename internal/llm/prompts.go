package llm

// prompts.go defines the instruction templates behind each PromptKind.
// Keeping them in one file makes them easy to tweak without touching the
// rest of the code. The {{context}} marker is replaced with the text the
// caller passes to Invoke.

import (
	"strings"

	"triagemd/pkg"
)

const contextMarker = "{{context}}"

var templates = map[pkg.PromptKind]string{
	// Branch classification. The context is the current question followed by
	// the numbered branch options. The model must answer with a single
	// token so the verdict parser stays trivial.
	pkg.PromptClassify: "You are the decision component of a medical triage system following a clinical flowchart. " +
		"Below is the question the patient was asked and the possible branches.\n\n" + contextMarker + "\n\n" +
		"Based on the patient's replies in this conversation, answer with exactly one token: " +
		"the number of the branch their answer implies, the word off-topic if the reply does not address the question, " +
		"or the word uncertain if the reply addresses the question but cannot be mapped to any branch.",

	// Flowchart selection. The context is the patient's demographics and
	// concern followed by the ranked candidate descriptions.
	pkg.PromptPick: "You are the retrieval component of a medical triage system. " +
		"Below is a patient's description of their concern and a ranked list of candidate triage flowcharts.\n\n" + contextMarker + "\n\n" +
		"Reply with the exact name of the single most appropriate flowchart from the candidates, " +
		"or with: no flowchart available — if none of them fits the concern.",

	// Normal progress: ask the next flowchart step.
	pkg.PromptQuestion: "You are a friendly medical triage assistant guiding a patient through a clinical flowchart. " +
		"Your next step is:\n\n" + contextMarker + "\n\n" +
		"Ask this as one short, empathetic question in plain language. Do not diagnose and do not give treatment advice.",

	// Terminal guidance, escalation and refusal all deliver fixed content.
	pkg.PromptGuidance: "You are a friendly medical triage assistant. The triage protocol has reached this outcome:\n\n" +
		contextMarker + "\n\n" +
		"Relay this guidance to the patient clearly and kindly in a few sentences. Do not add diagnoses or treatment advice of your own.",

	// The patient wandered off the question; steer back without moving on.
	pkg.PromptOffTopic: "You are a friendly medical triage assistant. The patient's last message did not address the current question:\n\n" +
		contextMarker + "\n\n" +
		"Briefly acknowledge what they said, then politely repeat the question. Stay on this question.",

	// The reply addressed the question but was inconclusive; re-ask simply.
	pkg.PromptClarify: "You are a friendly medical triage assistant. The patient's last answer to the current question was inconclusive:\n\n" +
		contextMarker + "\n\n" +
		"Re-ask the question in simpler words, suggesting the kind of answer that would help (for example yes or no).",
}

// render resolves a template and substitutes the context text.
func render(kind pkg.PromptKind, contextText string) string {
	tpl, ok := templates[kind]
	if !ok {
		tpl = templates[pkg.PromptGuidance]
	}
	return strings.ReplaceAll(tpl, contextMarker, contextText)
}
