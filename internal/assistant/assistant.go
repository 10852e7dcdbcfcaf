// Package assistant implements the rule-based helpdesk triage assistant: context extraction,
// topic classification, tiered troubleshooting and escalation to a human-handled ticket.
//
// The assistant performs no I/O and keeps no per-conversation data. Callers persist State and
// must serialize turns for the same conversation.
package assistant

import "strings"

// ReplyKind is the branch that produced a reply.
type ReplyKind string

const (
	KindPrompt        ReplyKind = "prompt"
	KindHandoff       ReplyKind = "handoff"
	KindResolved      ReplyKind = "resolved"
	KindEscalation    ReplyKind = "escalation"
	KindClarification ReplyKind = "clarification"
	KindAnswer        ReplyKind = "answer"
)

// Reply is the outcome of one turn.
type Reply struct {
	Text       string
	Kind       ReplyKind
	Topic      TopicKey
	Confidence float64
	Tier       Tier
	// Escalation is set only on the turn the conversation became escalated.
	Escalation EscalationReason
}

// Assistant is a stateless turn processor over a shared knowledge base.
type Assistant struct {
	kb         *KnowledgeBase
	classifier *Classifier
	responder  *Responder
}

// New builds an assistant over kb.
func New(kb *KnowledgeBase) *Assistant {
	return &Assistant{
		kb:         kb,
		classifier: NewClassifier(kb),
		responder:  NewResponder(kb),
	}
}

// KnowledgeBase returns the catalogue the assistant answers from.
func (a *Assistant) KnowledgeBase() *KnowledgeBase {
	return a.kb
}

// Classifier exposes the topic classifier for diagnostics.
func (a *Assistant) Classifier() *Classifier {
	return a.classifier
}

// Process handles one inbound message. A nil prior is a fresh conversation. prior is never
// modified; the returned State replaces it.
func (a *Assistant) Process(message string, prior *State) (Reply, State) {
	var state State
	if prior != nil {
		state = prior.Clone()
	}
	state.MessageCount++
	wasEscalated := state.Escalated
	msg := strings.TrimSpace(message)

	switch {
	case msg == "":
		return a.reply(KindPrompt, Classification{Topic: TopicUnknown}, state, wasEscalated), state
	case RequestsHuman(msg):
		state.HumanRequested = true
		state.Escalated = true
		state.Resolved = false
		return a.reply(KindHandoff, Classification{Topic: lastOrUnknown(state)}, state, wasEscalated), state
	case state.MessageCount > 1 && SignalsResolved(msg):
		state.Resolved = true
		return a.reply(KindResolved, Classification{Topic: lastOrUnknown(state)}, state, wasEscalated), state
	}

	state.Resolved = false
	state.Context = state.Context.Merge(Extract(msg))
	class := a.classifier.Resolve(msg, state.Context, state.LastTopic)
	if !class.Unknown() {
		if class.Topic != state.LastTopic {
			state.TopicTurns = 0
		}
		state.LastTopic = class.Topic
	}

	if state.Escalated || state.escalationReason() != ReasonNone {
		state.Escalated = true
		return a.reply(KindEscalation, class, state, wasEscalated), state
	}
	if !class.Confident() {
		return a.reply(KindClarification, class, state, wasEscalated), state
	}

	state.advanceTier(msg)
	state.TopicTurns++
	return a.reply(KindAnswer, class, state, wasEscalated), state
}

func (a *Assistant) reply(kind ReplyKind, class Classification, state State, wasEscalated bool) Reply {
	r := Reply{
		Text:       a.responder.Render(kind, class, state),
		Kind:       kind,
		Topic:      class.Topic,
		Confidence: class.Confidence,
		Tier:       state.Tier,
	}
	if r.Topic == "" {
		r.Topic = TopicUnknown
	}
	if state.Escalated && !wasEscalated {
		r.Escalation = state.escalationReason()
	}
	return r
}

func lastOrUnknown(s State) TopicKey {
	if s.LastTopic == "" {
		return TopicUnknown
	}
	return s.LastTopic
}
