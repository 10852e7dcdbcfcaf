package assistant

import (
	"fmt"
	"strings"
)

// Fixed replies used outside the per-turn rendering.
const (
	PromptMessage = "Skriv hva du trenger hjelp med, så hjelper jeg deg! 😊"
	ResetMessage  = "Samtalen er tilbakestilt. Jeg husker ikke vår tidligere dialog nå! 🔄"
	// ApologyMessage is shown when a turn fails for reasons the user cannot act on.
	ApologyMessage = "😅 Oops! Noe gikk galt i mitt AI-hode. Prøv igjen, eller opprett en support-sak hvis problemet fortsetter."
)

const maxQuestions = 2

var urgentOpenings = []string{
	"⚡ **Jeg ser dette haster!** La meg hjelpe deg raskt.",
	"🚨 **Forstår at dette er viktig.** La oss løse det nå.",
	"⏰ **OK, dette må fikses fort.** Jeg skal hjelpe deg umiddelbart.",
}

var successMessages = []string{
	"🎉 **Fantastisk!** Jeg er så glad jeg kunne hjelpe deg!\n\nHvis du får andre problemer, er jeg her. Ha en fin dag! 😊",
	"✨ **Perfekt!** Det var akkurat det jeg håpet på!\n\nHusk at jeg alltid er her hvis du trenger hjelp igjen. Lykke til! 🚀",
	"🌟 **Supert!** Kjempe bra at det virket!\n\nFøl deg fri til å spørre meg igjen hvis du trenger noe. God dag videre! 💪",
}

const humanHandoffMessage = "🤝 **Selvfølgelig! La meg sette deg i kontakt med vårt support-team.**\n\n" +
	"De er ekte mennesker som har mer erfaring og tilgang til flere verktøy enn meg.\n\n" +
	"**📝 Opprett en support-sak her:**\n" +
	"Klikk på 'Saker' i menyen, og teamet vårt tar kontakt med deg så fort som mulig!\n\n" +
	"Gjennomsnittlig responstid: 1-2 timer ⏰\n\n" +
	"Jeg håper de kan hjelpe deg bedre enn jeg kunne! 💙"

// Responder turns a classified turn into reply text. It is safe for concurrent use.
type Responder struct {
	kb *KnowledgeBase
}

// NewResponder builds a responder over kb.
func NewResponder(kb *KnowledgeBase) *Responder {
	return &Responder{kb: kb}
}

// Render produces the reply text for kind. state is the state after the turn was applied.
func (r *Responder) Render(kind ReplyKind, class Classification, state State) string {
	switch kind {
	case KindPrompt:
		return PromptMessage
	case KindHandoff:
		return humanHandoffMessage
	case KindResolved:
		return pick(successMessages, state.MessageCount)
	case KindEscalation:
		return r.escalation(state.Context)
	case KindClarification:
		return r.clarification(state.Context)
	}

	topic, ok := r.kb.Topic(class.Topic)
	if !ok {
		return r.clarification(state.Context)
	}
	return r.answer(topic, state)
}

func (r *Responder) answer(topic *Topic, state State) string {
	ctx := state.Context
	var b builder

	b.line(r.opening(topic, ctx.Sentiment, state.MessageCount))
	b.blank()

	if explanation, ok := topic.ExplainError(ctx.ErrorMessage); ok {
		b.line("🎯 **Jeg forstår problemet:**")
		b.linef("Feilmeldingen '%s' betyr: %s", ctx.ErrorMessage, explanation)
		b.blank()
	}

	if len(ctx.ActionsTried) > 0 {
		b.linef("✅ Jeg ser du allerede har prøvd: %s", strings.Join(ctx.ActionsTried, ", "))
		b.line("La meg gi deg neste steg basert på det.")
		b.blank()
	}

	if system := systemLine(ctx); system != "" {
		b.linef("**System:** %s", system)
		b.blank()
	}

	b.line(tierHeading(state.Tier))
	b.blank()
	for i, step := range topic.Solutions.Steps(state.Tier) {
		b.linef("%d. %s", i+1, step)
	}
	b.blank()

	if state.TopicTurns == 1 && len(topic.Questions) > 0 {
		b.line("**❓ For å hjelpe deg bedre:**")
		for _, q := range topic.Questions[:min(maxQuestions, len(topic.Questions))] {
			b.linef("• %s", q)
		}
		b.blank()
	}

	if state.Tier == TierAdvanced {
		b.line("**💡 Hvis dette fortsatt ikke løser problemet:**")
		b.line("Jeg anbefaler at du oppretter en support-sak så kan vårt team hjelpe deg direkte.")
		b.line("De har tilgang til flere verktøy og kan feilsøke mer detaljert.")
	} else {
		b.line("**💬 Fungerte det?**")
		b.line("• Hvis ja: Fantastisk! Glad jeg kunne hjelpe! 😊")
		b.line("• Hvis nei: Fortell meg hva som skjedde, så går vi videre.")
	}
	return b.String()
}

// opening picks exactly one line: urgency, then frustration, then confusion, then the topic default.
func (r *Responder) opening(topic *Topic, s Sentiment, turn int) string {
	switch {
	case s.Urgency == UrgencyHigh:
		return pick(urgentOpenings, turn)
	case s.Emotion == EmotionFrustrated && s.FrustrationLevel > 1:
		return "😔 **Jeg forstår at dette er frustrerende.** La meg hjelpe deg å løse dette en gang for alle."
	case s.Emotion == EmotionFrustrated:
		return "💙 **Jeg forstår at dette er irriterende.** La oss finne en løsning sammen."
	case s.Emotion == EmotionConfused:
		return "🤝 **Jeg skal forklare dette enkelt.** Ikke bekymre deg, vi tar det steg for steg."
	case topic.Opening != "":
		return topic.Opening
	default:
		return "👋 **Hei! Jeg er her for å hjelpe deg.**"
	}
}

func (r *Responder) clarification(ctx Context) string {
	var b builder
	if ctx.Sentiment.Emotion == EmotionFrustrated {
		b.line("💙 **Jeg merker at dette er frustrerende for deg.**")
		b.line("La meg hjelpe - jeg trenger bare litt mer info for å gi deg best mulig hjelp.")
	} else {
		b.line("🤔 **Jeg vil gjerne hjelpe deg, men trenger litt mer informasjon.**")
	}
	b.blank()

	var understood []string
	if ctx.OS != "" {
		understood = append(understood, "✅ System: "+ctx.OS)
	}
	if ctx.Browser != "" {
		understood = append(understood, "✅ Nettleser: "+ctx.Browser)
	}
	if ctx.Application != "" {
		understood = append(understood, "✅ Program: "+ctx.Application)
	}
	if len(understood) > 0 {
		b.line("**Dette har jeg forstått:**")
		for _, u := range understood {
			b.line(u)
		}
		b.blank()
	}

	b.line("**Jeg kan hjelpe med:**")
	for _, topic := range r.kb.Topics() {
		if topic.Example != "" {
			b.linef("• **%s** - '%s'", topic.Label, topic.Example)
		} else {
			b.linef("• **%s**", topic.Label)
		}
	}
	b.blank()
	b.line("**💡 Tips for best hjelp:**")
	b.line("• Beskriv problemet: 'Jeg kan ikke logge inn på Feide på PC-en min'")
	b.line("• Inkluder feilmelding: 'Får feilmelding \"timeout\"'")
	b.line("• Fortell hva du har prøvd: 'Har startet på nytt, men hjelper ikke'")
	b.blank()
	b.line("**Prøv å beskrive problemet ditt med noen flere ord, så hjelper jeg deg! 😊**")
	return b.String()
}

func (r *Responder) escalation(ctx Context) string {
	var b builder
	b.line("🤝 **Jeg tror det er best at vårt support-team tar over herfra.**")
	b.blank()
	b.line("De har tilgang til flere verktøy og kan:")
	b.line("• Se direkte på systemet ditt")
	b.line("• Sjekke logger og feilmeldinger")
	b.line("• Gjøre mer avanserte endringer")
	b.line("• Gi deg personlig oppfølging")
	b.blank()
	b.line("**📝 Når du oppretter en support-sak, inkluder:**")
	for _, item := range Checklist(ctx) {
		b.linef("• %s", item)
	}
	b.blank()
	b.line("Du kan opprette en sak ved å klikke på 'Saker' i menyen. 👆")
	b.blank()
	b.line("Vårt team svarer vanligvis innen 1-2 timer! 💙")
	return b.String()
}

// Checklist lists the known context fields a support ticket should carry.
func Checklist(ctx Context) []string {
	var items []string
	if ctx.ErrorMessage != "" {
		items = append(items, fmt.Sprintf("Feilmelding: '%s'", ctx.ErrorMessage))
	}
	if ctx.OS != "" {
		items = append(items, "System: "+ctx.OS)
	}
	if ctx.Browser != "" {
		items = append(items, "Nettleser: "+ctx.Browser)
	}
	if ctx.Application != "" {
		items = append(items, "Program: "+ctx.Application)
	}
	if len(ctx.ActionsTried) > 0 {
		items = append(items, "Hva du har prøvd: "+strings.Join(ctx.ActionsTried, ", "))
	}
	return items
}

func systemLine(ctx Context) string {
	var parts []string
	if ctx.OS != "" {
		parts = append(parts, "💻 "+ctx.OS)
	}
	if ctx.Browser != "" {
		parts = append(parts, "🌐 "+ctx.Browser)
	}
	if ctx.Application != "" {
		parts = append(parts, "📱 "+ctx.Application)
	}
	return strings.Join(parts, " | ")
}

func tierHeading(t Tier) string {
	switch t {
	case TierIntermediate:
		return "**🔧 La oss prøve mer avanserte løsninger:**"
	case TierAdvanced:
		return "**⚙️ Dette er mer avanserte løsninger:**"
	default:
		return "**🔧 Her er hva jeg anbefaler å prøve:**"
	}
}

// pick chooses a variant deterministically so identical conversations produce identical replies.
func pick(variants []string, turn int) string {
	if turn < 0 {
		turn = -turn
	}
	return variants[turn%len(variants)]
}

type builder struct {
	lines []string
}

func (b *builder) line(s string) { b.lines = append(b.lines, s) }

func (b *builder) linef(format string, args ...any) { b.lines = append(b.lines, fmt.Sprintf(format, args...)) }

func (b *builder) blank() { b.lines = append(b.lines, "") }

func (b *builder) String() string {
	return strings.TrimRight(strings.Join(b.lines, "\n"), "\n")
}
