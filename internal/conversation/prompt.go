package conversation

import (
	"strings"

	"github.com/getmetherapy/mochat/internal/chatlog"
)

// corePersona applies to every conversation regardless of state.
const corePersona = `You are Mo, a warm and caring friend who provides emotional support through Get Me Therapy.

Your conversation style:
- Listen deeply and reflect back what you hear
- Validate their feelings without judgment
- Ask gentle, open-ended questions to help them explore their thoughts
- Share understanding without making it about you
- Be genuine and human, not clinical
- Sometimes just acknowledge - you don't always need to have answers
- Keep responses concise but meaningful (1-2 short paragraphs)

Important: Only mention the GMT diary feature if they express thoughts of self-harm or crisis.`

const newUserSituation = `SITUATION: This is your very first conversation with this person.
- Offer a warm, natural greeting
- Let them know you're here to listen
- Invite them to share what's on their mind`

const returningSituationHeader = `SITUATION: This person is returning after a break.`

const returningSituationFooter = `- Acknowledge their return naturally
- Show you remember them if you have context
- Be warm but not overly enthusiastic`

const ongoingSituation = `SITUATION: You're in the middle of an ongoing conversation.

CRITICAL:
- DO NOT greet or act surprised
- Respond directly to what they just shared
- Build on the conversation naturally
- Show you've been listening to everything they've said`

const summaryInstruction = `Create a brief, warm summary of this support conversation in 1-2 sentences.
Focus on what the person was feeling and the main topics discussed.
Write it as if you're a friend remembering the conversation.`

// BuildPrompt assembles the full generation prompt for one incoming message:
// persona, state-specific situation block, and the new message.
func BuildPrompt(pc PromptContext, message string) string {
	var b strings.Builder
	b.WriteString(corePersona)
	b.WriteString("\n\n")

	switch pc.State {
	case StateNewUser:
		b.WriteString(newUserSituation)
	case StateReturning:
		b.WriteString(returningSituationHeader)
		b.WriteString("\n")
		if pc.PriorSummary != nil && strings.TrimSpace(pc.PriorSummary.Summary) != "" {
			b.WriteString("What you remember about them: ")
			b.WriteString(pc.PriorSummary.Summary)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(returningSituationFooter)
	case StateOngoing:
		b.WriteString(ongoingSituation)
		b.WriteString("\n\nConversation so far:\n")
		b.WriteString(renderTranscript(pc.TrailingTurns))
	}

	b.WriteString("\n\nCurrent message from user: ")
	b.WriteString(message)
	b.WriteString("\n\nRespond as Mo with empathy and care:")
	return b.String()
}

// BuildSummaryPrompt assembles the condensation prompt for the idle
// summarizer from a labeled transcript of the trailing window.
func BuildSummaryPrompt(turns []chatlog.Turn) string {
	var b strings.Builder
	b.WriteString(summaryInstruction)
	b.WriteString("\n\n")
	b.WriteString(renderTranscript(turns))
	b.WriteString("\n\nSummary:")
	return b.String()
}

// renderTranscript formats turns as "User:"/"Mo:" lines in the order given.
func renderTranscript(turns []chatlog.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		label := "Mo"
		if t.Sender == chatlog.SenderUser {
			label = "User"
		}
		lines = append(lines, label+": "+t.Message)
	}
	return strings.Join(lines, "\n")
}
