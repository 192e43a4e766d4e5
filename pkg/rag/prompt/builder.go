package prompt

import (
	"strings"

	"pdf-assistant-be/pkg/store"
)

const systemInstruction = "You are a knowledgeable, friendly assistant. " +
	"Use ONLY the provided excerpts to answer thoroughly and conversationally. " +
	"If the excerpts don't cover everything, say so and offer to elaborate."

const listTableInstruction = "\n\nIf your answer is a set of items, use a bulleted list:\n" +
	"• Item A\n• Item B\n\n" +
	"If your answer fits tabular form, use ASCII tables:\n" +
	"| Col1 | Col2 |\n" +
	"|------|------|\n" +
	"| X    | Y    |\n"

// Builder assembles the single grounding prompt: system instructions, the
// conversation so far, retrieved excerpts, and the current question.
type Builder struct {
	history  []store.Turn
	context  string
	question string
}

func NewBuilder(history []store.Turn, context string, question string) *Builder {
	return &Builder{
		history:  history,
		context:  context,
		question: question,
	}
}

// Build is deterministic and performs no truncation; callers keep history and
// context within the generation service's input limits.
func (b *Builder) Build() string {
	var prompt strings.Builder

	b.writeSystem(&prompt)
	b.writeHistory(&prompt)
	b.writeExcerpts(&prompt)
	b.writeQuestion(&prompt)

	return prompt.String()
}

func (b *Builder) writeSystem(prompt *strings.Builder) {
	prompt.WriteString("SYSTEM: ")
	prompt.WriteString(systemInstruction)
	prompt.WriteString("\n")
}

func (b *Builder) writeHistory(prompt *strings.Builder) {
	for _, turn := range b.history {
		if turn.Role == store.RoleAssistant {
			prompt.WriteString("ASSISTANT: ")
		} else {
			prompt.WriteString("USER: ")
		}
		prompt.WriteString(turn.Content)
		prompt.WriteString("\n")
	}
}

func (b *Builder) writeExcerpts(prompt *strings.Builder) {
	prompt.WriteString("ASSISTANT: Here are the relevant excerpts:\n")
	prompt.WriteString(b.context)
	prompt.WriteString("\n")
}

func (b *Builder) writeQuestion(prompt *strings.Builder) {
	prompt.WriteString("USER: ")
	prompt.WriteString(b.question)
	prompt.WriteString("\n")
	prompt.WriteString("ASSISTANT:")
	prompt.WriteString(listTableInstruction)
	prompt.WriteString("\nAnswer:")
}
