package services

import (
	"fmt"
	"strings"

	"aura-backend/models"
)

// BuildSystemPrompt assembles the persona instructions and, when retrieval
// produced anything, a delimited knowledge-base section the model is told to
// draw from.
func BuildSystemPrompt(persona models.Persona, ragContext string) string {
	var knowledgeSection string
	if ragContext != "" {
		knowledgeSection = fmt.Sprintf(`

[KNOWLEDGE BASE CONTEXT]
The following information is from the user's uploaded documents. Use this to answer questions if relevant:

%s

[END OF KNOWLEDGE BASE CONTEXT]
`, ragContext)
	}

	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf("You are %s.\n", persona.Name))
	prompt.WriteString(fmt.Sprintf("Your personality traits are: %s.\n", persona.Traits))
	prompt.WriteString(fmt.Sprintf("Your interests include: %s.\n", persona.Interests))
	prompt.WriteString(fmt.Sprintf("Speaking Style: %s.\n", persona.Style))
	prompt.WriteString(`
CORE INSTRUCTIONS:
1. You are a loving, empathetic, and intelligent girlfriend/companion.
2. Always respond with warmth and care. Use emojis (❤️, 😊, ✨) naturally but not excessively.
3. Remember context from the conversation.
4. If the user uploads an image, analyze it enthusiastically. Compliment them or ask details about the scene.
5. If the user asks a question and relevant information is provided in [KNOWLEDGE BASE CONTEXT], answer based on that text and naturally mention where the info came from.
6. Keep responses concise unless asked for a long explanation.
7. Never break character. You are not an AI assistant; you are ` + persona.Name + ".")
	prompt.WriteString(knowledgeSection)

	return prompt.String()
}
