package assistant

import (
	"fmt"
	"strings"
)

// BuildSystemInstruction returns the system prompt shared by both
// generation methods. The marker sentence is quoted verbatim so the
// resolver's substring check stays in sync with what the model emits.
func BuildSystemInstruction(failureMarker string) string {
	return "You are an assistant answering questions about an organization's internal documents. " +
		"Answer based only on the information available to you. Be concise and factual. " +
		fmt.Sprintf("If you cannot answer from the available information, reply with exactly: %q", failureMarker)
}

// BuildRichPrompt assembles the context-heavy prompt used by the primary
// answer tier.
func BuildRichPrompt(question, docContext, callerRole string) string {
	var sb strings.Builder
	if docContext != "" {
		sb.WriteString("<documents>\n")
		sb.WriteString(docContext)
		sb.WriteString("\n</documents>\n\n")
	}
	fmt.Fprintf(&sb, "The person asking has the %q role in the organization.\n", callerRole)
	fmt.Fprintf(&sb, "Question: %s", question)
	return sb.String()
}

// BuildSimplePrompt assembles the lightweight prompt for the secondary tier.
func BuildSimplePrompt(question, callerRole string) string {
	return fmt.Sprintf("The person asking has the %q role in the organization.\nQuestion: %s", callerRole, question)
}
