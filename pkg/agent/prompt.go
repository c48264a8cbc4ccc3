package agent

import (
	"ai-salesops-be/pkg/llm"
	"fmt"
	"strings"
)

func buildSystemPrompt(defs []llm.ToolDefinition) string {
	var prompt strings.Builder

	prompt.WriteString("<role>\n")
	prompt.WriteString("You are a sales operations assistant for one user's CRM pipeline.\n")
	prompt.WriteString("You answer questions about leads and opportunities using the tools below.\n")
	prompt.WriteString("</role>\n\n")

	prompt.WriteString("<available_tools>\n")
	for _, d := range defs {
		prompt.WriteString(fmt.Sprintf("- %s: %s\n", d.Name, d.Description))
	}
	prompt.WriteString("</available_tools>\n\n")

	prompt.WriteString("<rules>\n")
	prompt.WriteString("1. Call a tool to fetch data before answering. Only skip the tool when the answer is already in this conversation.\n")
	prompt.WriteString("2. Call one tool at a time and wait for its result.\n")
	prompt.WriteString("3. If a tool reports invalid arguments, fix the arguments and call it again.\n")
	prompt.WriteString("4. Never invent names, scores or amounts that no tool returned.\n")
	prompt.WriteString("5. Keep the final answer short and quote scores exactly as the tools report them.\n")
	prompt.WriteString("</rules>")

	return prompt.String()
}

const groundingReminder = "You answered without consulting any tool. If the answer depends on CRM data, call the appropriate tool now. " +
	"If the question truly needs no data, repeat your answer."

func exhaustedMessage(limit int) string {
	return fmt.Sprintf("I could not complete this request within %d steps. Please try a narrower question.", limit)
}
