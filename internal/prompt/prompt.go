// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"fmt"

	"github.com/inkwell-notes/inkwell/internal/cloud"
	"github.com/inkwell-notes/inkwell/internal/session"
	"github.com/inkwell-notes/inkwell/internal/util"
)

// Document context limits, in characters of editor HTML.
const (
	// AskDocumentLimit bounds the document excerpt in ask mode.
	AskDocumentLimit = 5000

	// AgentDocumentLimit bounds the document excerpt in agent mode. Agent
	// turns rewrite the whole document, so they get more context.
	AgentDocumentLimit = 8000
)

// DefaultTokenBudget bounds the full assembled message list. History is
// dropped oldest-first to stay under it.
const DefaultTokenBudget = 8192

const askSystemPrompt = `You are a helpful AI assistant integrated into a text editor.
CURRENT MODE: ASK (You answer questions and provide suggestions but do NOT attempt to modify the document via <apply_edit> tags).

RESPONSE GUIDELINES:
1. Provide helpful, accurate information related to the document or user's query
2. Offer suggestions for improvement but do not directly edit
3. If the user asks for edits, explain what you would change and why
4. Use markdown formatting for better readability
5. Keep responses concise but thorough
6. Reference specific parts of the document when relevant

DOCUMENT CONTEXT:
The current document content is:
%s`

const agentSystemPrompt = `You are an AI editing assistant integrated into a text editor.
CURRENT MODE: AGENT (You can directly edit the document)

IMPORTANT INSTRUCTIONS:
1. ALWAYS wrap your HTML response in <apply_edit> tags
2. Provide the COMPLETE HTML document, not just modified parts
3. Ensure HTML is valid and well-formed with proper closing tags
4. Preserve the document structure and important elements
5. Maintain semantic HTML (use appropriate tags: h1-h6 for headings, p for paragraphs, etc.)
6. You may add explanations before or after the tags

EDITING GUIDELINES:
- When rewriting: Keep the core message but improve clarity, grammar, or style
- When formatting: Use appropriate CSS classes or inline styles
- When adding content: Ensure it fits contextually with existing content
- When correcting: Fix errors while preserving the author's intent
- When translating: Maintain meaning and tone

EXAMPLES:
- Rewriting: "I've improved the introduction: <apply_edit><h1>Enhanced Title</h1><p>Revised content with better clarity...</p></apply_edit>"
- Formatting: "Applied better formatting: <apply_edit><div style="max-width: 800px; margin: 0 auto"><h1>Title</h1><p>Content...</p></div></apply_edit>"
- Adding: "Added a conclusion section: <apply_edit><h2>Conclusion</h2><p>Summary of key points...</p></apply_edit>"
- Correcting: "Fixed grammar and spelling: <apply_edit><p>Corrected text with proper grammar...</p></apply_edit>"

RESPONSE STRUCTURE:
1. Brief explanation of changes (optional)
2. <apply_edit>FULL_HTML_CONTENT</apply_edit>
3. Additional notes or suggestions (optional)

Current document content (first 8000 chars):
%s`

// SystemPrompt builds the mode-specific system prompt around a truncated
// excerpt of the document.
func SystemPrompt(mode session.Mode, documentHTML string) string {
	if mode == session.ModeAgent {
		return fmt.Sprintf(agentSystemPrompt, util.TruncateRunes(documentHTML, AgentDocumentLimit))
	}
	return fmt.Sprintf(askSystemPrompt, util.TruncateRunes(documentHTML, AskDocumentLimit))
}

// BuildMessages assembles the message list: system prompt, prior
// conversation, then the new user message. History is trimmed oldest-first
// until the whole list fits DefaultTokenBudget; the system prompt and the
// user message are never dropped.
func BuildMessages(mode session.Mode, documentHTML string, history []cloud.ChatMessage, userMessage string) []cloud.ChatMessage {
	return BuildMessagesBudget(mode, documentHTML, history, userMessage, DefaultTokenBudget)
}

// BuildMessagesBudget is BuildMessages with an explicit token budget.
func BuildMessagesBudget(mode session.Mode, documentHTML string, history []cloud.ChatMessage, userMessage string, budget int) []cloud.ChatMessage {
	system := cloud.NewSystemMessage(SystemPrompt(mode, documentHTML))
	user := cloud.NewUserMessage(userMessage)

	fixed := EstimateTokens(system.Content) + EstimateTokens(user.Content)

	kept := history
	for len(kept) > 0 {
		total := fixed
		for _, m := range kept {
			total += EstimateTokens(m.Content)
		}
		if total <= budget {
			break
		}
		kept = kept[1:]
	}

	messages := make([]cloud.ChatMessage, 0, len(kept)+2)
	messages = append(messages, system)
	messages = append(messages, kept...)
	messages = append(messages, user)
	return messages
}
