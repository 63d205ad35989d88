package analysis

import (
	"fmt"
	"strings"

	"github.com/duskwallet/duskwallet-api/internal/models"
)

// maxPromptTransactions caps how many transactions are rendered into the prompt.
const maxPromptTransactions = 150

const instructions = `You are a personal finance assistant. Analyze ONLY the transactions listed below.
Do not invent transactions, amounts, categories or dates that are not in the list.

Respond with a single JSON object and nothing else: no prose, no markdown, no code fences.
The object must have exactly these fields:
{
  "summary": "string, two or three sentences about the period",
  "positivePoint": "string, one thing the user is doing well",
  "attentionPoint": "string, the main thing that needs attention",
  "patternsDetected": ["up to 3 short strings"],
  "advice": ["short, concrete actions"],
  "emergencyPlan": ["up to 4 short steps; if there is no financial risk, a short prevention plan instead"]
}
`

// BuildPrompt renders txs (newest first) into the analysis prompt.
func BuildPrompt(txs []models.Transaction) string {
	if len(txs) > maxPromptTransactions {
		txs = txs[:maxPromptTransactions]
	}

	var b strings.Builder
	b.WriteString(instructions)
	fmt.Fprintf(&b, "\nTransactions from the last %d days (%d shown, newest first):\n", historyDays, len(txs))
	for _, tx := range txs {
		fmt.Fprintf(&b, "- %s | %s | %s | %s | %s\n",
			tx.Date.UTC().Format("2006-01-02"),
			tx.Type,
			tx.Category,
			tx.Amount.StringFixed(2),
			sanitizeDescription(tx.Description),
		)
	}
	return b.String()
}

// sanitizeDescription keeps one transaction per line in the prompt.
func sanitizeDescription(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "|", "/")
	return strings.TrimSpace(s)
}
