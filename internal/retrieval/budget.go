// ABOUTME: Token-bounded selection of ranked retrieval chunks
// ABOUTME: Oversized candidates are skipped rather than truncated so smaller later chunks still fit
package retrieval

import "github.com/harper/chat2db/internal/models"

// DefaultTokenBudget is the default limit on retrieved context per request
const DefaultTokenBudget = 1000

// TokenCounter measures text in tokenizer units
type TokenCounter func(text string) int

// ApproxTokens estimates tokens as one per four bytes, rounded up
func ApproxTokens(text string) int {
	return (len(text) + 3) / 4
}

// SelectWithinBudget walks chunks in rank order, keeping each chunk that
// still fits under budget and skipping those that do not. It stops as
// soon as the budget is reached. The result preserves input order and its
// total token count never exceeds budget.
func SelectWithinBudget(chunks []models.Chunk, budget int, count TokenCounter) ([]models.Chunk, int) {
	if count == nil {
		count = ApproxTokens
	}
	selected := []models.Chunk{}
	if budget <= 0 {
		return selected, 0
	}

	total := 0
	for _, c := range chunks {
		n := count(c.Content)
		if total+n > budget {
			continue
		}
		selected = append(selected, c)
		total += n
		if total >= budget {
			break
		}
	}
	return selected, total
}
