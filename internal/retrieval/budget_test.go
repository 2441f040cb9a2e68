// ABOUTME: Tests for token-bounded chunk selection
// ABOUTME: Checks the budget bound, skip-not-truncate behaviour and order preservation
package retrieval

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/harper/chat2db/internal/models"
)

func chunksOfTokens(sizes ...int) []models.Chunk {
	out := make([]models.Chunk, len(sizes))
	for i, n := range sizes {
		out[i] = models.Chunk{ChunkID: fmt.Sprintf("c%d", i), Content: strings.Repeat("x", n)}
	}
	return out
}

func lenCounter(s string) int { return len(s) }

func ids(chunks []models.Chunk) string {
	var s []string
	for _, c := range chunks {
		s = append(s, c.ChunkID)
	}
	return strings.Join(s, ",")
}

func TestSelectWithinBudget(t *testing.T) {
	tests := []struct {
		name      string
		sizes     []int
		budget    int
		wantIDs   string
		wantTotal int
	}{
		{"all fit", []int{10, 20, 30}, 100, "c0,c1,c2", 60},
		{"skips oversized and continues", []int{40, 80, 30, 50}, 100, "c0,c2", 70},
		{"stops once budget reached", []int{50, 50, 1}, 100, "c0,c1", 100},
		{"nothing fits", []int{200, 300}, 100, "", 0},
		{"empty input", nil, 100, "", 0},
		{"zero budget", []int{1}, 0, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total := SelectWithinBudget(chunksOfTokens(tt.sizes...), tt.budget, lenCounter)
			if ids(got) != tt.wantIDs || total != tt.wantTotal {
				t.Errorf("got (%s, %d), want (%s, %d)", ids(got), total, tt.wantIDs, tt.wantTotal)
			}
			if got == nil {
				t.Error("result should be an empty slice, not nil")
			}
		})
	}
}

func TestSelectWithinBudget_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		sizes := make([]int, r.Intn(30))
		for i := range sizes {
			sizes[i] = 1 + r.Intn(400)
		}
		budget := 1 + r.Intn(1500)
		input := chunksOfTokens(sizes...)

		got, total := SelectWithinBudget(input, budget, lenCounter)

		sum := 0
		for _, c := range got {
			sum += len(c.Content)
		}
		if sum != total || total > budget {
			t.Fatalf("iteration %d: total %d (sum %d) exceeds budget %d", iter, total, sum, budget)
		}

		// Order-preserving subsequence of the input
		j := 0
		for _, c := range got {
			for j < len(input) && input[j].ChunkID != c.ChunkID {
				j++
			}
			if j == len(input) {
				t.Fatalf("iteration %d: %s out of order", iter, ids(got))
			}
			j++
		}
	}
}

func TestApproxTokens(t *testing.T) {
	tests := map[string]int{"": 0, "a": 1, "abcd": 1, "abcde": 2}
	for in, want := range tests {
		if got := ApproxTokens(in); got != want {
			t.Errorf("ApproxTokens(%q) = %d, want %d", in, got, want)
		}
	}
}
