package interpreter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

func parseKeywords(jsonStr string) ([]types.SearchKeyword, error) {
	var keywordData struct {
		Keywords []types.SearchKeyword `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(jsonStr)), &keywordData); err != nil {
		return nil, fmt.Errorf("failed to parse keyword JSON: %w", err)
	}

	seen := make(map[string]bool)
	out := make([]types.SearchKeyword, 0, len(keywordData.Keywords))
	for _, kw := range keywordData.Keywords {
		kw.Term = strings.TrimSpace(kw.Term)
		if kw.Term == "" {
			continue
		}
		key := strings.ToLower(kw.Term)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
	}
	return out, nil
}

// stripCodeFence removes a markdown ```json fence if the model added one
// despite the JSON response mime type.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
