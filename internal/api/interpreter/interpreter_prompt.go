package interpreter

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

func buildKeywordPrompt(req types.PlanRequest, history []types.HistoryEntry, constraints []string, days, target int) string {
	avoidPart := ""
	if len(constraints) > 0 {
		avoidPart = fmt.Sprintf("\n        Hard exclusions (never suggest anything matching these): [%s].", strings.Join(constraints, "; "))
	}

	historyPart := ""
	if feedback := feedbackLines(history); len(feedback) > 0 {
		historyPart = fmt.Sprintf("\n        Prior feedback from the traveller, newest last:\n        %s", strings.Join(feedback, "\n        "))
	}

	return fmt.Sprintf(`
        You are an expert travel consultant.
        Destination: %s
        Trip Duration: %d days.
        Vibe: %s%s%s

        Task: Generate exactly %d search terms for places matching the vibe.

        STRATEGY:
        1. For megacities, prefer SPECIFIC NAMES (e.g., "The Louvre").
        2. For smaller regions, prefer VARIED GENERIC CATEGORIES (e.g., "Quiet Beach", "Sunset Viewpoint", "Local Market") - never repeat a category.
        3. Mark a term essential only if the itinerary would lose its point without it.

        Return the response STRICTLY as a JSON object with:
        {
        "keywords": [
            {
            "term": "the place name or category to search for",
            "category": "a single generic noun for this item (e.g. museum, beach, bookshop)",
            "essential": <bool>
            }
        ]
        }`, req.Destination, days, req.Vibe, avoidPart, historyPart, target)
}

func feedbackLines(history []types.HistoryEntry) []string {
	var lines []string
	for _, entry := range history {
		if entry.Type == types.HistoryFeedback {
			lines = append(lines, fmt.Sprintf("- %s", entry.Content))
		}
	}
	return lines
}
