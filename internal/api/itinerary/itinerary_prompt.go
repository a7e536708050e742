package itinerary

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

func buildNarrationPrompt(dest types.Destination, group []types.Candidate, history []types.HistoryEntry, vibe string, day int) string {
	var places strings.Builder
	for _, c := range group {
		if c.Generalized {
			places.WriteString(fmt.Sprintf("        - %s (a %s; describe it by its category, the traveller did not name it)\n", c.Name, c.Category))
		} else {
			places.WriteString(fmt.Sprintf("        - %s (%s)\n", c.Name, c.Category))
		}
	}

	feedbackPart := ""
	if feedback := feedbackSummary(history); feedback != "" {
		feedbackPart = fmt.Sprintf("\n        The traveller's feedback so far:\n%s", feedback)
	}

	return fmt.Sprintf(`
        You are a professional travel itinerary curator for %s.
        Desired vibe: %s.%s

        Write the narrative for Day %d using ONLY these verified places:
%s
        Guidelines:
        1. Do NOT display coordinates or street addresses. Just use the venue names above.
        2. Do NOT mention any place that is not in the list.
        3. Order the places into a morning/afternoon/evening flow.
        4. Explain why each spot fits the vibe, in an engaging travel-blog style.
        5. Keep it to one tight paragraph.`, dest.Name, vibe, feedbackPart, day, places.String())
}

func feedbackSummary(history []types.HistoryEntry) string {
	var lines []string
	for _, entry := range history {
		if entry.Type == types.HistoryFeedback {
			lines = append(lines, fmt.Sprintf("        - %s", entry.Content))
		}
	}
	return strings.Join(lines, "\n")
}
