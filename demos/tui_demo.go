// Demo program to showcase the insight browser with a realistic dataset.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"insight-agent/src/contracts"
	"insight-agent/src/tui"
)

func main() {
	fmt.Println("Generating sample insights...")
	insights := generateSampleData()

	fmt.Printf("Loaded %d insights across %d channels.\n", len(insights), countUniqueChannels(insights))
	fmt.Println("Launching TUI...")
	time.Sleep(500 * time.Millisecond)

	loader := func(ctx context.Context) (tui.Snapshot, error) {
		return tui.Snapshot{Insights: insights}, nil
	}
	if err := tui.Run(loader); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

func countUniqueChannels(insights []contracts.Insight) int {
	channels := make(map[string]bool)
	for _, ins := range insights {
		channels[ins.ChannelName] = true
	}
	return len(channels)
}

func generateSampleData() []contracts.Insight {
	return []contracts.Insight{
		{
			TicketID:    "9f1c2d3e-0001",
			Identifier:  "DOC-101",
			URL:         "https://linear.app/acme/issue/DOC-101",
			RunID:       "demo",
			Summary:     "[Authentication] Users are unsure which value the 'aud' claim of a JWT must carry",
			ChannelName: "auth",
			Quotes: []string{
				"'getting invalid audience on every request' - (from priya)",
				"'what should aud be set to? the docs only show iss' - (from marco)",
				"'aud = project ref or the api url?' - (from lee)",
				"'same problem, token rejected with 401' - (from sam)",
				"'is the audience case sensitive?' - (from ana)",
				"'copied the example and it still fails' - (from jo)",
			},
			DocURL: "https://docs.example.com/auth/jwt",
			Suggestion: `Add a section "Choosing the audience" to the JWT page:
- state that aud must equal the project API URL
- show a decoded example token
- list the 401 error body returned on mismatch`,
			Status: "Todo",
		},
		{
			TicketID:    "9f1c2d3e-0002",
			Identifier:  "DOC-102",
			URL:         "https://linear.app/acme/issue/DOC-102",
			RunID:       "demo",
			Summary:     "[Rate Limiting] The 429 response does not say when to retry",
			ChannelName: "api",
			Quotes: []string{
				"'hit 429 after 20 calls, no Retry-After header' - (from kim)",
				"'how long do I back off?' - (from noor)",
				"'rate limit resets every minute or every hour?' - (from tom)",
				"'getting throttled during bulk import' - (from eli)",
				"'429 with an empty body is confusing' - (from ada)",
			},
			DocURL:     "https://docs.example.com/api/limits",
			Suggestion: "Document the reset window and add the Retry-After header to the 429 example.",
			Status:     "Triage",
		},
		{
			TicketID:    "9f1c2d3e-0003",
			Identifier:  "DOC-103",
			URL:         "https://linear.app/acme/issue/DOC-103",
			RunID:       "demo",
			Summary:     "[Client Library] The Python client times out on uploads larger than 10MB",
			ChannelName: "sdk",
			Quotes: []string{
				"'upload() hangs then raises ReadTimeout' - (from raj)",
				"'works with curl but the python sdk times out' - (from mia)",
				"'is there a timeout setting for uploads?' - (from ben)",
			},
			Suggestion: "Add the timeout keyword to the upload() reference and note the 10MB default.",
			Status:     "In Progress",
		},
		{
			TicketID:    "9f1c2d3e-0004",
			Identifier:  "DOC-104",
			URL:         "https://linear.app/acme/issue/DOC-104",
			RunID:       "demo",
			Summary:     "[Data Format] Timestamps come back without a timezone offset",
			ChannelName: "api",
			Quotes: []string{
				"'created_at has no Z suffix, is it UTC?' - (from ivy)",
				"'our parser breaks on the date format' - (from dan)",
				"'docs say ISO 8601 but the offset is missing' - (from zoe)",
				"'error parsing created_at in Go' - (from max)",
			},
			DocURL: "https://docs.example.com/api/conventions",
			Status: "Done",
		},
		{
			TicketID:    "9f1c2d3e-0005",
			Identifier:  "DOC-105",
			URL:         "https://linear.app/acme/issue/DOC-105",
			RunID:       "demo",
			Summary:     "[Conceptual] Confusion between projects and workspaces",
			ChannelName: "general",
			Quotes: []string{
				"'do api keys belong to the project or the workspace?' - (from ola)",
				"'moved a project and lost access, is that expected?' - (from ren)",
				"'what is the difference between them?' - (from sky)",
			},
			Suggestion: "Add a glossary entry and a diagram of the workspace, project and key hierarchy.",
			Status:     "Backlog",
		},
	}
}
