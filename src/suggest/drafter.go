// Package suggest drafts a concrete documentation change for an insight.
package suggest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"insight-agent/src/contracts"
	"insight-agent/src/llm"
	"insight-agent/src/logger"
)

// MissingInput is returned as the suggestion when there is nothing to work from.
const MissingInput = "Could not generate suggestion due to missing input."

// MaxTokens bounds a drafted BEFORE/AFTER change.
const MaxTokens = 1024

// Drafter asks a generator for a BEFORE/AFTER documentation change.
type Drafter struct {
	gen     llm.Generator
	timeout time.Duration
	log     logger.Logger
}

// NewDrafter creates a drafter. A zero timeout means 60 seconds.
func NewDrafter(gen llm.Generator, timeout time.Duration, log logger.Logger) *Drafter {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Drafter{gen: gen, timeout: timeout, log: log}
}

// Draft never fails: problems are reported in the returned text so the
// ticket still gets filed.
func (d *Drafter) Draft(ctx context.Context, c contracts.Cluster, doc contracts.Document) string {
	if c.Summary == "" || doc.Empty() {
		d.log.Warn("[Suggest] Missing documentation or insight, skipping suggestion")
		return MissingInput
	}

	d.log.Info("[Suggest] Generating documentation suggestion for %s", doc.URL)

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	out, err := d.gen.Generate(callCtx, BuildPrompt(c, doc))
	if err != nil {
		d.log.Error("[Suggest] Failed to generate suggestion: %v", err)
		return fmt.Sprintf("Failed to generate suggestion: %v", err)
	}
	return strings.TrimSpace(out)
}

// BuildPrompt renders the technical-writer prompt.
func BuildPrompt(c contracts.Cluster, doc contracts.Document) string {
	url := doc.URL
	if url == "" {
		url = "N/A"
	}
	text := doc.Text
	if text == "" {
		text = "No documentation text found."
	}

	var sb strings.Builder
	sb.WriteString("You are an expert technical writer tasked with improving developer documentation based on user feedback.\n\n")
	sb.WriteString("**User Feedback Insight:**\n")
	sb.WriteString(c.Summary)
	sb.WriteString("\n\n**Direct User Quotes:**\n")
	for _, q := range c.Quotes {
		sb.WriteString("- ")
		sb.WriteString(q)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\n**Existing Documentation from page %s:**\n---\n%s\n---\n\n", url, text)
	sb.WriteString("**Your Task:**\n")
	sb.WriteString("Based on the user feedback, suggest a specific, concrete change to the documentation to resolve their confusion.\n")
	sb.WriteString("Your suggestion should be clear and easy for an engineer to implement.\n")
	sb.WriteString("Format your response clearly. For example, use a \"SUGGESTED CHANGE\" section. ")
	sb.WriteString("If you are suggesting adding a new section, provide the full text for that section. ")
	sb.WriteString("If you are suggesting modifying existing text, show the \"BEFORE\" and \"AFTER\".\n")
	return sb.String()
}
