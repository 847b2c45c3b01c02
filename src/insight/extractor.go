package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"insight-agent/src/contracts"
	"insight-agent/src/llm"
	"insight-agent/src/patterns"
	"insight-agent/src/sanitize"
)

// CategoryTags is the closed set of prefixes every summary starts with.
var CategoryTags = []string{
	"[Authentication]",
	"[Endpoint]",
	"[Client Library]",
	"[Data Format]",
	"[Rate Limiting]",
	"[Conceptual]",
	"[General]",
}

// FallbackTag is applied to summaries that arrive without a known tag.
const FallbackTag = "[General]"

// ExtractionErrorKind classifies why a batch produced no candidates.
type ExtractionErrorKind string

const (
	// ErrorCollaborator means the generator call itself failed or timed out.
	ErrorCollaborator ExtractionErrorKind = "collaborator"
	// ErrorParse means the response held no decodable JSON object.
	ErrorParse ExtractionErrorKind = "parse"
	// ErrorSchema means the JSON did not match the expected structure.
	ErrorSchema ExtractionErrorKind = "schema"
)

// ErrSchema is wrapped by schema violations found after decoding.
var ErrSchema = errors.New("response does not match schema")

// ExtractionError is returned when one batch could not be turned into candidates.
type ExtractionError struct {
	Kind  ExtractionErrorKind
	Batch contracts.BatchRef
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for channel %q batch %d (%s): %v", e.Batch.Channel, e.Batch.Seq, e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// extractionResponse mirrors the only accepted response shape.
// Pointer fields let missing keys be told apart from empty values.
type extractionResponse struct {
	IdentifiedIssues *[]struct {
		Summary             *string `json:"summary"`
		ConversationIndices *[]int  `json:"conversation_indices"`
	} `json:"identified_issues"`
}

// BuildPrompt renders one batch into the extraction prompt. Every conversation is
// numbered from zero within the batch.
func BuildPrompt(batch Batch) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are an expert developer support analyst. Your task is to identify recurring issues and trends from the following conversations in the '%s' support channel.\n\n", batch.Ref.Channel)
	sb.WriteString("Analyze all conversations and group them by the underlying problem. For each distinct problem you identify, provide a concise summary.\n\n")
	sb.WriteString("Every summary MUST start with exactly one of these category tags:\n")
	for _, tag := range CategoryTags {
		sb.WriteString("- ")
		sb.WriteString(tag)
		sb.WriteString("\n")
	}
	sb.WriteString("\nYour response MUST be a valid JSON object with a single key \"identified_issues\", which is an array of objects. Each object represents a distinct issue and must have exactly these keys:\n")
	sb.WriteString("- \"summary\": the category tag followed by a one-sentence summary of the recurring problem.\n")
	fmt.Fprintf(&sb, "- \"conversation_indices\": a list of integer indexes (0 to %d) of all conversations that relate to this summary.\n\n", len(batch.Conversations)-1)
	sb.WriteString("Example Response:\n")
	sb.WriteString(`{"identified_issues": [{"summary": "[Authentication] Users are confused about the correct value for the 'aud' claim in JWT authentication.", "conversation_indices": [0, 2]}]}`)
	sb.WriteString("\n\nReturn only the JSON object. If there are no recurring problems, return {\"identified_issues\": []}.\n\n")
	sb.WriteString("Here are the conversations:\n\n")

	for i, conv := range batch.Conversations {
		fmt.Fprintf(&sb, "Conversation %d:\n---\n%s\n---\n\n", i, conversationText(conv))
	}

	return sb.String()
}

// conversationText joins the main message and thread replies in arrival order.
// Each message keeps its own line breaks and full URLs.
func conversationText(conv contracts.Conversation) string {
	lines := make([]string, 0, 1+len(conv.ThreadMessages))
	lines = append(lines, conv.MainMessage)
	lines = append(lines, conv.ThreadMessages...)
	lines = sanitize.CleanLines(lines)
	return strings.Join(patterns.NormalizeLines(lines, patterns.MaskPrompt), "\n")
}

// ParseResponse validates a generator response against the extraction schema.
// Every returned candidate carries ref so its indices stay tied to this batch.
func ParseResponse(raw string, ref contracts.BatchRef) ([]contracts.CandidateIssue, error) {
	obj := llm.ExtractJSON(raw)
	if obj == "" {
		return nil, &ExtractionError{Kind: ErrorParse, Batch: ref, Err: errors.New("no JSON object in response")}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(obj)))
	dec.DisallowUnknownFields()

	var resp extractionResponse
	if err := dec.Decode(&resp); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, &ExtractionError{Kind: ErrorParse, Batch: ref, Err: err}
		}
		return nil, &ExtractionError{Kind: ErrorSchema, Batch: ref, Err: fmt.Errorf("%w: %v", ErrSchema, err)}
	}

	if resp.IdentifiedIssues == nil {
		return nil, schemaError(ref, "missing identified_issues")
	}

	candidates := make([]contracts.CandidateIssue, 0, len(*resp.IdentifiedIssues))
	for i, issue := range *resp.IdentifiedIssues {
		if issue.Summary == nil || strings.TrimSpace(*issue.Summary) == "" {
			return nil, schemaError(ref, fmt.Sprintf("issue %d: missing summary", i))
		}
		if issue.ConversationIndices == nil {
			return nil, schemaError(ref, fmt.Sprintf("issue %d: missing conversation_indices", i))
		}
		candidates = append(candidates, contracts.CandidateIssue{
			Summary:             NormalizeSummary(*issue.Summary),
			ConversationIndices: *issue.ConversationIndices,
			Batch:               ref,
		})
	}
	return candidates, nil
}

func schemaError(ref contracts.BatchRef, msg string) error {
	return &ExtractionError{Kind: ErrorSchema, Batch: ref, Err: fmt.Errorf("%w: %s", ErrSchema, msg)}
}

// NormalizeSummary trims the summary and makes sure it starts with a known tag.
// Tags are matched case-insensitively and rewritten in canonical form.
func NormalizeSummary(summary string) string {
	summary = strings.TrimSpace(summary)
	lower := strings.ToLower(summary)
	for _, tag := range CategoryTags {
		if strings.HasPrefix(lower, strings.ToLower(tag)) {
			return strings.TrimSpace(tag + " " + strings.TrimSpace(summary[len(tag):]))
		}
	}
	return FallbackTag + " " + summary
}

// extractBatch runs one generator call for a batch under its own timeout.
func (e *Engine) extractBatch(ctx context.Context, batch Batch) ([]contracts.CandidateIssue, error) {
	prompt := BuildPrompt(batch)

	if e.tokens != nil && e.cfg.PromptTokenBudget > 0 {
		if n := e.tokens.Count(prompt); n > e.cfg.PromptTokenBudget {
			e.log.Warn("[Extractor] Prompt for %q is ~%d tokens (budget %d), sending anyway", batch.Ref.Channel, n, e.cfg.PromptTokenBudget)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.GenerateTimeout)
	defer cancel()

	raw, err := e.gen.Generate(callCtx, prompt)
	if err != nil {
		return nil, &ExtractionError{Kind: ErrorCollaborator, Batch: batch.Ref, Err: err}
	}

	return ParseResponse(raw, batch.Ref)
}
