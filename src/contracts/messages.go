// Package contracts defines the data structures shared by the engine, its collaborators and the agents.
package contracts

// Conversation is one top-level chat message with its thread replies.
// It is produced by ingestion and never modified afterwards.
type Conversation struct {
	// Channel the conversation was posted in. Used as the grouping key.
	ChannelName string `json:"channel_name" yaml:"channel_name"`
	// Text of the top-level message.
	MainMessage string `json:"main_message" yaml:"main_message"`
	// Replies in thread order (oldest first).
	ThreadMessages []string `json:"thread_messages" yaml:"thread_messages"`
	// Attributed quotes, one per message, e.g. "'it fails' - (from alice)".
	Quotes []string `json:"quotes" yaml:"quotes"`

	// Source details, ignored by the engine.
	ChannelID string `json:"channel_id,omitempty" yaml:"channel_id,omitempty"`
	MessageID string `json:"message_id,omitempty" yaml:"message_id,omitempty"`
	Author    string `json:"author,omitempty" yaml:"author,omitempty"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// CandidateIssue is a problem reported by the generator for one channel batch.
// ConversationIndices are 0-based and only meaningful inside Batch.
type CandidateIssue struct {
	Summary             string   `json:"summary"`
	ConversationIndices []int    `json:"conversation_indices"`
	Batch               BatchRef `json:"-"`
}

// BatchRef identifies the channel batch a candidate's indices refer to.
type BatchRef struct {
	Channel string
	Seq     int // Position of the batch within its channel
	Size    int
}

// ExtractedIssue is a candidate with its quotes resolved. Quotes is never empty.
type ExtractedIssue struct {
	Summary     string   `json:"summary"`
	ChannelName string   `json:"channel_name"`
	Quotes      []string `json:"quotes"`
}

// Cluster is a group of semantically similar issues.
// Summary and ChannelName come from the first member in scan order;
// Quotes is the concatenation of all member quotes, duplicates kept.
type Cluster struct {
	Summary     string   `json:"summary"`
	ChannelName string   `json:"channel_name"`
	Quotes      []string `json:"quotes"`
	// Number of extracted issues merged into this cluster.
	Members int `json:"members"`
}

// Document is the knowledge-base passage that best matches an insight.
type Document struct {
	URL   string  `json:"url,omitempty"`
	Title string  `json:"title,omitempty"`
	Text  string  `json:"text,omitempty"`
	Score float32 `json:"score,omitempty"`
}

// Empty reports whether no documentation was found.
func (d Document) Empty() bool {
	return d.URL == "" && d.Text == ""
}

// Ticket identifies an issue filed in the tracker.
type Ticket struct {
	ID         string `json:"ticket_id"`
	Identifier string `json:"ticket_identifier"`
	URL        string `json:"ticket_url"`
}

// Insight is the persisted record of an escalated cluster.
type Insight struct {
	TicketID    string   `json:"ticket_id"`
	Identifier  string   `json:"identifier"`
	URL         string   `json:"url"`
	RunID       string   `json:"run_id"`
	Summary     string   `json:"insight_summary"`
	ChannelName string   `json:"channel_name"`
	Quotes      []string `json:"quotes"`
	DocURL      string   `json:"doc_url,omitempty"`
	Suggestion  string   `json:"llm_suggestion,omitempty"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// Default status for newly filed insights.
const StatusTriage = "Triage"

// RunRequest asks the pipeline to ingest and analyze a set of channels.
// Published to: insight.requests
// Key: {run_id}
type RunRequest struct {
	RunID      string   `json:"run_id"`
	ChannelIDs []string `json:"channel_ids"`
	SinceDays  int      `json:"since_days"`
	DryRun     bool     `json:"dry_run,omitempty"`
	Timestamp  string   `json:"timestamp"`
}

// RunStatus tracks a pipeline run.
type RunStatus struct {
	RunID         string
	Channels      []string
	Status        string // pending, processing, completed, failed
	Conversations int
	Clusters      int
	Tickets       int
	Error         string
}

// Run states.
const (
	RunPending    = "pending"
	RunProcessing = "processing"
	RunCompleted  = "completed"
	RunFailed     = "failed"
)
