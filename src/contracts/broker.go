package contracts

// ConversationBatch carries every conversation ingested for a run.
// Published to: insight.conversations
// Key: {run_id}
type ConversationBatch struct {
	RunID         string         `json:"run_id"`
	DryRun        bool           `json:"dry_run,omitempty"`
	Conversations []Conversation `json:"conversations"`
}

// ClusterMessage carries one accepted cluster to the escalation agent.
// Published to: insight.clusters
// Key: {run_id}
type ClusterMessage struct {
	RunID   string  `json:"run_id"`
	DryRun  bool    `json:"dry_run,omitempty"`
	Index   int     `json:"index"`
	Total   int     `json:"total"`
	Cluster Cluster `json:"cluster"`
}

// Topic names used between agents.
const (
	// TopicRequests contains run requests.
	TopicRequests = "insight.requests"

	// TopicConversations contains ingested conversation batches.
	TopicConversations = "insight.conversations"

	// TopicClusters contains significant clusters awaiting escalation.
	TopicClusters = "insight.clusters"
)
