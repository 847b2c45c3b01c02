package insight

import "insight-agent/src/contracts"

// ResolveQuotes expands a candidate's indices into the quotes of the batch it
// came from. Indices outside the batch are skipped. The boolean is false when
// no quotes were found, in which case the issue must be dropped.
func ResolveQuotes(candidate contracts.CandidateIssue, batch []contracts.Conversation) (contracts.ExtractedIssue, bool) {
	var quotes []string
	for _, idx := range candidate.ConversationIndices {
		if idx < 0 || idx >= len(batch) {
			continue
		}
		quotes = append(quotes, batch[idx].Quotes...)
	}

	if len(quotes) == 0 {
		return contracts.ExtractedIssue{}, false
	}

	return contracts.ExtractedIssue{
		Summary:     candidate.Summary,
		ChannelName: candidate.Batch.Channel,
		Quotes:      quotes,
	}, true
}
