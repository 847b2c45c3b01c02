package insight

import "insight-agent/src/contracts"

// ChannelGroup is the ordered set of conversations from one channel.
type ChannelGroup struct {
	Channel       string
	Conversations []contracts.Conversation
}

// GroupByChannel partitions conversations by channel name. Relative order is
// preserved inside each group and groups appear in order of each channel's
// first conversation.
func GroupByChannel(conversations []contracts.Conversation) []ChannelGroup {
	if len(conversations) == 0 {
		return nil
	}

	index := make(map[string]int)
	var groups []ChannelGroup
	for _, conv := range conversations {
		i, ok := index[conv.ChannelName]
		if !ok {
			i = len(groups)
			index[conv.ChannelName] = i
			groups = append(groups, ChannelGroup{Channel: conv.ChannelName})
		}
		groups[i].Conversations = append(groups[i].Conversations, conv)
	}
	return groups
}

// Batch is the unit sent to the generator in a single call. Candidate indices
// returned for a batch are only meaningful against that batch's conversations.
type Batch struct {
	Ref           contracts.BatchRef
	Conversations []contracts.Conversation
}

// Batches splits each group into batches of at most max conversations.
// max <= 0 yields exactly one batch per channel.
func Batches(groups []ChannelGroup, max int) []Batch {
	var out []Batch
	for _, g := range groups {
		convs := g.Conversations
		size := max
		if size <= 0 || size > len(convs) {
			size = len(convs)
		}
		for seq := 0; len(convs) > 0; seq++ {
			n := size
			if n > len(convs) {
				n = len(convs)
			}
			out = append(out, Batch{
				Ref:           contracts.BatchRef{Channel: g.Channel, Seq: seq, Size: n},
				Conversations: convs[:n:n],
			})
			convs = convs[n:]
		}
	}
	return out
}
