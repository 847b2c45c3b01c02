package provider

// ChannelRef identifies a channel in a chat platform
type ChannelRef struct {
	GuildID   string // Optional; only known when parsed from a URL
	ChannelID string
}

// IDs returns the channel ids of refs in order.
func IDs(refs []ChannelRef) []string {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ChannelID
	}
	return ids
}
