package provider

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"insight-agent/src/contracts"
)

var (
	ErrInvalidChannel = errors.New("invalid channel reference")
	ErrSourceUnknown  = errors.New("unknown chat source")
)

// Source defines the interface for chat platform integrations
type Source interface {
	// Name returns the source name (e.g., "discord")
	Name() string

	// FetchConversations retrieves conversations posted after since in the given channels.
	// A channel that cannot be read is skipped; an error is returned only when
	// nothing could be attempted (bad credentials, empty channel list).
	FetchConversations(ctx context.Context, channels []ChannelRef, since time.Time) ([]contracts.Conversation, error)
}

// Factory builds a Source from a credential.
type Factory func(token string) Source

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// RegisterSource makes a source available by name. Sources call it from init.
func RegisterSource(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// NewSource returns the registered source for name.
func NewSource(name, token string) (Source, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceUnknown, name)
	}
	return factory(token), nil
}

// Sources lists registered source names, sorted.
func Sources() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	discordChannelURLPattern = regexp.MustCompile(`^https://(?:ptb\.|canary\.)?discord(?:app)?\.com/channels/(\d+)/(\d+)`)
	snowflakePattern         = regexp.MustCompile(`^\d{15,21}$`)
)

// ParseChannelRef accepts either a channel URL copied from the Discord client
// (https://discord.com/channels/{guild}/{channel}) or a bare channel id.
func ParseChannelRef(s string) (ChannelRef, error) {
	s = strings.TrimSpace(s)

	if matches := discordChannelURLPattern.FindStringSubmatch(s); matches != nil {
		return ChannelRef{GuildID: matches[1], ChannelID: matches[2]}, nil
	}

	if snowflakePattern.MatchString(s) {
		return ChannelRef{ChannelID: s}, nil
	}

	return ChannelRef{}, fmt.Errorf("%w: %s", ErrInvalidChannel, s)
}

// ParseChannelRefs parses a list of references, skipping blanks and duplicates.
func ParseChannelRefs(values []string) ([]ChannelRef, error) {
	refs := make([]ChannelRef, 0, len(values))
	seen := make(map[string]bool)
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		ref, err := ParseChannelRef(v)
		if err != nil {
			return nil, err
		}
		if seen[ref.ChannelID] {
			continue
		}
		seen[ref.ChannelID] = true
		refs = append(refs, ref)
	}
	return refs, nil
}
