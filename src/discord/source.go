package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"insight-agent/src/contracts"
	"insight-agent/src/logger"
	"insight-agent/src/provider"
	"insight-agent/src/sanitize"
)

func init() {
	provider.RegisterSource("discord", func(token string) provider.Source {
		return NewSource(token, nil)
	})
}

// Source implements provider.Source for Discord.
type Source struct {
	client *Client
	log    logger.Logger
}

// NewSource creates a Discord source with a bot token.
func NewSource(token string, log logger.Logger) *Source {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Source{client: NewClient(token, log), log: log}
}

// Name returns "discord"
func (s *Source) Name() string {
	return "discord"
}

// FetchConversations turns every non-bot message posted after since into a
// conversation, including its thread replies. A channel whose messages cannot
// be read is logged and skipped. An error is returned only when every channel failed.
func (s *Source) FetchConversations(ctx context.Context, channels []provider.ChannelRef, since time.Time) ([]contracts.Conversation, error) {
	if s.client.token == "" {
		return nil, fmt.Errorf("discord: %w", provider.ErrMissingAPIToken)
	}
	if len(channels) == 0 {
		return nil, provider.ErrMissingChannels
	}

	var (
		all      []contracts.Conversation
		firstErr error
		failed   int
	)
	for _, ref := range channels {
		convs, err := s.fetchChannel(ctx, ref.ChannelID, since)
		if err != nil {
			s.log.Error("[Discord] Failed to fetch data for channel %s: %v", ref.ChannelID, err)
			if firstErr == nil {
				firstErr = err
			}
			failed++
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		all = append(all, convs...)
	}

	if failed == len(channels) {
		return nil, fmt.Errorf("failed to fetch any channel: %w", firstErr)
	}

	s.log.Info("[Discord] Ingested %d conversations from %d channels", len(all), len(channels)-failed)
	return all, nil
}

func (s *Source) fetchChannel(ctx context.Context, channelID string, since time.Time) ([]contracts.Conversation, error) {
	s.log.Info("[Discord] Fetching messages from channel %s", channelID)

	msgs, err := s.client.GetMessages(ctx, channelID)
	if err != nil {
		return nil, err
	}

	name := channelID
	if ch, err := s.client.GetChannel(ctx, channelID); err != nil {
		s.log.Warn("[Discord] Could not resolve name of channel %s, using id: %v", channelID, err)
	} else if ch.Name != "" {
		name = ch.Name
	}

	var convs []contracts.Conversation
	for _, msg := range msgs {
		if msg.Author.Bot || !msg.Timestamp.After(since) {
			continue
		}

		content := sanitize.Clean(msg.Content)
		conv := contracts.Conversation{
			ChannelID:      channelID,
			ChannelName:    name,
			MainMessage:    content,
			ThreadMessages: []string{},
			Quotes:         []string{FormatQuote(content, msg.Author.Username)},
			MessageID:      msg.ID,
			Author:         username(msg.Author),
			Timestamp:      msg.Timestamp.UTC().Format(time.RFC3339),
		}

		if msg.Thread != nil && msg.Thread.ID != "" {
			if err := s.appendThread(ctx, &conv, msg.Thread.ID); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil, err
				}
				s.log.Warn("[Discord] Thread %s of message %s unavailable: %v", msg.Thread.ID, msg.ID, err)
			}
		}

		convs = append(convs, conv)
	}
	return convs, nil
}

// appendThread adds the non-bot replies of a thread, oldest first.
func (s *Source) appendThread(ctx context.Context, conv *contracts.Conversation, threadID string) error {
	s.log.Debug("[Discord] Fetching thread %s for message %s", threadID, conv.MessageID)

	replies, err := s.client.GetMessages(ctx, threadID)
	if err != nil {
		return err
	}

	for i := len(replies) - 1; i >= 0; i-- {
		reply := replies[i]
		if reply.Author.Bot {
			continue
		}
		content := sanitize.Clean(reply.Content)
		conv.ThreadMessages = append(conv.ThreadMessages, content)
		conv.Quotes = append(conv.Quotes, FormatQuote(content, reply.Author.Username))
	}
	return nil
}

// FormatQuote renders an attributed quote: 'content' - (from username).
func FormatQuote(content, author string) string {
	if author == "" {
		author = "Unknown"
	}
	return fmt.Sprintf("'%s' - (from %s)", content, author)
}

func username(a Author) string {
	if a.Username == "" {
		return "Unknown"
	}
	return a.Username
}
