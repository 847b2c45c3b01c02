package provider

import (
	"errors"
	"fmt"
)

var (
	ErrAuthFailed      = errors.New("authentication failed")
	ErrChannelNotFound = errors.New("channel not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrNetworkTimeout  = errors.New("network timeout")
	ErrMissingChannels = errors.New("no channels configured")
	ErrMissingAPIToken = errors.New("missing API token")
)

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts collaborator errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var userErr *UserError
	if errors.As(err, &userErr) {
		return err
	}

	switch {
	case errors.Is(err, ErrInvalidChannel):
		return &UserError{
			Message: "Invalid channel reference",
			Hint:    "Supported formats:\n  - https://discord.com/channels/<guild>/<channel>\n  - a bare channel id such as 1123456789012345678",
			Err:     err,
		}

	case errors.Is(err, ErrMissingChannels):
		return &UserError{
			Message: "No channels to scan",
			Hint:    "Pass --channel or set DISCORD_CHANNEL_IDS to a comma-separated list of channel ids.",
			Err:     err,
		}

	case errors.Is(err, ErrMissingAPIToken), errors.Is(err, ErrAuthFailed):
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that your API token is valid and has the correct permissions.\n  - Discord: Set DISCORD_BOT_TOKEN\n  - Anthropic: Set ANTHROPIC_API_KEY\n  - Linear: Set LINEAR_API_KEY",
			Err:     err,
		}

	case errors.Is(err, ErrChannelNotFound):
		return &UserError{
			Message: "Channel not found",
			Hint:    "Check the channel id and that the bot has been invited to the server with Read Message History.",
			Err:     err,
		}

	case errors.Is(err, ErrRateLimited):
		return &UserError{
			Message: "Rate limited",
			Hint:    "Wait a minute and retry, or scan fewer channels per run.",
			Err:     err,
		}

	case errors.Is(err, ErrNetworkTimeout):
		return &UserError{
			Message: "Request timed out",
			Hint:    "Check your network connection and retry.",
			Err:     err,
		}
	}

	return err
}
