// Package bot decides which chat events get an in-character reply and what
// that reply is. It is independent of any particular messaging platform.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ent0n29/tojibot/internal/config"
	"github.com/ent0n29/tojibot/internal/logging"
	"github.com/ent0n29/tojibot/internal/observability"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingOption  = errors.New("missing required option")
)

// Responder produces the persona reply for a user message.
type Responder interface {
	Respond(ctx context.Context, userID, message string) string
}

// Command is a slash-command invocation.
type Command struct {
	Name    string            `json:"name"`
	Options map[string]string `json:"options,omitempty"`
	UserID  string            `json:"user_id"`
}

// Message is a free-text chat event.
type Message struct {
	UserID   string `json:"user_id"`
	Content  string `json:"content"`
	IsDirect bool   `json:"is_direct"`
	FromBot  bool   `json:"from_bot"`
}

// Reply is what the bot sends back. Handled is false when the event should be
// ignored.
type Reply struct {
	Handled bool   `json:"handled"`
	Text    string `json:"text,omitempty"`
}

type CommandOption struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

type CommandDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Options     []CommandOption `json:"options,omitempty"`
}

type Router struct {
	responder Responder
	persona   config.Persona
	logger    *zap.Logger
	metrics   *observability.Metrics
}

func NewRouter(responder Responder, persona config.Persona, logger *zap.Logger, metrics *observability.Metrics) *Router {
	return &Router{
		responder: responder,
		persona:   persona,
		logger:    logging.OrNop(logger),
		metrics:   metrics,
	}
}

// Commands lists the slash commands to register with the platform.
func (r *Router) Commands() []CommandDefinition {
	return []CommandDefinition{
		{
			Name:        "chat",
			Description: fmt.Sprintf("Chat with %s", r.persona.Name),
			Options: []CommandOption{
				{Name: "message", Description: fmt.Sprintf("What do you want to say to %s?", r.persona.Name), Required: true},
			},
		},
		{Name: "help", Description: "Show available commands"},
	}
}

// HandleCommand answers a slash command. Unknown commands return an error;
// the caller decides how to surface it.
func (r *Router) HandleCommand(ctx context.Context, cmd Command) (Reply, error) {
	switch strings.ToLower(strings.TrimSpace(cmd.Name)) {
	case "chat":
		r.metrics.ObserveBotEvent("command_chat")
		message, ok := cmd.Options["message"]
		if !ok {
			return Reply{}, fmt.Errorf("chat: %w: message", ErrMissingOption)
		}
		if strings.TrimSpace(message) == "" {
			return Reply{Handled: true, Text: r.persona.SilenceReply}, nil
		}
		out := r.responder.Respond(ctx, cmd.UserID, message)
		if out == "" {
			out = r.persona.EmptyReply
		}
		return Reply{Handled: true, Text: out}, nil
	case "help":
		r.metrics.ObserveBotEvent("command_help")
		return Reply{Handled: true, Text: r.persona.HelpText}, nil
	default:
		r.metrics.ObserveBotEvent("command_unknown")
		return Reply{}, fmt.Errorf("%w %q", ErrUnknownCommand, cmd.Name)
	}
}

// HandleMessage answers free-text messages: the greeting trigger, messages
// starting with the command prefix, and direct messages. Bot authors and
// everything else are ignored.
func (r *Router) HandleMessage(ctx context.Context, msg Message) Reply {
	if msg.FromBot {
		r.metrics.ObserveBotEvent("ignored_bot")
		return Reply{}
	}
	if strings.EqualFold(msg.Content, r.persona.GreetTrigger) {
		r.metrics.ObserveBotEvent("greeting")
		return Reply{Handled: true, Text: r.persona.Greeting}
	}

	prefixed := strings.HasPrefix(msg.Content, r.persona.CommandPrefix)
	if !prefixed && !msg.IsDirect {
		return Reply{}
	}

	text := msg.Content
	if prefixed {
		text = strings.TrimSpace(strings.TrimPrefix(text, r.persona.CommandPrefix))
	}
	if text == "" {
		r.metrics.ObserveBotEvent("silence")
		return Reply{Handled: true, Text: r.persona.SilenceReply}
	}

	if prefixed {
		r.metrics.ObserveBotEvent("prefix_message")
	} else {
		r.metrics.ObserveBotEvent("direct_message")
	}
	r.logger.Debug("routing message to pipeline",
		zap.String("user_id", msg.UserID), zap.Bool("direct", msg.IsDirect))
	return Reply{Handled: true, Text: r.responder.Respond(ctx, msg.UserID, text)}
}
