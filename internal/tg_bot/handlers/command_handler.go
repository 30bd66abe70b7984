package handlers

import (
	"context"
	"strings"

	"weekly_poll_bot/configs"
	"weekly_poll_bot/internal/events"
	"weekly_poll_bot/internal/ratelimit"
	"weekly_poll_bot/internal/services"
	"weekly_poll_bot/internal/tg_bot/commands"

	"go.uber.org/zap"
)

const rateLimitedText = "Too many commands, slow down a little."

// CommandHandler turns a group chat message into a reply. An empty reply
// means nothing should be sent.
type CommandHandler interface {
	Handle(ctx context.Context, message events.MessageCreate) string
}

type commandHandler struct {
	groupID string
	config  configs.Commands
	limiter *ratelimit.SlidingWindow
	logger  *zap.SugaredLogger

	commands []commands.Command
}

func NewCommandHandler(
	groupID string,
	config configs.Commands,
	limiter *ratelimit.SlidingWindow,
	logger *zap.SugaredLogger,
	commands []commands.Command,
) CommandHandler {
	return &commandHandler{
		groupID:  groupID,
		config:   config,
		limiter:  limiter,
		logger:   logger,
		commands: commands,
	}
}

func (h *commandHandler) Handle(ctx context.Context, message events.MessageCreate) string {
	if message.ChatID != h.groupID {
		return ""
	}

	tokens := strings.Fields(message.Body)
	if len(tokens) == 0 || tokens[0] != h.config.Prefix {
		return ""
	}

	if len(message.Body) > h.config.MaxLength {
		h.logger.Warnw("dropped oversized command", "sender", message.From, "length", len(message.Body))
		return ""
	}
	if len(tokens) > h.config.MaxTokens {
		h.logger.Warnw("dropped over-tokenized command", "sender", message.From, "tokens", len(tokens))
		return ""
	}

	key := message.SenderRef
	if key == "" {
		key = message.From
	}
	if !h.limiter.Allow(key) {
		h.logger.Infow("command rate limited", "sender", key)
		return rateLimitedText
	}

	if len(tokens) == 1 {
		return h.unknownCommand()
	}

	request := commands.Request{
		Sender: services.Sender{
			ID:       message.SenderRef,
			Username: message.From,
		},
		Arguments: tokens[2:],
	}

	name := strings.ToLower(tokens[1])
	for _, command := range h.commands {
		if command.CanHandle(name) {
			h.logger.Infow("handling command", "command", name, "sender", key)
			return command.Handle(ctx, request)
		}
	}

	return h.unknownCommand()
}

func (h *commandHandler) unknownCommand() string {
	return "Unknown command. Try `" + h.config.Prefix + " help`."
}
