package tgbot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"weekly_poll_bot/configs"
	"weekly_poll_bot/internal/db/models"
	"weekly_poll_bot/internal/events"
	"weekly_poll_bot/internal/services"
	"weekly_poll_bot/internal/tg_bot/extension"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// Telegram rejects polls with more options than this.
	maxPollOptions = 12

	// Telegram allows roughly twenty messages a minute into one group.
	groupSendInterval = 3 * time.Second
	groupSendBurst    = 5

	watchdogInterval = 30 * time.Second
)

var ErrTooManyOptions = errors.New("too many poll options")

// botAPI is the part of *tgbotapi.BotAPI the transport uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetMe() (tgbotapi.User, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Transport sends poll and text messages into the group and turns incoming
// Telegram updates into events.
type Transport struct {
	api           botAPI
	chatID        int64
	updateTimeout int
	limiter       *rate.Limiter
	logger        *zap.SugaredLogger
}

func NewBotAPI(config configs.Bot, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(config.Token)
	if err != nil {
		return nil, err
	}

	api.Debug = debug
	return api, nil
}

func NewTransport(api botAPI, config configs.Bot, groupID string, logger *zap.SugaredLogger) (*Transport, error) {
	chatID, err := extension.ParseChatID(groupID)
	if err != nil {
		return nil, err
	}

	return &Transport{
		api:           api,
		chatID:        chatID,
		updateTimeout: config.UpdateTimeout,
		limiter:       rate.NewLimiter(rate.Every(groupSendInterval), groupSendBurst),
		logger:        logger,
	}, nil
}

func (t *Transport) SendPollMessage(ctx context.Context, groupID, question string, options []string) (services.SentPoll, error) {
	if len(options) > maxPollOptions {
		return services.SentPoll{}, fmt.Errorf("%w: %d, limit is %d", ErrTooManyOptions, len(options), maxPollOptions)
	}

	chatID, err := t.targetChat(groupID)
	if err != nil {
		return services.SentPoll{}, err
	}

	config := tgbotapi.NewPoll(chatID, question, options...)
	config.IsAnonymous = false
	config.AllowsMultipleAnswers = true

	message, err := t.send(ctx, config)
	if err != nil {
		return services.SentPoll{}, err
	}
	if message.Poll == nil {
		return services.SentPoll{}, errors.New("telegram returned a message without a poll")
	}

	// Telegram identifies answers by option position.
	optionIDs := make([]string, len(message.Poll.Options))
	for idx := range message.Poll.Options {
		optionIDs[idx] = strconv.Itoa(idx)
	}

	return services.SentPoll{
		MessageID: message.Poll.ID,
		OptionIDs: optionIDs,
	}, nil
}

func (t *Transport) SendTextMessage(ctx context.Context, groupID, text string) error {
	chatID, err := t.targetChat(groupID)
	if err != nil {
		return err
	}

	_, err = t.send(ctx, tgbotapi.NewMessage(chatID, text))
	return err
}

// ResolveAnonymized looks up a numeric user id in the group and returns the
// member's username.
func (t *Transport) ResolveAnonymized(ctx context.Context, anonymizedID string) (string, bool, error) {
	userID, err := strconv.ParseInt(anonymizedID, 10, 64)
	if err != nil {
		return "", false, nil
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	member, err := t.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: t.chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to get chat member %d: %w", userID, err)
	}

	username := extension.Username(member.User)
	if username == "" {
		return "", false, nil
	}
	return username, true, nil
}

// FetchVotes is not offered by the Bot API. Answers given while the bot was
// offline are redelivered as updates.
func (t *Transport) FetchVotes(_ context.Context, _ *models.Poll) ([]events.VoteUpdate, error) {
	return nil, fmt.Errorf("telegram vote history: %w", services.ErrUnsupported)
}

// Run forwards updates to out until ctx is done. Ready is emitted once the
// update stream is open; the watchdog reports connection loss and recovery.
func (t *Transport) Run(ctx context.Context, out chan<- events.Event) {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = t.updateTimeout
	config.AllowedUpdates = []string{"message", "poll_answer"}

	updates := t.api.GetUpdatesChan(config)
	defer t.api.StopReceivingUpdates()

	t.logger.Info("telegram update stream started")
	if !emit(ctx, out, events.Ready{}) {
		return
	}

	go t.watchdog(ctx, out)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			event, ok := mapUpdate(update)
			if !ok {
				continue
			}
			if !emit(ctx, out, event) {
				return
			}
		}
	}
}

func (t *Transport) watchdog(ctx context.Context, out chan<- events.Event) {
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()

	connected := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		_, err := t.api.GetMe()
		switch {
		case err != nil && connected:
			connected = false
			t.logger.Warnw("telegram connection lost", "error", err)
			emit(ctx, out, events.Disconnected{Err: err})
		case err == nil && !connected:
			connected = true
			t.logger.Info("telegram connection restored")
			emit(ctx, out, events.Ready{})
		}
	}
}

func (t *Transport) send(ctx context.Context, chattable tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}

	message, err := t.api.Send(chattable)
	if err != nil {
		return tgbotapi.Message{}, fmt.Errorf("failed to send telegram message: %w", err)
	}
	return message, nil
}

func (t *Transport) targetChat(groupID string) (int64, error) {
	chatID, err := extension.ParseChatID(groupID)
	if err != nil {
		return 0, err
	}
	if chatID != t.chatID {
		return 0, fmt.Errorf("chat %d is not the configured group", chatID)
	}
	return chatID, nil
}

func mapUpdate(update tgbotapi.Update) (events.Event, bool) {
	switch {
	case update.PollAnswer != nil:
		answer := update.PollAnswer
		voter := extension.Username(&answer.User)
		if voter == "" {
			voter = extension.FormatID(answer.User.ID)
		}

		selections := make([]string, len(answer.OptionIDs))
		for idx, optionID := range answer.OptionIDs {
			selections[idx] = strconv.Itoa(optionID)
		}

		return events.VoteUpdate{
			PollMessageID: answer.PollID,
			VoterRef:      voter,
			Selections:    selections,
		}, true

	case update.Message != nil:
		message := update.Message
		if message.From == nil || message.Chat == nil || message.Text == "" {
			return nil, false
		}

		return events.MessageCreate{
			ChatID:    extension.FormatID(message.Chat.ID),
			Body:      message.Text,
			From:      extension.Username(message.From),
			SenderRef: extension.FormatID(message.From.ID),
		}, true
	}

	return nil, false
}

func emit(ctx context.Context, out chan<- events.Event, event events.Event) bool {
	select {
	case out <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
