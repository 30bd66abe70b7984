package extension

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const DefaultErrorText = "Something went wrong, please try again later."

func ParseChatID(raw string) (int64, error) {
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", raw, err)
	}
	return chatID, nil
}

func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Username returns "@name", or an empty string for users without one.
func Username(user *tgbotapi.User) string {
	if user == nil || user.UserName == "" {
		return ""
	}
	return "@" + user.UserName
}
