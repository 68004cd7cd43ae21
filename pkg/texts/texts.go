// Package texts holds the canned user-facing messages.
//
// The builtin table is assembled once at process start and never
// mutated afterwards; operators may override individual entries through
// the durable text store, which overlays this table at read time.
package texts

// Code identifies one canned message.
type Code string

const (
	UserStartedBot     Code = "user_started_bot"
	UserStoppedBot     Code = "user_stopped_bot"
	UserBlocked        Code = "user_blocked"
	UserUnblocked      Code = "user_unblocked"
	BlockedByUser      Code = "blocked_by_user"
	MessageNotSent     Code = "message_not_sent"
	MessageSentToUser  Code = "message_sent_to_user"
	SilentModeEnabled  Code = "silent_mode_enabled"
	SilentModeDisabled Code = "silent_mode_disabled"
	WelcomeMessage     Code = "welcome_message"
	MessageSent        Code = "message_sent"
	MessageEdited      Code = "message_edited"
)

// Entry is one message in both supported languages.
type Entry struct {
	EN string
	RU string
}

var builtin = map[Code]Entry{
	UserStartedBot: {
		EN: "<b>User %s started the bot!</b>\n\n" +
			"<b>Available commands:</b>\n\n" +
			"• /ban — block the user\n" +
			"• /unban — unblock the user\n" +
			"• /silence — toggle silent mode\n" +
			"• /info — user information",
		RU: "<b>Пользователь %s запустил(а) бота!</b>\n\n" +
			"<b>Доступные команды:</b>\n\n" +
			"• /ban — заблокировать пользователя\n" +
			"• /unban — разблокировать пользователя\n" +
			"• /silence — тихий режим\n" +
			"• /info — информация о пользователе",
	},
	UserStoppedBot: {
		EN: "<b>User %s stopped the bot!</b>",
		RU: "<b>Пользователь %s остановил(а) бота!</b>",
	},
	UserBlocked: {
		EN: "<b>User blocked!</b>\n\nMessages from the user are not accepted.",
		RU: "<b>Пользователь заблокирован!</b>\n\nСообщения от пользователя не принимаются.",
	},
	UserUnblocked: {
		EN: "<b>User unblocked!</b>\n\nMessages from the user are being accepted again.",
		RU: "<b>Пользователь разблокирован!</b>\n\nСообщения от пользователя вновь принимаются.",
	},
	BlockedByUser: {
		EN: "<b>Message not sent!</b>\n\nThe bot has been blocked by the user.",
		RU: "<b>Сообщение не отправлено!</b>\n\nБот был заблокирован пользователем.",
	},
	MessageNotSent: {
		EN: "<b>Message not sent!</b>\n\nAn unexpected error occurred.",
		RU: "<b>Сообщение не отправлено!</b>\n\nПроизошла неожиданная ошибка.",
	},
	MessageSentToUser: {
		EN: "<b>Message sent to user!</b>",
		RU: "<b>Сообщение отправлено пользователю!</b>",
	},
	SilentModeEnabled: {
		EN: "<b>Silent mode activated!</b>\n\nIncoming messages from the user will not be relayed.",
		RU: "<b>Тихий режим активирован!</b>\n\nВходящие сообщения пользователя не будут пересылаться.",
	},
	SilentModeDisabled: {
		EN: "<b>Silent mode deactivated!</b>\n\nIncoming messages are relayed again.",
		RU: "<b>Тихий режим деактивирован!</b>\n\nВходящие сообщения вновь пересылаются.",
	},
	WelcomeMessage: {
		EN: "Hello, <b>%s!</b>\n\nWrite your question, and we will answer you as soon as possible.",
		RU: "Привет, <b>%s!</b>\n\nНапишите ваш вопрос, и мы ответим вам в ближайшее время.",
	},
	MessageSent: {
		EN: "<b>Message sent!</b>\n\nExpect a response.",
		RU: "<b>Сообщение отправлено!</b>\n\nОжидайте ответа.",
	},
	MessageEdited: {
		EN: "<b>The message was edited only in your chat.</b>\n\n" +
			"To deliver the edited version, send it as a new message.",
		RU: "<b>Сообщение отредактировано только в вашем чате.</b>\n\n" +
			"Чтобы отправить изменённую версию, отправьте её как новое сообщение.",
	},
}

// Lookup returns the builtin text for code in the given language,
// falling back to English for unknown languages and to an empty string
// for unknown codes.
func Lookup(code Code, lang string) string {
	entry, ok := builtin[code]
	if !ok {
		return ""
	}
	if lang == "ru" {
		return entry.RU
	}
	return entry.EN
}

// Codes lists every builtin message code, used to seed the text store.
func Codes() []Code {
	codes := make([]Code, 0, len(builtin))
	for code := range builtin {
		codes = append(codes, code)
	}
	return codes
}

// Builtin returns the builtin entry for code.
func Builtin(code Code) (Entry, bool) {
	entry, ok := builtin[code]
	return entry, ok
}
