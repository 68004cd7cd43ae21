package transport

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
)

var privateCommands = map[string][]telego.BotCommand{
	"": {
		{Command: "start", Description: "Restart"},
	},
	"ru": {
		{Command: "start", Description: "Перезапустить"},
	},
}

var groupCommands = map[string][]telego.BotCommand{
	"": {
		{Command: "ban", Description: "Block a user"},
		{Command: "unban", Description: "Unblock a user"},
		{Command: "silence", Description: "Toggle silent mode"},
		{Command: "info", Description: "User information"},
	},
	"ru": {
		{Command: "ban", Description: "Заблокировать пользователя"},
		{Command: "unban", Description: "Разблокировать пользователя"},
		{Command: "silence", Description: "Тихий режим"},
		{Command: "info", Description: "Информация о пользователе"},
	},
}

// SetupCommands registers the tenant bot command menus for private and
// group chats in every supported language.
func SetupCommands(ctx context.Context, api API) error {
	for lang, commands := range privateCommands {
		err := api.SetMyCommands(ctx, &telego.SetMyCommandsParams{
			Commands:     commands,
			Scope:        &telego.BotCommandScopeAllPrivateChats{Type: telego.ScopeTypeAllPrivateChats},
			LanguageCode: lang,
		})
		if err != nil {
			return fmt.Errorf("set private commands: %w", err)
		}
	}
	for lang, commands := range groupCommands {
		err := api.SetMyCommands(ctx, &telego.SetMyCommandsParams{
			Commands:     commands,
			Scope:        &telego.BotCommandScopeAllGroupChats{Type: telego.ScopeTypeAllGroupChats},
			LanguageCode: lang,
		})
		if err != nil {
			return fmt.Errorf("set group commands: %w", err)
		}
	}
	return nil
}

// DeleteCommands removes the registered command menus.
func DeleteCommands(ctx context.Context, api API) error {
	scopes := []telego.BotCommandScope{
		&telego.BotCommandScopeAllPrivateChats{Type: telego.ScopeTypeAllPrivateChats},
		&telego.BotCommandScopeAllGroupChats{Type: telego.ScopeTypeAllGroupChats},
	}
	for _, scope := range scopes {
		for _, lang := range []string{"", "ru"} {
			err := api.DeleteMyCommands(ctx, &telego.DeleteMyCommandsParams{
				Scope:        scope,
				LanguageCode: lang,
			})
			if err != nil {
				return fmt.Errorf("delete commands: %w", err)
			}
		}
	}
	return nil
}

// SetupAdminCommands registers the admin bot's private-chat menu. The
// admin bot never joins operator groups, so it carries no group scope.
func SetupAdminCommands(ctx context.Context, api API) error {
	for lang, commands := range privateCommands {
		err := api.SetMyCommands(ctx, &telego.SetMyCommandsParams{
			Commands:     commands,
			Scope:        &telego.BotCommandScopeAllPrivateChats{Type: telego.ScopeTypeAllPrivateChats},
			LanguageCode: lang,
		})
		if err != nil {
			return fmt.Errorf("set admin commands: %w", err)
		}
	}
	return nil
}

// DeleteAdminCommands removes the admin bot's menu.
func DeleteAdminCommands(ctx context.Context, api API) error {
	for _, lang := range []string{"", "ru"} {
		err := api.DeleteMyCommands(ctx, &telego.DeleteMyCommandsParams{
			Scope:        &telego.BotCommandScopeAllPrivateChats{Type: telego.ScopeTypeAllPrivateChats},
			LanguageCode: lang,
		})
		if err != nil {
			return fmt.Errorf("delete admin commands: %w", err)
		}
	}
	return nil
}
