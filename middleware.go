package main

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// CommandHandlerFunc is the shape every command handler has.
type CommandHandlerFunc func(env *BotEnv, msg *tgbotapi.Message)

// AdminCheckMiddleware wraps a command handler with admin verification.
func AdminCheckMiddleware(handler CommandHandlerFunc) CommandHandlerFunc {
	return func(env *BotEnv, msg *tgbotapi.Message) {
		if !env.Config.IsAdmin(msg.From.UserName) {
			env.send(msg.Chat.ID, "You do not have permission to run this command. Only administrators can do that.")
			return
		}
		handler(env, msg)
	}
}

// LoggingMiddleware logs every invocation of an external-facing command
// before it reaches the core. Applied uniformly at the routing boundary.
func LoggingMiddleware(command string, handler CommandHandlerFunc) CommandHandlerFunc {
	return func(env *BotEnv, msg *tgbotapi.Message) {
		log.Printf("command /%s from @%s (%d)", command, msg.From.UserName, msg.From.ID)
		handler(env, msg)
	}
}
