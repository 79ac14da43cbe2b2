package main

import (
	"database/sql"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	var backend Persistence
	switch cfg.StorageBackend {
	case BackendSQLite:
		db, err := sql.Open("sqlite3", cfg.SQLitePath)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		sqliteStore := NewSQLiteStore(db)
		if err := sqliteStore.CreateTables(); err != nil {
			log.Fatal(err)
		}
		backend = sqliteStore
	default:
		backend = NewJSONFileStore(cfg.EventsFile, cfg.ResponsesFile)
	}

	store := NewStore(backend)
	if err := store.Load(); err != nil {
		log.Fatal(err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("authorized on account %s", bot.Self.UserName)
	if cfg.BotUsername == "" {
		cfg.BotUsername = bot.Self.UserName
	}

	env := &BotEnv{
		Bot:      bot,
		Store:    store,
		Notifier: NewTelegramNotifier(bot),
		Config:   cfg,
		Dialogs:  NewDialogManager(),
	}
	env.Scheduler = NewDeadlineScheduler(store, func(ev Event) {
		notifyEventClosed(env.Notifier, cfg.AdminChatID, ev.EventName)
	})
	env.Scheduler.RegisterAll()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := bot.GetUpdatesChan(u)
	if err != nil {
		log.Fatal(err)
	}

	for update := range updates {
		if update.CallbackQuery != nil {
			handleCallbackQuery(env, update.CallbackQuery)
			continue
		}
		if update.Message != nil {
			if update.Message.IsCommand() {
				handleCommand(env, update.Message)
			} else {
				handleNoDialog(env, update.Message)
			}
		}
	}
}
