package main

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// NotificationKind is the outcome a notification reports.
type NotificationKind int

const (
	NotifyConfirmed NotificationKind = iota
	NotifyWaitlisted
	NotifyPromoted
	NotifyWithdrawn
	NotifyEventClosed
)

// Notification is the structured payload the core hands to the delivery
// layer. Delivery channel and phrasing belong to the notifier.
type Notification struct {
	Kind         NotificationKind
	EventName    string
	UserID       int64
	ChatID       int64
	Username     string
	PartySize    int
	Reason       WaitlistReason // set for NotifyWaitlisted
	PostDeadline bool           // set for NotifyWithdrawn
}

// Notifier delivers outcome notifications. Implementations must not be
// called while the store lock is held.
type Notifier interface {
	Notify(n Notification)
}

// TelegramNotifier sends notifications as direct chat messages.
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramNotifier(bot *tgbotapi.BotAPI) *TelegramNotifier {
	return &TelegramNotifier{bot: bot}
}

func (t *TelegramNotifier) Notify(n Notification) {
	if n.ChatID == 0 {
		log.Printf("no chat id for user %d, skipping %s notification", n.UserID, kindString(n.Kind))
		return
	}
	msg := tgbotapi.NewMessage(n.ChatID, t.text(n))
	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("failed to notify user %d about event '%s': %v", n.UserID, n.EventName, err)
	}
}

func (t *TelegramNotifier) text(n Notification) string {
	switch n.Kind {
	case NotifyConfirmed:
		return fmt.Sprintf("You are confirmed for '%s' (party of %d). See you there!", n.EventName, n.PartySize)
	case NotifyWaitlisted:
		var why string
		switch n.Reason {
		case ReasonClosed:
			why = "registration is closed"
		case ReasonPastDeadline:
			why = "the signup deadline has passed"
		case ReasonFull:
			why = "the event is full"
		}
		return fmt.Sprintf("You are on the waitlist for '%s' because %s. We will let you know if a spot opens up.", n.EventName, why)
	case NotifyPromoted:
		return fmt.Sprintf("Good news! A spot opened up and you are now confirmed for '%s' (party of %d).", n.EventName, n.PartySize)
	case NotifyWithdrawn:
		if n.PostDeadline {
			return fmt.Sprintf("You have been removed from '%s'. The deadline has already passed, so please let the organizers know if plans changed last minute.", n.EventName)
		}
		return fmt.Sprintf("You have been removed from '%s'.", n.EventName)
	case NotifyEventClosed:
		return fmt.Sprintf("Responses for '%s' closed automatically at the deadline. Latecomers go on the waitlist.", n.EventName)
	}
	return ""
}

func kindString(k NotificationKind) string {
	switch k {
	case NotifyConfirmed:
		return "confirmed"
	case NotifyWaitlisted:
		return "waitlisted"
	case NotifyPromoted:
		return "promoted"
	case NotifyWithdrawn:
		return "withdrawn"
	case NotifyEventClosed:
		return "event closed"
	}
	return "unknown"
}

// NullNotifier drops everything. Used in tests and headless runs.
type NullNotifier struct{}

func (NullNotifier) Notify(Notification) {}

// notifyRegister builds the notification for a registration outcome.
func notifyRegister(n Notifier, outcome *RegisterOutcome) {
	kind := NotifyConfirmed
	if outcome.Status == StatusWaitlisted {
		kind = NotifyWaitlisted
	}
	n.Notify(Notification{
		Kind:      kind,
		EventName: outcome.EventName,
		UserID:    outcome.Response.UserID,
		ChatID:    outcome.Response.ChatID,
		Username:  outcome.Response.Username,
		PartySize: outcome.Response.PartySize(),
		Reason:    outcome.Reason,
	})
}

// notifyWithdraw fans out the withdrawal plus one notification per
// promoted user, in promotion order.
func notifyWithdraw(n Notifier, result *WithdrawResult) {
	n.Notify(Notification{
		Kind:         NotifyWithdrawn,
		EventName:    result.EventName,
		UserID:       result.Removed.UserID,
		ChatID:       result.Removed.ChatID,
		Username:     result.Removed.Username,
		PartySize:    result.Removed.PartySize(),
		PostDeadline: result.PostDeadline,
	})
	notifyPromotions(n, result.EventName, result.Promoted)
}

// notifyEventClosed announces a deadline auto-close to the admin chat.
func notifyEventClosed(n Notifier, adminChatID int64, eventName string) {
	n.Notify(Notification{
		Kind:      NotifyEventClosed,
		EventName: eventName,
		ChatID:    adminChatID,
	})
}

func notifyPromotions(n Notifier, eventName string, promoted []Response) {
	for i := range promoted {
		n.Notify(Notification{
			Kind:      NotifyPromoted,
			EventName: eventName,
			UserID:    promoted[i].UserID,
			ChatID:    promoted[i].ChatID,
			Username:  promoted[i].Username,
			PartySize: promoted[i].PartySize(),
		})
	}
}
