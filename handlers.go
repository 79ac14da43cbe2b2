package main

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/skip2/go-qrcode"
)

// BotEnv bundles everything a handler needs. Constructed once in main and
// passed explicitly; nothing here is a package-level singleton.
type BotEnv struct {
	Bot       *tgbotapi.BotAPI
	Store     *Store
	Notifier  Notifier
	Config    *Config
	Dialogs   *DialogManager
	Scheduler *DeadlineScheduler
}

// send sends a plain text message to the given chat.
func (env *BotEnv) send(chatID int64, text string) {
	message := tgbotapi.NewMessage(chatID, text)
	if _, err := env.Bot.Send(message); err != nil {
		log.Printf("failed to send message to chat %d: %v", chatID, err)
	}
}

// handleCommand routes commands to corresponding handlers.
func handleCommand(env *BotEnv, msg *tgbotapi.Message) {
	if msg.Command() == "start" && strings.HasPrefix(msg.CommandArguments(), "checkin_") {
		LoggingMiddleware("checkin", handleCheckin)(env, msg)
		return
	}

	route := func(command string, handler CommandHandlerFunc) {
		LoggingMiddleware(command, handler)(env, msg)
	}
	routeAdmin := func(command string, handler CommandHandlerFunc) {
		LoggingMiddleware(command, AdminCheckMiddleware(handler))(env, msg)
	}

	switch msg.Command() {
	case "start", "help":
		route("start", handleStart)
	case "events":
		route("events", handleEvents)
	case "register":
		route("register", handleRegister)
	case "withdraw":
		route("withdraw", handleWithdraw)
	case "create_offkai":
		routeAdmin("create_offkai", handleCreateOffkai)
	case "modify_offkai":
		routeAdmin("modify_offkai", handleModifyOffkai)
	case "close_offkai":
		routeAdmin("close_offkai", handleCloseOffkai)
	case "reopen_offkai":
		routeAdmin("reopen_offkai", handleReopenOffkai)
	case "archive_offkai":
		routeAdmin("archive_offkai", handleArchiveOffkai)
	case "capacity":
		routeAdmin("capacity", handleCapacity)
	case "attendance":
		routeAdmin("attendance", handleAttendance)
	case "waitlist":
		routeAdmin("waitlist", handleWaitlist)
	case "drinks":
		routeAdmin("drinks", handleDrinks)
	case "qrcode":
		routeAdmin("qrcode", handleQRCode)
	case "export":
		routeAdmin("export", handleExport)
	default:
		env.send(msg.Chat.ID, "Unknown command. Use /start to see what I can do.")
	}
}

func handleStart(env *BotEnv, msg *tgbotapi.Message) {
	env.send(msg.Chat.ID,
		"Welcome! I track attendance for offkais.\n"+
			"/events — list upcoming offkais\n"+
			"/register EventName — sign up (I will ask about your +1s)\n"+
			"/withdraw EventName — give up your spot")
}

// handleEvents lists active events with a register/withdraw button each.
func handleEvents(env *BotEnv, msg *tgbotapi.Message) {
	events := env.Store.ActiveEvents()
	if len(events) == 0 {
		env.send(msg.Chat.ID, "No upcoming offkais right now.")
		return
	}
	userID := int64(msg.From.ID)
	for i := range events {
		ev := &events[i]
		registered := false
		if attendees, err := env.Store.Attendees(ev.EventName); err == nil {
			for j := range attendees {
				if attendees[j].UserID == userID {
					registered = true
				}
			}
		}
		if !registered {
			if waitlist, err := env.Store.Waitlist(ev.EventName); err == nil {
				for j := range waitlist {
					if waitlist[j].UserID == userID {
						registered = true
					}
				}
			}
		}

		var button tgbotapi.InlineKeyboardButton
		if registered {
			button = tgbotapi.NewInlineKeyboardButtonData("Withdraw", "withdraw:"+ev.EventName)
		} else {
			button = tgbotapi.NewInlineKeyboardButtonData("Register", "register:"+ev.EventName)
		}
		keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(button))
		message := tgbotapi.NewMessage(msg.Chat.ID, ev.FormatDetails(env.Config.Location()))
		message.ReplyMarkup = keyboard
		if _, err := env.Bot.Send(message); err != nil {
			log.Printf("failed to send event listing to chat %d: %v", msg.Chat.ID, err)
		}
	}
}

// handleRegister starts the registration dialog for the named event.
func handleRegister(env *BotEnv, msg *tgbotapi.Message) {
	eventName := strings.TrimSpace(msg.CommandArguments())
	if eventName == "" {
		env.send(msg.Chat.ID, "Usage: /register EventName")
		return
	}
	startRegistrationDialog(env, msg.Chat.ID, int64(msg.From.ID), eventName)
}

func startRegistrationDialog(env *BotEnv, chatID, userID int64, eventName string) {
	ev, err := env.Store.GetEvent(eventName)
	if err != nil {
		env.send(chatID, err.Error())
		return
	}
	env.Dialogs.SetState(userID, WaitingForExtraCount, ev.EventName)
	env.send(chatID, fmt.Sprintf("How many extra people are you bringing to '%s'? (0-%d)", ev.EventName, MaxExtraPeople))
}

// handleWithdraw removes the user's registration and reports promotions.
func handleWithdraw(env *BotEnv, msg *tgbotapi.Message) {
	eventName := strings.TrimSpace(msg.CommandArguments())
	if eventName == "" {
		env.send(msg.Chat.ID, "Usage: /withdraw EventName")
		return
	}
	withdrawUser(env, msg.Chat.ID, int64(msg.From.ID), eventName)
}

func withdrawUser(env *BotEnv, chatID, userID int64, eventName string) {
	result, err := env.Store.Withdraw(eventName, userID, time.Now().UTC())
	if err != nil {
		env.send(chatID, err.Error())
		return
	}
	notifyWithdraw(env.Notifier, result)

	reply := fmt.Sprintf("You are off the list for '%s'.", result.EventName)
	if result.PostDeadline && result.RemovedFrom == FromAttendees {
		reply += " The deadline has passed, so please make sure the organizers know."
	}
	env.send(chatID, reply)
}

// handleNoDialog handles all non-command messages: dialog answers.
func handleNoDialog(env *BotEnv, msg *tgbotapi.Message) {
	userID := int64(msg.From.ID)
	state, eventName := env.Dialogs.GetState(userID)

	switch state {
	case WaitingForExtraCount:
		extras, err := strconv.Atoi(strings.TrimSpace(msg.Text))
		if err != nil || ValidateExtraPeople(extras) != nil {
			env.send(msg.Chat.ID, fmt.Sprintf("Please answer with a number between 0 and %d.", MaxExtraPeople))
			return
		}
		env.Dialogs.SetExtraPeople(userID, extras)

		ev, err := env.Store.GetEvent(eventName)
		if err != nil {
			env.Dialogs.ClearState(userID)
			env.send(msg.Chat.ID, err.Error())
			return
		}
		if ev.HasDrinks() {
			env.Dialogs.SetState(userID, WaitingForDrinks, eventName)
			env.send(msg.Chat.ID, "What are you drinking? Options: "+strings.Join(ev.Drinks, ", "))
			return
		}
		completeRegistration(env, msg, eventName, extras, nil)

	case WaitingForDrinks:
		drinks := ParseDrinks(msg.Text)
		completeRegistration(env, msg, eventName, env.Dialogs.GetExtraPeople(userID), drinks)

	default:
		env.send(msg.Chat.ID, "Use /events to see what's coming up.")
	}
}

func completeRegistration(env *BotEnv, msg *tgbotapi.Message, eventName string, extras int, drinks []string) {
	userID := int64(msg.From.ID)
	env.Dialogs.ClearState(userID)

	resp := Response{
		UserID:            userID,
		ChatID:            msg.Chat.ID,
		Username:          displayName(msg.From),
		ExtraPeople:       extras,
		BehaviorConfirmed: true,
		Drinks:            drinks,
	}
	outcome, err := env.Store.Register(eventName, resp, time.Now().UTC())
	if err != nil {
		env.send(msg.Chat.ID, err.Error())
		return
	}
	notifyRegister(env.Notifier, outcome)
}

func displayName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return user.UserName
	}
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

// handleCallbackQuery handles the inline register/withdraw buttons.
func handleCallbackQuery(env *BotEnv, cq *tgbotapi.CallbackQuery) {
	parts := strings.SplitN(cq.Data, ":", 2)
	if len(parts) != 2 {
		return
	}
	action, eventName := parts[0], parts[1]
	userID := int64(cq.From.ID)

	switch action {
	case "register":
		startRegistrationDialog(env, cq.Message.Chat.ID, userID, eventName)
		env.answerCallback(cq.ID, "Let's get you signed up!")
	case "withdraw":
		withdrawUser(env, cq.Message.Chat.ID, userID, eventName)
		env.answerCallback(cq.ID, "Registration removed")
	}
}

func (env *BotEnv) answerCallback(id, text string) {
	callback := tgbotapi.NewCallback(id, text)
	if _, err := env.Bot.AnswerCallbackQuery(callback); err != nil {
		log.Printf("failed to answer callback query: %v", err)
	}
}

// handleCreateOffkai handles the /create_offkai command.
// Usage: /create_offkai Name;Venue;Address;MapsLink;YYYY-MM-DD HH:MM[;deadline][;capacity][;drinks]
func handleCreateOffkai(env *BotEnv, msg *tgbotapi.Message) {
	parts := strings.Split(msg.CommandArguments(), ";")
	if len(parts) < 5 {
		env.send(msg.Chat.ID,
			"Usage: /create_offkai Name;Venue;Address;MapsLink;YYYY-MM-DD HH:MM[;Deadline][;Capacity][;Drinks]")
		return
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	eventDatetime, err := ParseEventDatetime(parts[4])
	if err != nil {
		env.send(msg.Chat.ID, err.Error())
		return
	}

	params := CreateEventParams{
		EventName:      parts[0],
		Venue:          parts[1],
		Address:        parts[2],
		GoogleMapsLink: parts[3],
		EventDatetime:  eventDatetime,
	}
	if len(parts) > 5 && parts[5] != "" {
		deadline, err := ParseEventDatetime(parts[5])
		if err != nil {
			env.send(msg.Chat.ID, err.Error())
			return
		}
		params.EventDeadline = &deadline
	}
	if len(parts) > 6 && parts[6] != "" {
		capacity, err := strconv.Atoi(parts[6])
		if err != nil {
			env.send(msg.Chat.ID, "Invalid capacity number")
			return
		}
		params.MaxCapacity = &capacity
	}
	if len(parts) > 7 {
		params.Drinks = ParseDrinks(parts[7])
	}

	ev, err := env.Store.CreateEvent(params, time.Now().UTC())
	if err != nil {
		env.send(msg.Chat.ID, err.Error())
		return
	}
	if ev.EventDeadline != nil {
		env.Scheduler.Register(ev.EventName, *ev.EventDeadline)
	}
	env.send(msg.Chat.ID, "Offkai created!\n\n"+ev.FormatDetails(env.Config.Location()))
}

// handleModifyOffkai handles the /modify_offkai command.
// Usage: /modify_offkai Name;key=value[;key=value...]
// Keys: venue, address, maps, datetime, deadline (empty clears), drinks.
func handleModifyOffkai(env *BotEnv, msg *tgbotapi.Message) {
	parts := strings.Split(msg.CommandArguments(), ";")
	if len(parts) < 2 {
		env.send(msg.Chat.ID, "Usage: /modify_offkai Name;key=value[;key=value...] (keys: venue, address, maps, datetime, deadline, drinks)")
		return
	}
	eventName := strings.TrimSpace(parts[0])

	var upd EventUpdate
	for _, pair := range parts[1:] {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			env.send(msg.Chat.ID, "Malformed field: "+pair)
			return
		}
		key := strings.TrimSpace(kv[0])
		value := strings.TrimSpace(kv[1])
		switch key {
		case "venue":
			upd.Venue = &value
		case "address":
			upd.Address = &value
		case "maps":
			upd.GoogleMapsLink = &value
		case "datetime":
			dt, err := ParseEventDatetime(value)
			if err != nil {
				env.send(msg.Chat.ID, err.Error())
				return
			}
			upd.EventDatetime = &dt
		case "deadline":
			var deadline *time.Time
			if value != "" {
				dt, err := ParseEventDatetime(value)
				if err != nil {
					env.send(msg.Chat.ID, err.Error())
					return
				}
				deadline = &dt
			}
			upd.EventDeadline = &deadline
		case "drinks":
			drinks := ParseDrinks(value)
			upd.Drinks = &drinks
		default:
			env.send(msg.Chat.ID, "Unknown field: "+key)
			return
		}
	}

	ev, err := env.Store.UpdateEventDetails(eventName, upd, time.Now().UTC())
	if err != nil {
		env.send(msg.Chat.ID, err.Error())
		return
	}
	if upd.EventDeadline != nil {
		if ev.EventDeadline != nil {
			env.Scheduler.Register(ev.EventName, *ev.EventDeadline)
		} else {
			env.Scheduler.Cancel(ev.EventName)
		}
	}
	env.send(msg.Chat.ID, "Offkai updated!\n\n"+ev.FormatDetails(env.Config.Location()))
}

func handleCloseOffkai(env *BotEnv, msg *tgbotapi.Message) {
	eventName := strings.TrimSpace(msg.CommandArguments())
	if eventName == "" {
		env.send(msg.Chat.ID, "Usage: /close_offkai EventName")
		return
	}
	ev, err := env.Store.CloseEvent(eventName)
	if err != nil {
		env.send(msg.Chat.ID, err.Error())
		return
	}
	env.Scheduler.Cancel(ev.EventName)
	env.send(msg.Chat.ID, fmt.Sprintf("Responses closed for '%s'. Latecomers go on the waitlist.", ev.EventName))
}

func handleReopenOffkai(env *BotEnv, msg *tgbotapi.Message) {
	eventName := strings.TrimSpace(msg.CommandArguments())
	if eventName == "" {
		env.send(msg.Chat.ID, "Usage: /reopen_offkai EventName")
		return
	}
	ev, err := env.Store.ReopenEvent(eventName)
	if err != nil {
		env.send(msg.Chat.ID, err.Error())
		return
	}
	if ev.EventDeadline != nil && ev.EventDeadline.After(time.Now().UTC()) {
		env.Scheduler.Register(ev.EventName, *ev.EventDeadline)
	}
	env.send(msg.Chat.ID, fmt.Sprintf("Responses reopened for '%s'.", ev.EventName))
}

func handleArchiveOffkai(env *BotEnv, msg *tgbotapi.Message) {
	eventName := strings.TrimSpace(msg.CommandArguments())
	if eventName == "" {
		env.send(msg.Chat.ID, "Usage: /archive_offkai EventName")
		return
	}
	ev, err := env.Store.ArchiveEvent(eventName)
	if err != nil {
		env.send(msg.Chat.ID, err.Error())
		return
	}
	env.Scheduler.Cancel(ev.EventName)
	env.send(msg.Chat.ID, fmt.Sprintf("'%s' archived. Response data is kept.", ev.EventName))
}

// handleCapacity handles the /capacity command.
// Usage: /capacity EventName;N or /capacity EventName;unlimited
func handleCapacity(env *BotEnv, msg *tgbotapi.Message) {
	parts := strings.Split(msg.CommandArguments(), ";")
	if len(parts) != 2 {
		env.send(msg.Chat.ID, "Usage: /capacity EventName;N (or 'unlimited')")
		return
	}
	eventName := strings.TrimSpace(parts[0])
	capacityStr := strings.TrimSpace(parts[1])

	var newCapacity *int
	if !strings.EqualFold(capacityStr, "unlimited") {
		n, err := strconv.Atoi(capacityStr)
		if err != nil {
			env.send(msg.Chat.ID, "Invalid capacity number")
			return
		}
		newCapacity = &n
	}

	result, err := env.Store.SetCapacity(eventName, newCapacity, time.Now().UTC())
	if err != nil {
		env.send(msg.Chat.ID, err.Error())
		return
	}
	notifyPromotions(env.Notifier, result.EventName, result.Promoted)

	reply := fmt.Sprintf("Capacity for '%s' set to %s.", result.EventName, capacityString(newCapacity))
	if len(result.Promoted) > 0 {
		var names []string
		for i := range result.Promoted {
			names = append(names, result.Promoted[i].Username)
		}
		reply += " Promoted from waitlist: " + strings.Join(names, ", ")
	}
	env.send(msg.Chat.ID, reply)
}

// handleAttendance reports the total headcount and the attendee names.
func handleAttendance(env *BotEnv, msg *tgbotapi.Message) {
	eventName := strings.TrimSpace(msg.CommandArguments())
	if eventName == "" {
		env.send(msg.Chat.ID, "Usage: /attendance EventName")
		return
	}
	total, names, err := env.Store.Attendance(eventName)
	if err != nil {
		env.send(msg.Chat.ID, err.Error())
		return
	}
	env.send(msg.Chat.ID, fmt.Sprintf("Total attendance for '%s': %d\n%s", eventName, total, strings.Join(names, "\n")))
}

// handleWaitlist lists the queue in FIFO order with party sizes.
func handleWaitlist(env *BotEnv, msg *tgbotapi.Message) {
	eventName := strings.TrimSpace(msg.CommandArguments())
	if eventName == "" {
		env.send(msg.Chat.ID, "Usage: /waitlist EventName")
		return
	}
	waitlist, err := env.Store.Waitlist(eventName)
	if err != nil {
		env.send(msg.Chat.ID, err.Error())
		return
	}
	if len(waitlist) == 0 {
		env.send(msg.Chat.ID, fmt.Sprintf("The waitlist for '%s' is empty.", eventName))
		return
	}
	var lines []string
	for i := range waitlist {
		entry := &waitlist[i]
		lines = append(lines, fmt.Sprintf("%d. %s (party of %d)", i+1, entry.Username, entry.PartySize()))
	}
	env.send(msg.Chat.ID, fmt.Sprintf("Waitlist for '%s':\n%s", eventName, strings.Join(lines, "\n")))
}

// handleDrinks tallies drink picks across confirmed attendees.
func handleDrinks(env *BotEnv, msg *tgbotapi.Message) {
	eventName := strings.TrimSpace(msg.CommandArguments())
	if eventName == "" {
		env.send(msg.Chat.ID, "Usage: /drinks EventName")
		return
	}
	tally, err := env.Store.DrinksTally(eventName)
	if err != nil {
		env.send(msg.Chat.ID, err.Error())
		return
	}
	if len(tally) == 0 {
		env.send(msg.Chat.ID, fmt.Sprintf("No drink picks recorded for '%s'.", eventName))
		return
	}
	drinks := make([]string, 0, len(tally))
	for d := range tally {
		drinks = append(drinks, d)
	}
	sort.Strings(drinks)
	var lines []string
	for _, d := range drinks {
		lines = append(lines, fmt.Sprintf("%s: %d", d, tally[d]))
	}
	env.send(msg.Chat.ID, fmt.Sprintf("Drinks for '%s':\n%s", eventName, strings.Join(lines, "\n")))
}

// handleCheckin handles the "/start checkin_<payload>" deep link from the
// QR code poster and marks the registrant as arrived.
func handleCheckin(env *BotEnv, msg *tgbotapi.Message) {
	payload := strings.TrimPrefix(msg.CommandArguments(), "checkin_")
	nameBytes, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		env.send(msg.Chat.ID, "That check-in link looks broken. Please ask an organizer.")
		return
	}
	eventName := string(nameBytes)

	if err := env.Store.ConfirmArrival(eventName, int64(msg.From.ID)); err != nil {
		env.send(msg.Chat.ID, err.Error())
		return
	}
	env.send(msg.Chat.ID, "You are checked in. Thanks for coming!")
}

// handleQRCode generates a check-in QR poster for an event.
func handleQRCode(env *BotEnv, msg *tgbotapi.Message) {
	eventName := strings.TrimSpace(msg.CommandArguments())
	if eventName == "" {
		env.send(msg.Chat.ID, "Usage: /qrcode EventName")
		return
	}
	ev, err := env.Store.GetEvent(eventName)
	if err != nil {
		env.send(msg.Chat.ID, err.Error())
		return
	}

	payload := base64.RawURLEncoding.EncodeToString([]byte(ev.EventName))
	qrData := fmt.Sprintf("https://t.me/%s?start=checkin_%s", env.Config.BotUsername, payload)
	qrFile := "qrcode_checkin.png"
	if err := qrcode.WriteFile(qrData, qrcode.Medium, 256, qrFile); err != nil {
		env.send(msg.Chat.ID, "Failed to generate the QR code")
		return
	}
	photo := tgbotapi.NewPhotoUpload(msg.Chat.ID, qrFile)
	photo.Caption = fmt.Sprintf("Check-in QR code for '%s'", ev.EventName)
	if _, err := env.Bot.Send(photo); err != nil {
		log.Printf("failed to send QR code: %v", err)
	}
	os.Remove(qrFile)
}

// handleExport sends a CSV of every response across all events.
func handleExport(env *BotEnv, msg *tgbotapi.Message) {
	events := env.Store.ActiveEvents()
	if len(events) == 0 {
		env.send(msg.Chat.ID, "No events to export.")
		return
	}

	var buf bytes.Buffer
	// UTF-8 BOM for Excel compatibility
	buf.WriteString("\xEF\xBB\xBF")
	writer := csv.NewWriter(&buf)

	header := []string{"Event", "User ID", "Username", "Extra People", "Party Size",
		"Status", "Behavior Confirmed", "Arrived", "Responded At", "Drinks"}
	if err := writer.Write(header); err != nil {
		env.send(msg.Chat.ID, "Failed to build the CSV export")
		return
	}

	rows := 0
	writeRow := func(ev *Event, resp *Response, status string) bool {
		row := []string{
			ev.EventName,
			strconv.FormatInt(resp.UserID, 10),
			resp.Username,
			strconv.Itoa(resp.ExtraPeople),
			strconv.Itoa(resp.PartySize()),
			status,
			yesNo(resp.BehaviorConfirmed),
			yesNo(resp.ArrivalConfirmed),
			resp.Timestamp.Format("2006-01-02 15:04"),
			strings.Join(resp.Drinks, " / "),
		}
		if err := writer.Write(row); err != nil {
			return false
		}
		rows++
		return true
	}

	for i := range events {
		ev := &events[i]
		attendees, err := env.Store.Attendees(ev.EventName)
		if err != nil {
			continue
		}
		for j := range attendees {
			if !writeRow(ev, &attendees[j], "confirmed") {
				env.send(msg.Chat.ID, "Failed to build the CSV export")
				return
			}
		}
		waitlist, err := env.Store.Waitlist(ev.EventName)
		if err != nil {
			continue
		}
		for j := range waitlist {
			if !writeRow(ev, &waitlist[j].Response, "waitlist") {
				env.send(msg.Chat.ID, "Failed to build the CSV export")
				return
			}
		}
	}
	writer.Flush()

	if rows == 0 {
		env.send(msg.Chat.ID, "No responses to export.")
		return
	}

	fileDoc := tgbotapi.FileBytes{
		Name:  "responses_export_" + time.Now().Format("20060102_150405") + ".csv",
		Bytes: buf.Bytes(),
	}
	doc := tgbotapi.NewDocumentUpload(msg.Chat.ID, fileDoc)
	doc.Caption = fmt.Sprintf("Response export (%d rows)", rows)
	if _, err := env.Bot.Send(doc); err != nil {
		env.send(msg.Chat.ID, "Failed to send the export file")
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
