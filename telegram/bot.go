package telegram

import (
	"context"
	"errors"
	"evroaming/internal"
	"evroaming/oicp"
	"evroaming/telemetry"
	"evroaming/utility"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

var (
	errQueueFull = errors.New("alert queue is full")
	errStopped   = errors.New("bot stopped")
)

// TgBot alerts subscribed chats about failed partner calls.
type TgBot struct {
	api     *tgbotapi.BotAPI
	logger  internal.LogHandler
	status  func() string
	started time.Time

	mux           sync.Mutex
	subscriptions map[int64]time.Time
	event         chan MessageContent
	send          chan MessageContent
	stopped       bool
	quit          chan struct{}
	stopOnce      sync.Once
}

type MessageContent struct {
	ChatID int64
	Text   string
}

func NewBot(apiKey string, chatIDs []int64) (*TgBot, error) {
	api, err := tgbotapi.NewBotAPI(apiKey)
	if err != nil {
		return nil, err
	}
	tgBot := newBot(chatIDs)
	tgBot.api = api
	return tgBot, nil
}

func newBot(chatIDs []int64) *TgBot {
	b := &TgBot{
		started:       time.Now(),
		subscriptions: make(map[int64]time.Time),
		event:         make(chan MessageContent, 100),
		send:          make(chan MessageContent, 100),
		quit:          make(chan struct{}),
	}
	for _, id := range chatIDs {
		b.subscriptions[id] = b.started
	}
	return b
}

func (b *TgBot) SetLogger(logger internal.LogHandler) {
	b.logger = logger
}

// SetStatusSource installs the provider of the /status text.
func (b *TgBot) SetStatusSource(status func() string) {
	b.status = status
}

func (b *TgBot) Start() {
	go b.sendPump()
	go b.eventPump()
	go b.updatesPump()
}

// Stop ends the pumps and the update polling. Alerts still queued are sent
// first; later events are rejected.
func (b *TgBot) Stop() {
	b.stopOnce.Do(func() {
		b.mux.Lock()
		b.stopped = true
		close(b.quit)
		close(b.event)
		close(b.send)
		b.mux.Unlock()
		if b.api != nil {
			b.api.StopReceivingUpdates()
		}
	})
}

// Observe queues an alert for every failed response event.
func (b *TgBot) Observe(_ context.Context, event *telemetry.Event) error {
	if event.Kind != telemetry.KindResponse || event.Successful {
		return nil
	}
	return b.enqueue(b.event, MessageContent{Text: composeFailureMessage(event)})
}

func (b *TgBot) enqueue(queue chan MessageContent, msg MessageContent) error {
	b.mux.Lock()
	defer b.mux.Unlock()
	if b.stopped {
		return errStopped
	}
	select {
	case queue <- msg:
		return nil
	default:
		return errQueueFull
	}
}

func (b *TgBot) updatesPump() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := b.api.GetUpdatesChan(u)
	if err != nil {
		b.error("getting updates", err)
		return
	}
	for {
		select {
		case <-b.quit:
			return
		case update := <-updates:
			b.handleUpdate(update)
		}
	}
}

func (b *TgBot) handleUpdate(update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	user := ""
	if update.Message.From != nil {
		user = update.Message.From.UserName
	}
	chatID := update.Message.Chat.ID
	reply := b.handleCommand(chatID, user, update.Message.Command())
	if reply == "" {
		return
	}
	if err := b.enqueue(b.send, MessageContent{ChatID: chatID, Text: reply}); err != nil {
		b.error("queueing reply", err)
	}
}

func (b *TgBot) handleCommand(chatID int64, user, command string) string {
	switch command {
	case "start":
		b.mux.Lock()
		b.subscriptions[chatID] = time.Now()
		b.mux.Unlock()
		return fmt.Sprintf("Hello *%v*, you are now subscribed to alerts", sanitize(user))
	case "stop":
		b.mux.Lock()
		delete(b.subscriptions, chatID)
		b.mux.Unlock()
		return "Your subscription has been removed"
	case "status":
		return b.composeStatusMessage()
	}
	return ""
}

func (b *TgBot) subscribers() []int64 {
	b.mux.Lock()
	defer b.mux.Unlock()
	ids := make([]int64, 0, len(b.subscriptions))
	for id := range b.subscriptions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// eventPump sending events to all subscribers
func (b *TgBot) eventPump() {
	for event := range b.event {
		for _, id := range b.subscribers() {
			b.sendMessage(id, event.Text)
		}
	}
}

func (b *TgBot) sendPump() {
	for event := range b.send {
		b.sendMessage(event.ChatID, event.Text)
	}
}

func (b *TgBot) sendMessage(id int64, text string) {
	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = "MarkdownV2"
	_, err := b.api.Send(msg)
	if err != nil {
		// most likely a markdown parse error, report it in plain text
		msg = tgbotapi.NewMessage(id, fmt.Sprintf("Error: %v", err))
		if _, err = b.api.Send(msg); err != nil {
			b.error("sending message", err)
		}
	}
}

func composeFailureMessage(event *telemetry.Event) string {
	msg := fmt.Sprintf("*%v* failed\n", sanitize(event.Operation))
	if event.Partner != "" {
		msg += fmt.Sprintf("Partner: `%v`\n", sanitize(event.Partner))
	}
	if status, ok := oicp.StatusOf(event.Response); ok {
		msg += fmt.Sprintf("Status: `%v`\n", sanitize(status.String()))
		if status.AdditionalInfo != "" {
			msg += fmt.Sprintf("%v\n", sanitize(status.AdditionalInfo))
		}
	}
	msg += fmt.Sprintf("Runtime: %v\n", sanitize(event.Runtime.Round(time.Millisecond).String()))
	msg += fmt.Sprintf("Process: `%v`", sanitize(event.ProcessID.String()))
	return msg
}

func (b *TgBot) composeStatusMessage() string {
	msg := "Status info:\n\n"
	if b.status != nil {
		msg += sanitize(b.status()) + "\n\n"
	}
	msg += fmt.Sprintf("Started %v\n", sanitize(utility.TimeAgo(b.started)))
	msg += fmt.Sprintf("Active subscriptions: %v", len(b.subscribers()))
	return msg
}

func (b *TgBot) error(text string, err error) {
	if b.logger != nil {
		b.logger.Error("bot: "+text, err)
	}
}

func sanitize(input string) string {
	const reservedChars = "\\`*_{}[]()#+-.!|>~=<"
	var sb strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}
