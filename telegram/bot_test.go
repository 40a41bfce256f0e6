package telegram

import (
	"context"
	"evroaming/oicp"
	"evroaming/telemetry"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, `DE\*GEF`, sanitize("DE*GEF"))
	assert.Equal(t, `DE\-GDF \(x\)\.`, sanitize("DE-GDF (x)."))
	assert.Equal(t, "plain", sanitize("plain"))
}

func TestObserveQueuesFailuresOnly(t *testing.T) {
	b := newBot(nil)
	ctx := context.Background()

	require.NoError(t, b.Observe(ctx, &telemetry.Event{Kind: telemetry.KindRequest}))
	require.NoError(t, b.Observe(ctx, &telemetry.Event{Kind: telemetry.KindResponse, Successful: true}))
	assert.Len(t, b.event, 0)

	failed := &telemetry.Event{
		Kind:      telemetry.KindResponse,
		Operation: oicp.AuthorizeStartOperation,
		Partner:   "DE-GDF",
		ProcessID: "p-1",
		Runtime:   1500 * time.Millisecond,
		Response:  oicp.NotAuthorizedStart(oicp.NewStatusCode(oicp.CodeNoPositiveAuthorizationResponse, ""), oicp.Sessions{}),
	}
	require.NoError(t, b.Observe(ctx, failed))
	require.Len(t, b.event, 1)

	msg := <-b.event
	assert.Contains(t, msg.Text, "*AuthorizeStart* failed")
	assert.Contains(t, msg.Text, "Partner: `DE\\-GDF`")
	assert.Contains(t, msg.Text, "Status: `210 No positive authorization response`")
	assert.Contains(t, msg.Text, "Runtime: 1\\.5s")
	assert.Contains(t, msg.Text, "Process: `p\\-1`")
}

func TestObserveQueueFull(t *testing.T) {
	b := newBot(nil)
	failed := &telemetry.Event{Kind: telemetry.KindResponse}
	for i := 0; i < cap(b.event); i++ {
		require.NoError(t, b.Observe(context.Background(), failed))
	}
	assert.ErrorIs(t, b.Observe(context.Background(), failed), errQueueFull)
}

func TestCommands(t *testing.T) {
	b := newBot([]int64{42})
	b.SetStatusSource(func() string { return "operators: 2" })
	assert.Equal(t, []int64{42}, b.subscribers())

	reply := b.handleCommand(7, "jo_doe", "start")
	assert.Contains(t, reply, `jo\_doe`)
	assert.Equal(t, []int64{7, 42}, b.subscribers())

	status := b.handleCommand(7, "", "status")
	assert.Contains(t, status, "operators: 2")
	assert.Contains(t, status, "Active subscriptions: 2")
	assert.Contains(t, status, "just now")

	assert.NotEmpty(t, b.handleCommand(42, "", "stop"))
	assert.Equal(t, []int64{7}, b.subscribers())
	assert.Empty(t, b.handleCommand(7, "", "unknown"))
}

func command(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: &[]tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func TestHandleUpdateQueuesReply(t *testing.T) {
	b := newBot(nil)
	b.handleUpdate(tgbotapi.Update{})
	b.handleUpdate(tgbotapi.Update{Message: &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 7}}})
	assert.Len(t, b.send, 0)

	b.handleUpdate(command(7, "/start"))
	require.Len(t, b.send, 1)
	reply := <-b.send
	assert.Equal(t, int64(7), reply.ChatID)
	assert.Equal(t, []int64{7}, b.subscribers())
}

func TestStopEndsPumps(t *testing.T) {
	defer leaktest.Check(t)()

	b := newBot([]int64{42})
	done := make(chan struct{}, 2)
	go func() {
		b.eventPump()
		done <- struct{}{}
	}()
	go func() {
		b.sendPump()
		done <- struct{}{}
	}()

	b.Stop()
	b.Stop()
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("pump still running after Stop")
		}
	}

	failed := &telemetry.Event{Kind: telemetry.KindResponse}
	assert.ErrorIs(t, b.Observe(context.Background(), failed), errStopped)
	// replies to late updates are dropped, not sent on a closed queue
	assert.NotPanics(t, func() { b.handleUpdate(command(7, "/status")) })
}
