package bot

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stoplist-telegram/console"
	"stoplist-telegram/logging"
)

type call struct {
	method string
	userID int64
	action console.Action
	text   string
}

type fakeConsole struct {
	calls []call
}

func (f *fakeConsole) Start(ctx context.Context, userID int64) console.Reply {
	f.calls = append(f.calls, call{method: "start", userID: userID})
	return console.Reply{Text: "main"}
}

func (f *fakeConsole) Cancel(ctx context.Context, userID int64) console.Reply {
	f.calls = append(f.calls, call{method: "cancel", userID: userID})
	return console.Reply{Text: "cancelled"}
}

func (f *fakeConsole) HandleAction(ctx context.Context, userID int64, a console.Action) console.Reply {
	f.calls = append(f.calls, call{method: "action", userID: userID, action: a})
	return console.Reply{Text: "action"}
}

func (f *fakeConsole) HandleText(ctx context.Context, userID int64, text string) console.Reply {
	f.calls = append(f.calls, call{method: "text", userID: userID, text: text})
	return console.Reply{Text: "text"}
}

func command(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}
}

func TestDispatchMessage(t *testing.T) {
	fc := &fakeConsole{}
	b := &Bot{console: fc, log: logging.Discard()}
	ctx := context.Background()

	r, ok := b.dispatchMessage(ctx, 5, command("/start"))
	require.True(t, ok)
	assert.Equal(t, "main", r.Text)

	_, ok = b.dispatchMessage(ctx, 5, command("/cancel@stop_bot"))
	require.True(t, ok)

	r, ok = b.dispatchMessage(ctx, 5, command("/orders"))
	require.True(t, ok)
	assert.Contains(t, r.Text, "/start")

	_, ok = b.dispatchMessage(ctx, 5, &tgbotapi.Message{Text: "  25.12.2030 18:00 "})
	require.True(t, ok)

	_, ok = b.dispatchMessage(ctx, 5, &tgbotapi.Message{})
	assert.False(t, ok)

	assert.Equal(t, []call{
		{method: "start", userID: 5},
		{method: "cancel", userID: 5},
		{method: "text", userID: 5, text: "25.12.2030 18:00"},
	}, fc.calls)
}

func TestDispatchCallback(t *testing.T) {
	fc := &fakeConsole{}
	b := &Bot{console: fc, log: logging.Discard()}
	ctx := context.Background()

	b.dispatchCallback(ctx, b.log, 9, "stop:add:42:main")
	b.dispatchCallback(ctx, b.log, 9, "dish_add_42_main")

	require.Len(t, fc.calls, 2)
	assert.Equal(t, console.AddDish(42, "main"), fc.calls[0].action)
	assert.Equal(t, console.KindUnknown, fc.calls[1].action.Kind)
}

func TestKeyboard(t *testing.T) {
	assert.Nil(t, keyboard(nil))

	kb := keyboard([][]console.Button{
		{{Text: "Омлет (250₽)", Action: console.AddDish(1, "breakfast")}},
		{{Text: "<< Назад", Action: console.MainMenu()}},
	})
	require.NotNil(t, kb)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "Омлет (250₽)", kb.InlineKeyboard[0][0].Text)
	require.NotNil(t, kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "stop:add:1:breakfast", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "menu", *kb.InlineKeyboard[1][0].CallbackData)
}

func TestUpdateChatID(t *testing.T) {
	assert.Zero(t, updateChatID(tgbotapi.Update{}))
	assert.Equal(t, int64(3), updateChatID(tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 3}}}))
	assert.Equal(t, int64(4), updateChatID(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 4}},
	}}))
}
