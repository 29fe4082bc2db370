package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"stoplist-telegram/console"
	"stoplist-telegram/logging"
)

const textInternalError = "❌ Внутренняя ошибка. Попробуйте ещё раз или откройте /start."

// Console is the operator console the bot forwards decoded input to.
type Console interface {
	Start(ctx context.Context, userID int64) console.Reply
	Cancel(ctx context.Context, userID int64) console.Reply
	HandleAction(ctx context.Context, userID int64, a console.Action) console.Reply
	HandleText(ctx context.Context, userID int64, text string) console.Reply
}

type Bot struct {
	api     *tgbotapi.BotAPI
	console Console
	log     logging.Logger

	wg sync.WaitGroup
}

func New(token string, c Console, log logging.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Bot{api: api, console: c, log: log.With("bot", api.Self.UserName)}, nil
}

func (b *Bot) setBotCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Меню управления"},
		tgbotapi.BotCommand{Command: "cancel", Description: "Отменить ввод"},
	)
	_, err := b.api.Request(cfg)
	return err
}

// Run polls for updates until ctx is cancelled. Every update is handled in
// its own goroutine so a slow remote store does not hold up other operators.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.setBotCommands(); err != nil {
		b.log.Warn(ctx, "set bot commands", "err", err)
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	b.log.Info(ctx, "bot started, send /start to begin")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	log := b.log.With("update_id", update.UpdateID, "correlation_id", uuid.NewString())
	chatID := updateChatID(update)
	defer func() {
		if r := recover(); r != nil {
			log.Error(ctx, "panic while handling update", "panic", r)
			if update.CallbackQuery != nil {
				b.request(ctx, log, tgbotapi.NewCallback(update.CallbackQuery.ID, ""))
			}
			if chatID != 0 {
				b.send(ctx, log, tgbotapi.NewMessage(chatID, textInternalError))
			}
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, log, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		b.handleMessage(ctx, log, update.Message)
	}
}

func updateChatID(update tgbotapi.Update) int64 {
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		return update.CallbackQuery.Message.Chat.ID
	}
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	return 0
}

// dispatchMessage routes a message to the console. ok is false for messages
// the bot ignores.
func (b *Bot) dispatchMessage(ctx context.Context, userID int64, msg *tgbotapi.Message) (console.Reply, bool) {
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			return b.console.Start(ctx, userID), true
		case "cancel":
			return b.console.Cancel(ctx, userID), true
		default:
			return console.Reply{Text: "Неизвестная команда. Используйте /start."}, true
		}
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return console.Reply{}, false
	}
	return b.console.HandleText(ctx, userID, text), true
}

func (b *Bot) handleMessage(ctx context.Context, log logging.Logger, msg *tgbotapi.Message) {
	userID := msg.From.ID
	log = log.With("user_id", userID)
	reply, ok := b.dispatchMessage(ctx, userID, msg)
	if !ok {
		return
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, reply.Text)
	if kb := keyboard(reply.Rows); kb != nil {
		out.ReplyMarkup = *kb
	}
	b.send(ctx, log, out)
}

// dispatchCallback decodes the button data once here; the console only sees
// typed actions.
func (b *Bot) dispatchCallback(ctx context.Context, log logging.Logger, userID int64, data string) console.Reply {
	a, err := console.Decode(data)
	if err != nil {
		log.Warn(ctx, "undecodable callback data", "data", data, "err", err)
		a = console.Action{}
	}
	return b.console.HandleAction(ctx, userID, a)
}

func (b *Bot) handleCallback(ctx context.Context, log logging.Logger, cq *tgbotapi.CallbackQuery) {
	userID := cq.From.ID
	log = log.With("user_id", userID)
	reply := b.dispatchCallback(ctx, log, userID, cq.Data)

	answer := tgbotapi.NewCallback(cq.ID, reply.Notice)
	if reply.Alert {
		answer = tgbotapi.NewCallbackWithAlert(cq.ID, reply.Notice)
	}
	b.request(ctx, log, answer)

	if cq.Message == nil {
		return
	}
	chatID, msgID := cq.Message.Chat.ID, cq.Message.MessageID
	var edit tgbotapi.EditMessageTextConfig
	if kb := keyboard(reply.Rows); kb != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, reply.Text, *kb)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, msgID, reply.Text)
	}
	b.request(ctx, log, edit)
}

// keyboard renders console rows as an inline keyboard, nil for none.
func keyboard(rows [][]console.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, r := range rows {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, btn := range r {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Action.Encode()))
		}
		out = append(out, btns)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(out...)
	return &kb
}

func (b *Bot) send(ctx context.Context, log logging.Logger, c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		log.Error(ctx, "send error", "err", err)
	}
}

func (b *Bot) request(ctx context.Context, log logging.Logger, c tgbotapi.Chattable) {
	if _, err := b.api.Request(c); err != nil {
		// Re-rendering an unchanged screen is routine for idempotent actions.
		if strings.Contains(err.Error(), "message is not modified") {
			return
		}
		log.Error(ctx, "telegram request error", "err", err)
	}
}
