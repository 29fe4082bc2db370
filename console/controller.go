package console

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stoplist-telegram/logging"
	"stoplist-telegram/models"
	"stoplist-telegram/services"
)

const (
	displayLayout = "02.01.2006 15:04"

	textPinPrompt     = "🔑 Пожалуйста, введите пин-код для доступа к управлению:"
	textAuthRequired  = "🔑 Требуется аутентификация"
	textMainMenu      = "🛠️ Управление меню и доставкой:"
	textNextAction    = "\n\nВыберите следующее действие:"
	textLocalOnly     = ", но не удалось сохранить изменения на сервере. Изменения сохранены локально."
	textSaveFailed    = "❌ Не удалось сохранить изменения ни на сервере, ни локально. Попробуйте ещё раз."
	textMenuLoadError = "❌ Не удалось загрузить меню. Попробуйте позже."
	textCustomDate    = "📅 Введите дату и время отключения доставки в формате:\n\nДД.ММ.ГГГГ ЧЧ:ММ\n\nПример: 25.12.2025 18:00"
	textRemovePrompt  = "🗑️ Выберите блюдо для удаления из стоп-листа:"
)

// CatalogLoader returns the current menu. Implementations may reread it on
// every call.
type CatalogLoader interface {
	Load() (*models.Catalog, error)
}

type Deps struct {
	Auth     *services.AuthGate
	Sessions *Sessions
	Catalog  CatalogLoader
	StopList *services.StopListService
	Delivery *services.DeliveryService
	Log      logging.Logger
}

// Controller is the operator console: it turns actions and text input into
// state changes and replies.
type Controller struct {
	auth     *services.AuthGate
	sessions *Sessions
	catalog  CatalogLoader
	stop     *services.StopListService
	delivery *services.DeliveryService
	log      logging.Logger
}

func NewController(d Deps) *Controller {
	if d.Sessions == nil {
		d.Sessions = NewSessions()
	}
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	return &Controller{
		auth:     d.Auth,
		sessions: d.Sessions,
		catalog:  d.Catalog,
		stop:     d.StopList,
		delivery: d.Delivery,
		log:      d.Log,
	}
}

// Start handles /start.
func (c *Controller) Start(ctx context.Context, userID int64) Reply {
	if !c.auth.IsAuthenticated(userID) {
		return c.pinPrompt(userID)
	}
	c.sessions.Clear(userID)
	return c.mainMenu(ctx, "")
}

// Cancel handles /cancel: drops any pending input and shows the main menu.
func (c *Controller) Cancel(ctx context.Context, userID int64) Reply {
	if !c.auth.IsAuthenticated(userID) {
		return c.pinPrompt(userID)
	}
	c.sessions.Clear(userID)
	r := c.mainMenu(ctx, "")
	r.Text = "Ввод отменён.\n\n" + r.Text
	return r
}

// HandleAction handles an inline button press.
func (c *Controller) HandleAction(ctx context.Context, userID int64, a Action) Reply {
	if !c.auth.IsAuthenticated(userID) {
		r := c.pinPrompt(userID)
		if a.Kind != KindRequestPin {
			r.Notice = textAuthRequired
			r.Alert = true
		}
		return r
	}

	switch a.Kind {
	case KindChangePin:
		c.sessions.SetMode(userID, ModeAwaitingNewPin)
		return Reply{Text: "🔑 Введите новый пин-код (4-6 цифр):", Rows: [][]Button{backToMain()}}
	case KindCustomDate:
		c.sessions.SetMode(userID, ModeAwaitingCustomDate)
		return Reply{Text: textCustomDate, Rows: [][]Button{row(button("<< Назад", Action{Kind: KindDatePicker}))}}
	}
	// Any other navigation abandons pending text input.
	c.sessions.Clear(userID)

	switch a.Kind {
	case KindMainMenu, KindRequestPin:
		return c.mainMenu(ctx, "")
	case KindCategories:
		return c.categories(ctx)
	case KindCategory:
		return c.category(ctx, a.Category)
	case KindAddDish:
		return c.addDish(ctx, a.DishID, a.Category)
	case KindDisableCategory:
		return c.disableCategory(ctx, a.Category)
	case KindRemoveMenu:
		return c.removeMenu(ctx, "")
	case KindRemoveDish:
		return c.removeDish(ctx, a.DishID)
	case KindEnableAll:
		return c.enableAll(ctx)
	case KindToggleDelivery:
		return c.toggleDelivery(ctx)
	case KindDisableHours:
		return c.disableFor(ctx, a.N, services.HourPresets, time.Hour)
	case KindDatePicker:
		return datePicker()
	case KindDisableDays:
		return c.disableFor(ctx, a.N, services.DayPresets, 24*time.Hour)
	default:
		r := c.mainMenu(ctx, "")
		r.Notice = "❌ Неизвестная команда"
		return r
	}
}

// HandleText handles free text. Unauthenticated users are always asked for
// the pin, so any text from them is a pin attempt.
func (c *Controller) HandleText(ctx context.Context, userID int64, text string) Reply {
	if !c.auth.IsAuthenticated(userID) {
		return c.pinAttempt(ctx, userID, text)
	}
	switch c.sessions.Mode(userID) {
	case ModeAwaitingNewPin:
		return c.newPin(ctx, userID, text)
	case ModeAwaitingCustomDate:
		return c.customDate(ctx, userID, text)
	default:
		c.sessions.Clear(userID)
		return Reply{
			Text: "Используйте /start, чтобы открыть меню управления.",
			Rows: [][]Button{row(button("Открыть меню управления", MainMenu()))},
		}
	}
}

func (c *Controller) pinPrompt(userID int64) Reply {
	c.sessions.SetMode(userID, ModeAwaitingPin)
	return Reply{Text: textPinPrompt}
}

func (c *Controller) pinAttempt(ctx context.Context, userID int64, text string) Reply {
	if !c.auth.VerifyPin(userID, text) {
		c.log.Info(ctx, "pin rejected", "user_id", userID)
		return Reply{
			Text: "❌ Неверный пин-код. Попробуйте еще раз или обратитесь к администратору.",
			Rows: [][]Button{row(button("Попробовать снова", Action{Kind: KindRequestPin}))},
		}
	}
	c.log.Info(ctx, "operator authenticated", "user_id", userID)
	c.sessions.Clear(userID)
	return Reply{
		Text: "✅ Успешная аутентификация!\n\nТеперь вы можете управлять меню и доставкой.",
		Rows: [][]Button{row(button("Открыть меню управления", MainMenu()))},
	}
}

func (c *Controller) newPin(ctx context.Context, userID int64, text string) Reply {
	pin := strings.TrimSpace(text)
	if err := services.ValidatePin(pin); err != nil {
		return Reply{
			Text: "❌ Пин-код должен состоять из 4-6 цифр. Попробуйте ещё раз:",
			Rows: [][]Button{backToMain()},
		}
	}
	hash, err := services.HashPin(pin)
	if err != nil {
		c.log.Error(ctx, "hash new pin", "err", err)
		return Reply{Text: "❌ Не удалось обработать пин-код. Попробуйте ещё раз:", Rows: [][]Button{backToMain()}}
	}
	c.sessions.Clear(userID)
	c.log.Info(ctx, "new pin hash issued", "user_id", userID)
	return Reply{
		Text: "✅ Пин-код принят. Бот не меняет настройки сам: укажите в конфигурации\n\nADMIN_PIN=" + hash +
			"\n\nи перезапустите бота.",
		Rows: [][]Button{backToMain()},
	}
}

func (c *Controller) mainMenu(ctx context.Context, prefix string) Reply {
	until := c.delivery.Status(ctx)
	toggle := "Выключить доставку"
	text := textMainMenu
	if until != nil {
		toggle = "Включить доставку"
		text += fmt.Sprintf("\n\n🔴 Доставка временно отключена до %s.", until.Format(displayLayout))
	}
	if prefix != "" {
		text = prefix + "\n\n" + text
	}
	return Reply{
		Text: text,
		Rows: [][]Button{
			row(button("Добавить в стоп-лист", Categories())),
			row(button(toggle, Action{Kind: KindToggleDelivery})),
			row(button("Убрать из стоп-листа", Action{Kind: KindRemoveMenu})),
			row(button("🔑 Сменить пин-код", Action{Kind: KindChangePin})),
		},
	}
}

func (c *Controller) loadCatalog(ctx context.Context) (*models.Catalog, bool) {
	cat, err := c.catalog.Load()
	if err != nil {
		c.log.Error(ctx, "load menu catalog", "err", err)
		return nil, false
	}
	return cat, true
}

func menuLoadError() Reply {
	return Reply{Text: textMenuLoadError, Rows: [][]Button{backToMain()}}
}

func (c *Controller) categories(ctx context.Context) Reply {
	cat, ok := c.loadCatalog(ctx)
	if !ok {
		return menuLoadError()
	}
	var rows [][]Button
	for _, cg := range cat.NonEmpty() {
		rows = append(rows, row(button(cg.Label, OpenCategory(cg.Key))))
	}
	rows = append(rows, backToMain())
	return Reply{Text: "📂 Выберите категорию блюда для добавления в стоп-лист:", Rows: rows}
}

func categoryPrompt(cg models.Category) string {
	return fmt.Sprintf("🍱 Выберите блюдо из категории '%s' для добавления в стоп-лист:", cg.Label)
}

// categoryKeyboard lists available dishes first, then stopped ones.
func categoryKeyboard(cg models.Category, stop models.StopList) [][]Button {
	rows := make([][]Button, 0, len(cg.Dishes)+3)
	for _, d := range cg.Dishes {
		if !stop.Contains(d.ID) {
			rows = append(rows, row(button(fmt.Sprintf("%s (%s)", d.Name, services.FormatPrice(d.Price)), AddDish(d.ID, cg.Key))))
		}
	}
	for _, d := range cg.Dishes {
		if stop.Contains(d.ID) {
			rows = append(rows, row(button(fmt.Sprintf("%s (%s) ❌", d.Name, services.FormatPrice(d.Price)), AddDish(d.ID, cg.Key))))
		}
	}
	return append(rows,
		row(button(fmt.Sprintf("❌ Отключить все '%s' (%d шт.)", cg.Label, len(cg.Dishes)), DisableCategory(cg.Key))),
		row(button("<< Назад к категориям", Categories())),
		backToMain(),
	)
}

func (c *Controller) category(ctx context.Context, key string) Reply {
	cat, ok := c.loadCatalog(ctx)
	if !ok {
		return menuLoadError()
	}
	cg, found := cat.Category(key)
	if !found || len(cg.Dishes) == 0 {
		label := key
		if found {
			label = cg.Label
		}
		return Reply{
			Text: fmt.Sprintf("❌ В категории '%s' нет блюд.", label),
			Rows: [][]Button{row(button("<< Назад к категориям", Categories())), backToMain()},
		}
	}
	return Reply{Text: categoryPrompt(cg), Rows: categoryKeyboard(cg, c.stop.Current(ctx))}
}

// outcomeText turns a save outcome into the operator message. done is the
// success sentence without trailing punctuation.
func outcomeText(out services.SaveOutcome, done string) string {
	switch out {
	case services.SavedLocal:
		return "⚠️ " + done + textLocalOnly
	case services.SaveFailed:
		return textSaveFailed
	default:
		return "✅ " + done + "!"
	}
}

func (c *Controller) addDish(ctx context.Context, id int, key string) Reply {
	cat, ok := c.loadCatalog(ctx)
	if !ok {
		return menuLoadError()
	}
	dish, dishKey, found := cat.Dish(id)
	if !found {
		return Reply{
			Text: fmt.Sprintf("❌ Ошибка: блюдо ID %d не найдено в меню.", id),
			Rows: [][]Button{row(button("<< Назад к категориям", Categories())), backToMain()},
		}
	}
	if cg, ok := cat.Category(key); !ok || !containsDish(cg, id) {
		key = dishKey
	}
	cg, _ := cat.Category(key)

	list, out, err := c.stop.Add(ctx, id)
	if err != nil {
		c.log.Error(ctx, "add dish to stop-list", "dish_id", id, "err", err)
	}
	switch out {
	case services.Unchanged:
		return Reply{Text: categoryPrompt(cg), Rows: categoryKeyboard(cg, list), Notice: "ℹ️ Блюдо уже в стоп-листе."}
	case services.SaveFailed:
		list = c.stop.Current(ctx)
	}
	c.log.Info(ctx, "dish stopped", "dish_id", id, "outcome", out.String())
	done := fmt.Sprintf("Блюдо '%s' (ID: %d, %s) добавлено в стоп-лист", dish.Name, id, services.FormatPrice(dish.Price))
	return Reply{Text: outcomeText(out, done) + textNextAction, Rows: categoryKeyboard(cg, list)}
}

func containsDish(cg models.Category, id int) bool {
	for _, d := range cg.Dishes {
		if d.ID == id {
			return true
		}
	}
	return false
}

func (c *Controller) disableCategory(ctx context.Context, key string) Reply {
	cat, ok := c.loadCatalog(ctx)
	if !ok {
		return menuLoadError()
	}
	cg, found := cat.Category(key)
	if !found || len(cg.Dishes) == 0 {
		return c.category(ctx, key)
	}
	ids := make([]int, len(cg.Dishes))
	for i, d := range cg.Dishes {
		ids[i] = d.ID
	}

	added, list, out, err := c.stop.AddAll(ctx, ids)
	if err != nil {
		c.log.Error(ctx, "disable category", "category", key, "err", err)
	}
	if out == services.Unchanged {
		return Reply{
			Text:   categoryPrompt(cg),
			Rows:   categoryKeyboard(cg, list),
			Notice: fmt.Sprintf("ℹ️ Все блюда из категории '%s' уже в стоп-листе.", cg.Label),
		}
	}
	if out == services.SaveFailed {
		list = c.stop.Current(ctx)
	}
	c.log.Info(ctx, "category stopped", "category", key, "added", added, "outcome", out.String())
	done := fmt.Sprintf("Все блюда из категории '%s' (%d шт.) добавлены в стоп-лист", cg.Label, added)
	return Reply{Text: outcomeText(out, done) + textNextAction, Rows: categoryKeyboard(cg, list)}
}

func (c *Controller) removeKeyboard(cat *models.Catalog, stop models.StopList) [][]Button {
	rows := make([][]Button, 0, len(stop)+2)
	for _, id := range stop {
		label := "Блюдо ID " + strconv.Itoa(id)
		if d, _, ok := cat.Dish(id); ok {
			label = fmt.Sprintf("%s (%s)", d.Name, services.FormatPrice(d.Price))
		}
		rows = append(rows, row(button(label+" ❌", RemoveDish(id))))
	}
	return append(rows,
		row(button("✅ Включить все блюда (очистить стоп-лист)", Action{Kind: KindEnableAll})),
		backToMain(),
	)
}

// removeMenu lists the stop-list. An empty list falls back to the main menu.
func (c *Controller) removeMenu(ctx context.Context, prefix string) Reply {
	stop := c.stop.Current(ctx)
	if len(stop) == 0 {
		r := c.mainMenu(ctx, prefix)
		r.Notice = "ℹ️ Стоп-лист пуст."
		return r
	}
	cat, ok := c.loadCatalog(ctx)
	if !ok {
		return menuLoadError()
	}
	text := textRemovePrompt
	if prefix != "" {
		text = prefix + "\n\n" + text
	}
	return Reply{Text: text, Rows: c.removeKeyboard(cat, stop)}
}

func (c *Controller) removeDish(ctx context.Context, id int) Reply {
	removed, _, out, err := c.stop.Remove(ctx, id)
	if err != nil {
		c.log.Error(ctx, "remove dish from stop-list", "dish_id", id, "err", err)
	}
	if !removed {
		r := c.removeMenu(ctx, "")
		r.Notice = fmt.Sprintf("⚠️ Блюдо ID %d не найдено в стоп-листе.", id)
		return r
	}
	c.log.Info(ctx, "dish resumed", "dish_id", id, "outcome", out.String())
	return c.removeMenu(ctx, outcomeText(out, fmt.Sprintf("Блюдо ID %d убрано из стоп-листа", id)))
}

func (c *Controller) enableAll(ctx context.Context) Reply {
	out := c.stop.Clear(ctx)
	c.log.Info(ctx, "stop-list cleared", "outcome", out.String())
	return c.mainMenu(ctx, outcomeText(out, "Все блюда включены (стоп-лист очищен)"))
}

func (c *Controller) toggleDelivery(ctx context.Context) Reply {
	if c.delivery.IsDisabled(ctx) {
		out := c.delivery.Enable(ctx)
		c.log.Info(ctx, "delivery enabled", "outcome", out.String())
		return c.mainMenu(ctx, outcomeText(out, "Доставка успешно включена"))
	}
	return Reply{
		Text: "⏱️ Выберите, на сколько времени отключить доставку:",
		Rows: [][]Button{
			row(button("1 час", Action{Kind: KindDisableHours, N: 1})),
			row(button("2 часа", Action{Kind: KindDisableHours, N: 2})),
			row(button("4 часа", Action{Kind: KindDisableHours, N: 4})),
			row(button("8 часов", Action{Kind: KindDisableHours, N: 8})),
			row(button("24 часа", Action{Kind: KindDisableHours, N: 24})),
			row(button("Другая дата", Action{Kind: KindDatePicker})),
			backToMain(),
		},
	}
}

func datePicker() Reply {
	return Reply{
		Text: "📅 Выберите срок отключения доставки:",
		Rows: [][]Button{
			row(button("1 день", Action{Kind: KindDisableDays, N: 1})),
			row(button("3 дня", Action{Kind: KindDisableDays, N: 3})),
			row(button("1 неделя", Action{Kind: KindDisableDays, N: 7})),
			row(button("2 недели", Action{Kind: KindDisableDays, N: 14})),
			row(button("1 месяц", Action{Kind: KindDisableDays, N: 30})),
			row(button("Свой период", Action{Kind: KindCustomDate})),
			row(button("<< Назад", Action{Kind: KindToggleDelivery})),
		},
	}
}

func (c *Controller) disableFor(ctx context.Context, n int, presets []int, unit time.Duration) Reply {
	if !services.IsPreset(presets, n) {
		r := c.mainMenu(ctx, "")
		r.Notice = "❌ Неизвестный срок отключения."
		return r
	}
	until, out, err := c.delivery.DisableFor(ctx, time.Duration(n)*unit)
	if err != nil {
		c.log.Error(ctx, "disable delivery", "err", err)
		return Reply{Text: "❌ Не удалось отключить доставку.", Rows: [][]Button{backToMain()}}
	}
	c.log.Info(ctx, "delivery disabled", "until", until, "outcome", out.String())
	return Reply{Text: disabledText(out, until) + textNextAction, Rows: [][]Button{backToMain()}}
}

func disabledText(out services.SaveOutcome, until time.Time) string {
	stamp := until.Format(displayLayout)
	switch out {
	case services.SavedLocal:
		return "⚠️ Доставка отключена до " + stamp + textLocalOnly
	case services.SaveFailed:
		return textSaveFailed
	default:
		return "🚫 Доставка отключена до " + stamp + "!"
	}
}

func (c *Controller) customDate(ctx context.Context, userID int64, text string) Reply {
	retry := [][]Button{row(button("<< Назад", Action{Kind: KindDatePicker}))}
	until, err := c.delivery.ParseCustomDate(text)
	if err != nil {
		return Reply{Text: "❌ Неверный формат даты.\n\n" + textCustomDate, Rows: retry}
	}
	out, err := c.delivery.DisableUntil(ctx, until)
	if errors.Is(err, services.ErrInputValidation) {
		return Reply{Text: "❌ Ошибка: дата не может быть в прошлом.\n\n" + textCustomDate, Rows: retry}
	}
	if err != nil {
		c.log.Error(ctx, "disable delivery until custom date", "err", err)
	}
	if out != services.SaveFailed {
		c.sessions.Clear(userID)
	}
	c.log.Info(ctx, "delivery disabled", "until", until, "outcome", out.String())
	return Reply{Text: disabledText(out, until), Rows: [][]Button{backToMain()}}
}
