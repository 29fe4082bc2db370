package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies what an inline button asks the controller to do.
type Kind int

const (
	KindUnknown Kind = iota
	KindMainMenu
	KindRequestPin
	KindChangePin
	KindCategories
	KindCategory
	KindAddDish
	KindDisableCategory
	KindRemoveMenu
	KindRemoveDish
	KindEnableAll
	KindToggleDelivery
	KindDisableHours
	KindDatePicker
	KindDisableDays
	KindCustomDate
)

// Action is a decoded button press. Only the fields relevant to Kind are set.
type Action struct {
	Kind     Kind
	DishID   int
	Category string
	// N is the preset size for KindDisableHours and KindDisableDays.
	N int
}

var ErrBadAction = errors.New("malformed action")

func MainMenu() Action { return Action{Kind: KindMainMenu} }

func Categories() Action { return Action{Kind: KindCategories} }

func OpenCategory(key string) Action { return Action{Kind: KindCategory, Category: key} }

func DisableCategory(key string) Action { return Action{Kind: KindDisableCategory, Category: key} }

func AddDish(id int, key string) Action { return Action{Kind: KindAddDish, DishID: id, Category: key} }

func RemoveDish(id int) Action { return Action{Kind: KindRemoveDish, DishID: id} }

// Encode renders a as Telegram callback data, colon separated, e.g.
// "stop:add:42:main". Category keys go last so they may contain colons.
func (a Action) Encode() string {
	switch a.Kind {
	case KindMainMenu:
		return "menu"
	case KindRequestPin:
		return "pin"
	case KindChangePin:
		return "pin:new"
	case KindCategories:
		return "stop:cats"
	case KindCategory:
		return "stop:cat:" + a.Category
	case KindDisableCategory:
		return "stop:catoff:" + a.Category
	case KindAddDish:
		return "stop:add:" + strconv.Itoa(a.DishID) + ":" + a.Category
	case KindRemoveMenu:
		return "stop:list"
	case KindRemoveDish:
		return "stop:rm:" + strconv.Itoa(a.DishID)
	case KindEnableAll:
		return "stop:clear"
	case KindToggleDelivery:
		return "dlv"
	case KindDisableHours:
		return "dlv:h:" + strconv.Itoa(a.N)
	case KindDatePicker:
		return "dlv:dates"
	case KindDisableDays:
		return "dlv:d:" + strconv.Itoa(a.N)
	case KindCustomDate:
		return "dlv:custom"
	default:
		return ""
	}
}

// Decode parses callback data produced by Encode.
func Decode(data string) (Action, error) {
	parts := strings.SplitN(data, ":", 3)
	bad := func() (Action, error) {
		return Action{}, fmt.Errorf("%w: %q", ErrBadAction, data)
	}

	switch parts[0] {
	case "menu":
		if len(parts) == 1 {
			return MainMenu(), nil
		}
	case "pin":
		if len(parts) == 1 {
			return Action{Kind: KindRequestPin}, nil
		}
		if len(parts) == 2 && parts[1] == "new" {
			return Action{Kind: KindChangePin}, nil
		}
	case "stop":
		return decodeStop(parts, bad)
	case "dlv":
		return decodeDelivery(parts, bad)
	}
	return bad()
}

func decodeStop(parts []string, bad func() (Action, error)) (Action, error) {
	if len(parts) < 2 {
		return bad()
	}
	switch parts[1] {
	case "cats":
		if len(parts) == 2 {
			return Categories(), nil
		}
	case "list":
		if len(parts) == 2 {
			return Action{Kind: KindRemoveMenu}, nil
		}
	case "clear":
		if len(parts) == 2 {
			return Action{Kind: KindEnableAll}, nil
		}
	case "cat":
		if len(parts) == 3 && parts[2] != "" {
			return OpenCategory(parts[2]), nil
		}
	case "catoff":
		if len(parts) == 3 && parts[2] != "" {
			return DisableCategory(parts[2]), nil
		}
	case "add":
		if len(parts) == 3 {
			idStr, key, _ := strings.Cut(parts[2], ":")
			if id, err := strconv.Atoi(idStr); err == nil {
				return AddDish(id, key), nil
			}
		}
	case "rm":
		if len(parts) == 3 {
			if id, err := strconv.Atoi(parts[2]); err == nil {
				return RemoveDish(id), nil
			}
		}
	}
	return bad()
}

func decodeDelivery(parts []string, bad func() (Action, error)) (Action, error) {
	if len(parts) == 1 {
		return Action{Kind: KindToggleDelivery}, nil
	}
	switch parts[1] {
	case "dates":
		if len(parts) == 2 {
			return Action{Kind: KindDatePicker}, nil
		}
	case "custom":
		if len(parts) == 2 {
			return Action{Kind: KindCustomDate}, nil
		}
	case "h", "d":
		if len(parts) != 3 {
			break
		}
		n, err := strconv.Atoi(parts[2])
		if err != nil || n <= 0 {
			break
		}
		if parts[1] == "h" {
			return Action{Kind: KindDisableHours, N: n}, nil
		}
		return Action{Kind: KindDisableDays, N: n}, nil
	}
	return bad()
}
