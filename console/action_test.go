package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_EncodeDecode(t *testing.T) {
	actions := []Action{
		MainMenu(),
		{Kind: KindRequestPin},
		{Kind: KindChangePin},
		Categories(),
		OpenCategory("main"),
		DisableCategory("beef"),
		AddDish(42, "main"),
		AddDish(7, ""),
		{Kind: KindRemoveMenu},
		RemoveDish(9),
		{Kind: KindEnableAll},
		{Kind: KindToggleDelivery},
		{Kind: KindDisableHours, N: 4},
		{Kind: KindDatePicker},
		{Kind: KindDisableDays, N: 30},
		{Kind: KindCustomDate},
	}
	for _, a := range actions {
		data := a.Encode()
		require.NotEmpty(t, data)
		assert.LessOrEqual(t, len(data), 64, "telegram callback data limit")

		got, err := Decode(data)
		require.NoError(t, err, data)
		assert.Equal(t, a, got, data)
	}
}

func TestAction_AddDishWire(t *testing.T) {
	assert.Equal(t, "stop:add:42:main", AddDish(42, "main").Encode())

	a, err := Decode("stop:add:42:a:b")
	require.NoError(t, err)
	assert.Equal(t, AddDish(42, "a:b"), a)
}

func TestDecode_Malformed(t *testing.T) {
	for _, data := range []string{
		"",
		"menu:extra",
		"dish_add_42_main",
		"stop",
		"stop:add:x:main",
		"stop:rm:",
		"stop:cat:",
		"dlv:h:abc",
		"dlv:h:-1",
		"dlv:d",
		"pin:old",
	} {
		_, err := Decode(data)
		assert.ErrorIs(t, err, ErrBadAction, data)
	}
}

func TestSessions(t *testing.T) {
	s := NewSessions()
	assert.Equal(t, ModeNone, s.Mode(1))

	s.SetMode(1, ModeAwaitingCustomDate)
	assert.Equal(t, ModeAwaitingCustomDate, s.Mode(1))
	assert.Equal(t, ModeNone, s.Mode(2))

	s.Clear(1)
	assert.Equal(t, ModeNone, s.Mode(1))
	assert.Equal(t, "none", s.Mode(1).String())
}
