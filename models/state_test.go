package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopList_AddIsIdempotent(t *testing.T) {
	s := StopList{1, 2}
	assert.True(t, s.Add(3))
	assert.False(t, s.Add(3))
	assert.Equal(t, StopList{1, 2, 3}, s)
}

func TestStopList_RemoveAbsentLeavesSetUnchanged(t *testing.T) {
	s := StopList{1, 2}
	assert.False(t, s.Remove(9))
	assert.Equal(t, StopList{1, 2}, s)

	assert.True(t, s.Remove(1))
	assert.Equal(t, StopList{2}, s)
}

func TestStopList_RemoveDoesNotAliasOriginal(t *testing.T) {
	orig := StopList{1, 2, 3}
	s := orig.Clone()
	s.Remove(1)
	assert.Equal(t, StopList{1, 2, 3}, orig)
}

func TestStopList_AddAllCountsOnlyNew(t *testing.T) {
	s := StopList{2}
	n := s.AddAll([]int{1, 2, 3})
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []int{1, 2, 3}, []int(s))
}

func TestStopList_Dedup(t *testing.T) {
	assert.Equal(t, StopList{3, 1}, StopList{3, 1, 3, 1}.Dedup())
}

func TestDeliveryStatus_DisabledAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(time.Hour)
	d := DeliveryStatus{DisabledUntil: &until}

	assert.True(t, d.DisabledAt(now.Add(30*time.Minute)))
	assert.False(t, d.DisabledAt(now.Add(90*time.Minute)))
	assert.False(t, d.DisabledAt(until))
	assert.False(t, DeliveryStatus{}.DisabledAt(now))
}

func TestDeliveryStatus_JSON(t *testing.T) {
	until := time.Date(2025, 12, 25, 18, 0, 0, 0, time.FixedZone("MSK", 3*3600))
	b, err := json.Marshal(DeliveryStatus{DisabledUntil: &until})
	require.NoError(t, err)
	assert.JSONEq(t, `{"disabled_until":"2025-12-25T18:00:00+03:00"}`, string(b))

	frac := time.Date(2025, 12, 25, 18, 0, 0, 123456789, time.UTC)
	b, err = json.Marshal(DeliveryStatus{DisabledUntil: &frac})
	require.NoError(t, err)
	assert.JSONEq(t, `{"disabled_until":"2025-12-25T18:00:00.123456789Z"}`, string(b))
	var back DeliveryStatus
	require.NoError(t, json.Unmarshal(b, &back))
	require.NotNil(t, back.DisabledUntil)
	assert.True(t, frac.Equal(*back.DisabledUntil))

	b, err = json.Marshal(DeliveryStatus{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"disabled_until":null}`, string(b))

	var d DeliveryStatus
	require.NoError(t, json.Unmarshal(b, &d))
	assert.Nil(t, d.DisabledUntil)
}

func TestDeliveryStatus_UnmarshalVariants(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339", `{"disabled_until":"2025-12-25T18:00:00Z"}`, time.Date(2025, 12, 25, 18, 0, 0, 0, time.UTC)},
		{"camel case key", `{"disabledUntil":"2025-12-25T18:00:00Z"}`, time.Date(2025, 12, 25, 18, 0, 0, 0, time.UTC)},
		{"naive micros", `{"disabled_until":"2025-12-25T18:00:00.123456"}`, time.Date(2025, 12, 25, 18, 0, 0, 123456000, time.Local)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d DeliveryStatus
			require.NoError(t, json.Unmarshal([]byte(tt.in), &d))
			require.NotNil(t, d.DisabledUntil)
			assert.True(t, tt.want.Equal(*d.DisabledUntil), "got %v", d.DisabledUntil)
		})
	}

	var d DeliveryStatus
	assert.Error(t, json.Unmarshal([]byte(`{"disabled_until":"tomorrow"}`), &d))
}

func TestCatalog_Lookups(t *testing.T) {
	c := Catalog{Categories: []Category{
		{Key: "salads", Label: "Салаты", Dishes: []Dish{{ID: 1, Name: "Цезарь", Price: 450}}},
		{Key: "empty", Label: "Пусто"},
		{Key: "soups", Label: "Супы", Dishes: []Dish{{ID: 7, Name: "Борщ", Price: 390}}},
	}}

	d, key, ok := c.Dish(7)
	require.True(t, ok)
	assert.Equal(t, "soups", key)
	assert.Equal(t, "Борщ", d.Name)

	_, _, ok = c.Dish(99)
	assert.False(t, ok)

	assert.Len(t, c.NonEmpty(), 2)
	_, ok = c.Category("empty")
	assert.True(t, ok)
}
