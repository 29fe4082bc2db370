package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stoplist-telegram/models"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func TestDeliveryService_DisableForOneHour(t *testing.T) {
	clock := &testClock{t: time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)}
	remote := newMemStore(models.DefaultState())
	svc := NewDeliveryService(newTestRepo(remote, newMemStore(models.DefaultState())), clock.Now, time.UTC)
	ctx := context.Background()

	until, out, err := svc.DisableFor(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, Saved, out)
	assert.True(t, until.Equal(clock.t.Add(time.Hour)))

	stored := remote.state().Delivery.DisabledUntil
	require.NotNil(t, stored)
	assert.True(t, stored.Equal(clock.t.Add(time.Hour)))

	clock.t = clock.t.Add(30 * time.Minute)
	assert.True(t, svc.IsDisabled(ctx))

	clock.t = clock.t.Add(60 * time.Minute)
	assert.False(t, svc.IsDisabled(ctx))
}

func TestDeliveryService_DeadlineSurvivesLocalFiles(t *testing.T) {
	clock := &testClock{t: time.Date(2030, 3, 1, 12, 0, 0, 750_000_000, time.UTC)}
	local, _, _ := newTestLocalStore(t)
	svc := NewDeliveryService(NewStateRepository(nil, local, time.Second, nil), clock.Now, time.UTC)
	ctx := context.Background()

	until, out, err := svc.DisableFor(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, Saved, out)

	stored := svc.Status(ctx)
	require.NotNil(t, stored)
	assert.True(t, until.Equal(*stored))

	clock.t = until.Add(-time.Millisecond)
	assert.True(t, svc.IsDisabled(ctx))
}

func TestDeliveryService_StatusReloadsEveryCall(t *testing.T) {
	now := time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)
	remote := newMemStore(models.DefaultState())
	svc := NewDeliveryService(newTestRepo(remote, newMemStore(models.DefaultState())), func() time.Time { return now }, time.UTC)

	assert.Nil(t, svc.Status(context.Background()))

	until := now.Add(2 * time.Hour)
	require.NoError(t, remote.Store(context.Background(), models.State{
		StopList: models.StopList{},
		Delivery: models.DeliveryStatus{DisabledUntil: &until},
	}))
	got := svc.Status(context.Background())
	require.NotNil(t, got)
	assert.True(t, got.Equal(until))
}

func TestDeliveryService_Enable(t *testing.T) {
	now := time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(time.Hour)
	remote := newMemStore(models.State{StopList: models.StopList{3}, Delivery: models.DeliveryStatus{DisabledUntil: &until}})
	svc := NewDeliveryService(newTestRepo(remote, newMemStore(models.DefaultState())), func() time.Time { return now }, time.UTC)

	assert.Equal(t, Saved, svc.Enable(context.Background()))
	assert.Nil(t, remote.state().Delivery.DisabledUntil)
	assert.Equal(t, models.StopList{3}, remote.state().StopList)
}

func TestDeliveryService_RejectsPast(t *testing.T) {
	now := time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)
	remote := newMemStore(models.DefaultState())
	svc := NewDeliveryService(newTestRepo(remote, newMemStore(models.DefaultState())), func() time.Time { return now }, time.UTC)

	_, err := svc.DisableUntil(context.Background(), now)
	assert.ErrorIs(t, err, ErrInputValidation)
	_, err = svc.DisableUntil(context.Background(), now.Add(-time.Minute))
	assert.ErrorIs(t, err, ErrInputValidation)
	_, _, err = svc.DisableFor(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInputValidation)
	assert.Zero(t, remote.stores)
}

func TestDeliveryService_ParseCustomDate(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	svc := NewDeliveryService(nil, nil, loc)

	got, err := svc.ParseCustomDate(" 25.12.2030 18:00 ")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2030, 12, 25, 15, 0, 0, 0, time.UTC)), got)

	for _, bad := range []string{"", "2030-12-25 18:00", "32.12.2030 18:00", "25.12.2030"} {
		_, err := svc.ParseCustomDate(bad)
		assert.ErrorIs(t, err, ErrInputValidation, bad)
	}
}

func TestIsPreset(t *testing.T) {
	assert.True(t, IsPreset(HourPresets, 8))
	assert.False(t, IsPreset(HourPresets, 3))
	assert.True(t, IsPreset(DayPresets, 14))
}
