// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

package notify_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davitran/aperture/internal/event"
	"github.com/davitran/aperture/internal/notify"
	"github.com/davitran/aperture/internal/platform/constants"
)

func testLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestCenter_RecordsNewestFirst(t *testing.T) {
	bus := event.NewBus(testLogger())
	center := notify.NewCenter(bus)
	defer center.Close()

	bus.Emit(constants.EventNotifyUser, notify.Payload{Message: "first"})
	bus.Emit(constants.EventNotifyUser, notify.Payload{Message: "second", Thumbnail: "https://cdn.example.com/t.jpg"})

	items := center.List()
	require.Len(t, items, 2)
	assert.Equal(t, "second", items[0].Message)
	assert.Equal(t, "https://cdn.example.com/t.jpg", items[0].Thumbnail)
	assert.Equal(t, "first", items[1].Message)
	assert.NotEqual(t, items[0].ID, items[1].ID)
}

func TestCenter_IgnoresForeignPayloads(t *testing.T) {
	bus := event.NewBus(testLogger())
	center := notify.NewCenter(bus)
	defer center.Close()

	bus.Emit(constants.EventNotifyUser, "not a payload")
	bus.Emit(constants.EventNotifyUser, 42)

	assert.Empty(t, center.List())
}

func TestCenter_Clear(t *testing.T) {
	bus := event.NewBus(testLogger())
	center := notify.NewCenter(bus)
	defer center.Close()

	bus.Emit(constants.EventNotifyUser, notify.Payload{Message: "gone soon"})
	require.Len(t, center.List(), 1)

	center.Clear()
	assert.Empty(t, center.List())
}

/*
TestCenter_TwoCentersOnOneBus verifies that two centers sharing a bus both
record every notification; their subscriptions are independent even though
both register the same method.
*/
func TestCenter_TwoCentersOnOneBus(t *testing.T) {
	bus := event.NewBus(testLogger())
	first := notify.NewCenter(bus)
	defer first.Close()
	second := notify.NewCenter(bus)
	defer second.Close()

	bus.Emit(constants.EventNotifyUser, notify.Payload{Message: "shared"})

	require.Len(t, first.List(), 1)
	require.Len(t, second.List(), 1)
}

func TestCenter_CloseStopsRecording(t *testing.T) {
	bus := event.NewBus(testLogger())
	center := notify.NewCenter(bus)

	center.Close()
	bus.Emit(constants.EventNotifyUser, notify.Payload{Message: "after close"})

	assert.Empty(t, center.List())
}
