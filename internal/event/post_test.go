// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/davitran/aperture/internal/event"
)

/*
TestChannel_SharedSubscriberSet verifies the documented coupling: a
subscriber of "added" also receives "changed" signals, and vice versa.
*/
func TestChannel_SharedSubscriberSet(t *testing.T) {
	channel := event.NewChannel(testLogger())

	var added []event.PostSignal
	var changed []event.PostSignal
	channel.SubscribeAdded(func(signal event.PostSignal) { added = append(added, signal) })
	channel.SubscribeChanged(func(signal event.PostSignal) { changed = append(changed, signal) })

	channel.EmitAdded("post-1")
	channel.EmitChanged("post-2")

	// Both subscribers observed both signals.
	assert.Len(t, added, 2)
	assert.Len(t, changed, 2)
	assert.Equal(t, event.PostAdded, added[0].Kind)
	assert.Equal(t, "post-1", added[0].PostID)
	assert.Equal(t, event.PostChanged, added[1].Kind)
	assert.Equal(t, "post-2", added[1].PostID)
}

/*
TestChannel_Unsubscribe verifies that an unsubscribed handler receives no
further signals.
*/
func TestChannel_Unsubscribe(t *testing.T) {
	channel := event.NewChannel(testLogger())

	count := 0
	unsubscribe := channel.SubscribeAdded(func(signal event.PostSignal) { count++ })

	channel.EmitAdded("post-1")
	unsubscribe()
	channel.EmitAdded("post-2")
	channel.EmitChanged("post-3")

	assert.Equal(t, 1, count)
}

/*
TestChannel_ClosuresFromOneLiteral verifies that closures built from one
literal subscribe independently: both hear every signal.
*/
func TestChannel_ClosuresFromOneLiteral(t *testing.T) {
	channel := event.NewChannel(testLogger())

	counts := make([]int, 2)
	for i := range counts {
		i := i
		channel.SubscribeAdded(func(signal event.PostSignal) { counts[i]++ })
	}

	channel.EmitAdded("post-1")

	assert.Equal(t, []int{1, 1}, counts)
}

/*
TestChannel_PanicIsolation verifies that a panicking subscriber does not
block the rest of the set.
*/
func TestChannel_PanicIsolation(t *testing.T) {
	channel := event.NewChannel(testLogger())

	survived := false
	channel.SubscribeAdded(func(signal event.PostSignal) { panic("render bug") })
	channel.SubscribeChanged(func(signal event.PostSignal) { survived = true })

	assert.NotPanics(t, func() { channel.EmitAdded("post-1") })
	assert.True(t, survived)
}
