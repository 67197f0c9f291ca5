package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/hxwire"
)

func TestCounterActions(t *testing.T) {
	m, _ := demoManager(t)
	tc, err := m.Test(context.Background(), "counter", hxwire.Params{"step": 5})
	require.NoError(t, err)

	require.NoError(t, tc.Call("increment"))
	require.NoError(t, tc.Call("increment"))
	require.NoError(t, tc.Call("decrement"))
	assert.Equal(t, 5, tc.Get("count"))
	assert.True(t, tc.HTMLContains("<span>5</span>"))
}

func TestBoardActions(t *testing.T) {
	m, _ := demoManager(t)
	tc, err := m.Test(context.Background(), "board", hxwire.Params{"title": "Chores"})
	require.NoError(t, err)
	assert.Equal(t, 1, tc.Get("next_id"))

	// An empty draft is a validation error, not a failed request.
	require.NoError(t, tc.Call("addCard"))
	assert.True(t, tc.HasError("draft"))
	assert.True(t, tc.HTMLContains("Title is required"))

	require.NoError(t, tc.Set("draft", "  Buy milk "))
	assert.False(t, tc.HasError("draft"))
	require.NoError(t, tc.Call("addCard"))
	assert.Equal(t, "Buy milk", tc.Get("cards.0.title"))
	assert.Equal(t, "", tc.Get("draft"))
	assert.Equal(t, 2, tc.Get("next_id"))

	require.NoError(t, tc.Call("complete", 1))
	assert.Equal(t, true, tc.Get("cards.0.done"))
	require.Len(t, tc.Effects().Flashes, 1)
	assert.Equal(t, "Completed Buy milk", tc.Effects().Flashes[0].Message)

	require.NoError(t, tc.Call("complete", 9))
	assert.Equal(t, "No card 9", tc.Errors()["cards"])

	require.NoError(t, tc.Call("remove", 1))
	assert.Empty(t, tc.Component().(*Board).Cards)
}

func TestBoardRejectsUnknownMethod(t *testing.T) {
	m, _ := demoManager(t)
	tc, err := m.Test(context.Background(), "board", nil)
	require.NoError(t, err)

	require.NoError(t, tc.Call("helper"))
	assert.Contains(t, tc.Errors()["$call"], "helper")
}
