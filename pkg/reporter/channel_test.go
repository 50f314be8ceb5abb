package reporter

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windowsadmins/tweaker/pkg/tweak"
)

func TestChannelHandsEventsToDisplayGoroutine(t *testing.T) {
	// smaller than the number of events so the sender has to wait on the reader
	ch := NewChannel(1)
	sink := NewTracker("")

	drained := make(chan error, 1)
	go func() { drained <- Drain(ch.Events(), sink) }()

	require.NoError(t, ch.OnPlan([]string{"Create Restore Point", "Delete Temporary Files"}))
	require.NoError(t, ch.OnStarted("Create Restore Point"))
	require.NoError(t, ch.OnWarning("Create Restore Point", "frequency limit"))
	require.NoError(t, ch.OnSucceeded("Create Restore Point"))
	require.NoError(t, ch.OnStarted("Delete Temporary Files"))
	require.NoError(t, ch.OnFailed("Delete Temporary Files", "access denied"))
	require.NoError(t, ch.OnRunComplete(tweak.Summary{Total: 2, Succeeded: 1, Failed: 1, Warned: 1}))
	ch.Close()
	require.NoError(t, <-drained)

	items := sink.Items()
	require.Len(t, items, 2)
	assert.Equal(t, StatusWarning, items[0].Status)
	assert.Equal(t, StatusFailed, items[1].Status)
	assert.Equal(t, "access denied", items[1].Error)

	summary, ok := sink.Summary()
	require.True(t, ok)
	assert.Equal(t, 1, summary.Failed)

	var types []EventType
	for _, ev := range sink.Events() {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []EventType{EventStarted, EventWarning, EventSucceeded, EventStarted, EventFailed, EventRunComplete}, types)
}

func TestChannelForwardsFatal(t *testing.T) {
	ch := NewChannel(4)
	rec := &fatalRecorder{}

	ch.OnFatal(errors.New("reporter failed on started"))
	ch.Close()
	ch.Close()
	require.NoError(t, Drain(ch.Events(), rec))
	require.Error(t, rec.fatal)
	assert.Equal(t, "reporter failed on started", rec.fatal.Error())
}

func TestDrainIntoConsole(t *testing.T) {
	var buf bytes.Buffer
	ch := NewChannel(8)
	require.NoError(t, ch.OnStarted("Disable Telemetry"))
	require.NoError(t, ch.OnSucceeded("Disable Telemetry"))
	require.NoError(t, ch.OnRunComplete(tweak.Summary{Total: 1, Succeeded: 1}))
	ch.Close()

	require.NoError(t, Drain(ch.Events(), NewConsole(&buf, false)))
	out := buf.String()
	assert.Contains(t, out, "Starting: Disable Telemetry")
	assert.Contains(t, out, "Completed: Disable Telemetry")
	assert.Contains(t, out, "Execution Complete: Applied 1 tweaks!")
}

func TestReplayJoinsSinkErrors(t *testing.T) {
	ch := NewChannel(2)
	require.NoError(t, ch.OnStarted("a"))
	require.NoError(t, ch.OnStarted("b"))
	ch.Close()

	err := Drain(ch.Events(), failing{err: errors.New("closed")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}
