package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_DeliversToSubscribersOfType(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []EventType
	d.Subscribe(EventChatEscalated, func(_ context.Context, e Event) error {
		got = append(got, e.Type)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventChatReset}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventChatEscalated}))

	assert.Equal(t, []EventType{EventChatEscalated}, got)
}

func TestDispatcher_JoinsHandlerErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")
	calls := 0
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error { calls++; return boom })
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error { calls++; return nil })

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls, "later handlers still run")
}
