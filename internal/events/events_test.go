package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBus(t *testing.T) {
	t.Run("subscribers receive matching events", func(t *testing.T) {
		bus := NewEventBus()

		var received []Event
		bus.Subscribe("reservation.status_changed", func(event Event) error {
			received = append(received, event)
			return nil
		})
		bus.Subscribe("other.type", func(event Event) error {
			t.Error("handler for another type must not fire")
			return nil
		})

		bus.Publish(Event{Type: "reservation.status_changed", Payload: []byte(`{}`)})
		assert.Len(t, received, 1)
		assert.False(t, received[0].CreatedAt.IsZero())
	})

	t.Run("multiple handlers all fire", func(t *testing.T) {
		bus := NewEventBus()
		count := 0
		bus.Subscribe("t", func(Event) error { count++; return nil })
		bus.Subscribe("t", func(Event) error { count++; return nil })

		bus.Publish(Event{Type: "t"})
		assert.Equal(t, 2, count)
	})

	t.Run("publish without subscribers is a no-op", func(t *testing.T) {
		bus := NewEventBus()
		bus.Publish(Event{Type: "nobody.listens"})
	})

	t.Run("PublishJSON marshals the payload", func(t *testing.T) {
		bus := NewEventBus()

		var payload []byte
		bus.Subscribe("t", func(event Event) error {
			payload = event.Payload
			return nil
		})

		assert.NoError(t, bus.PublishJSON("t", map[string]string{"uuid": "res-1"}))

		var decoded map[string]string
		assert.NoError(t, json.Unmarshal(payload, &decoded))
		assert.Equal(t, "res-1", decoded["uuid"])
	})

	t.Run("PublishJSON rejects unmarshalable payloads", func(t *testing.T) {
		bus := NewEventBus()
		assert.Error(t, bus.PublishJSON("t", make(chan int)))
	})
}
