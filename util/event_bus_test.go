// util/event_bus_test.go
package util_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentgate/agentgate/util"
)

func TestEventBusPublish(t *testing.T) {
	t.Run("DeliversToSubscribers", func(t *testing.T) {
		bus := util.NewEventBus()
		received := make(chan util.Event, 1)
		bus.Subscribe(util.EventPermissionUpdated, func(_ context.Context, event util.Event) error {
			received <- event
			return nil
		})

		bus.Publish(context.Background(), util.EventPermissionUpdated, "agent-1")

		select {
		case event := <-received:
			assert.Equal(t, util.EventPermissionUpdated, event.Type)
			assert.Equal(t, "agent-1", event.Payload)
		case <-time.After(time.Second):
			t.Fatal("handler was not invoked")
		}
	})

	t.Run("UnsubscribedTypeIsDropped", func(t *testing.T) {
		bus := util.NewEventBus()
		bus.Publish(context.Background(), util.EventApprovalExpired, "agent-1")
	})

	t.Run("HandlerSurvivesCallerCancellation", func(t *testing.T) {
		bus := util.NewEventBus()
		handlerCtx := make(chan context.Context, 1)
		bus.Subscribe(util.EventApprovalResolved, func(ctx context.Context, _ util.Event) error {
			handlerCtx <- ctx
			return nil
		})

		// A request-scoped context is typically done by the time the
		// handler goroutine runs; the handler must not inherit that.
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		bus.Publish(ctx, util.EventApprovalResolved, "req-1")

		select {
		case got := <-handlerCtx:
			require.NoError(t, got.Err())
		case <-time.After(time.Second):
			t.Fatal("handler was not invoked")
		}
	})
}
