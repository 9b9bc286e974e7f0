package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type ledgerTestEvent struct {
	shared.BaseDomainEvent
	Amount string `json:"amount"`
}

func newLedgerEvent(eventType string) *ledgerTestEvent {
	return &ledgerTestEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Charge", uuid.New(), uuid.New()),
		Amount:          "150.00",
	}
}

// recordingHandler captures every event it receives.
type recordingHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  any
	mu         sync.Mutex
}

func newRecordingHandler(eventTypes ...string) *recordingHandler {
	return &recordingHandler{eventTypes: eventTypes}
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	h.handled = append(h.handled, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *recordingHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newRecordingHandler("ChargeCreated")
	bus.Subscribe(handler, "ChargeCreated")

	evt := newLedgerEvent("ChargeCreated")
	require.NoError(t, bus.Publish(context.Background(), evt))

	require.Len(t, handler.getHandled(), 1)
	assert.Equal(t, evt, handler.getHandled()[0])
}

func TestInMemoryEventBus_Publish_MultipleEvents(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newRecordingHandler("PaymentRecorded")
	bus.Subscribe(handler, "PaymentRecorded")

	err := bus.Publish(context.Background(),
		newLedgerEvent("PaymentRecorded"),
		newLedgerEvent("PaymentRecorded"),
	)

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 2)
}

func TestInMemoryEventBus_Publish_MultipleHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler1 := newRecordingHandler("ChargeSettled")
	handler2 := newRecordingHandler("ChargeSettled")
	bus.Subscribe(handler1, "ChargeSettled")
	bus.Subscribe(handler2, "ChargeSettled")

	require.NoError(t, bus.Publish(context.Background(), newLedgerEvent("ChargeSettled")))

	assert.Len(t, handler1.getHandled(), 1)
	assert.Len(t, handler2.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_WildcardHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	// no event types means the handler receives everything
	wildcard := newRecordingHandler()
	bus.Subscribe(wildcard)

	require.NoError(t, bus.Publish(context.Background(), newLedgerEvent("ReminderEmitted")))

	assert.Len(t, wildcard.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_HandlerErrorDoesNotStopOthers(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := newRecordingHandler("ChargeCreated")
	failing.err = errors.New("projection write failed")
	healthy := newRecordingHandler("ChargeCreated")
	bus.Subscribe(failing, "ChargeCreated")
	bus.Subscribe(healthy, "ChargeCreated")

	require.NoError(t, bus.Publish(context.Background(), newLedgerEvent("ChargeCreated")))

	assert.Len(t, failing.getHandled(), 1)
	assert.Len(t, healthy.getHandled(), 1)
	assert.Equal(t, 1, logs.FilterMessage("handler failed to process event").Len())
}

func TestInMemoryEventBus_Publish_HandlerPanicIsContained(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	panicking := newRecordingHandler("ChargeCreated")
	panicking.panicWith = "nil map write"
	healthy := newRecordingHandler("ChargeCreated")
	bus.Subscribe(panicking, "ChargeCreated")
	bus.Subscribe(healthy, "ChargeCreated")

	require.NoError(t, bus.Publish(context.Background(), newLedgerEvent("ChargeCreated")))

	assert.Len(t, healthy.getHandled(), 1)

	entries := logs.FilterMessage("handler failed to process event").All()
	require.Len(t, entries, 1)
	assert.Contains(t, fmt.Sprint(entries[0].ContextMap()["error"]), "handler panic")
}

func TestInMemoryEventBus_Publish_NoMatchingHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newRecordingHandler("ChargeCancelled")
	bus.Subscribe(handler, "ChargeCancelled")

	require.NoError(t, bus.Publish(context.Background(), newLedgerEvent("PaymentRecorded")))

	assert.Empty(t, handler.getHandled())
}

func TestInMemoryEventBus_Subscribe_UsesHandlerDeclaredTypes(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newRecordingHandler("ChargeCreated", "ChargeSettled")
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(),
		newLedgerEvent("ChargeCreated"),
		newLedgerEvent("ChargeSettled"),
		newLedgerEvent("PaymentRecorded"),
	))

	assert.Len(t, handler.getHandled(), 2)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newRecordingHandler("ChargeCreated")
	bus.Subscribe(handler, "ChargeCreated")

	_ = bus.Publish(context.Background(), newLedgerEvent("ChargeCreated"))
	assert.Len(t, handler.getHandled(), 1)

	bus.Unsubscribe(handler)

	_ = bus.Publish(context.Background(), newLedgerEvent("ChargeCreated"))
	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, bus.Start(ctx))

	handler := newRecordingHandler("ChargeCreated")
	bus.Subscribe(handler, "ChargeCreated")
	require.NoError(t, bus.Publish(ctx, newLedgerEvent("ChargeCreated")))
	assert.Len(t, handler.getHandled(), 1)

	require.NoError(t, bus.Stop(ctx))
}
