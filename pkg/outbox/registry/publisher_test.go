package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	orderID := uuid.New()
	payloadBytes := mustMarshal(t, payloads.OrderCompletedEvent{
		OrderID:     orderID,
		SessionID:   "cs_test_1",
		ProductName: "Born to Dilly Dally Shirt",
		Quantity:    2,
		TotalPrice:  "39.98",
	})

	event := models.OutboxEvent{
		EventType:     enums.EventOrderCompleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "orders-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.OrderCompletedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.OrderID != orderID || payload.TotalPrice != "39.98" {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
}

func TestEventRegistryResolveRejectsBadRows(t *testing.T) {
	reg := newTestEventRegistry(t)
	valid := mustEnvelope(t, []byte(`{"sessionId":"cs_test_1"}`))

	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     "order_shipped",
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       valid,
		},
		"aggregate mismatch": {
			EventType:     enums.EventOrderCompleted,
			AggregateType: "store",
			AggregateID:   uuid.New(),
			Payload:       valid,
		},
		"missing aggregate id": {
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			Payload:       valid,
		},
		"missing payload": {
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`null`)),
		},
		"broken envelope": {
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{`),
		},
	}

	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			if err == nil {
				t.Fatalf("expected error")
			}
			var nonRetry NonRetryableError
			if !errors.As(err, &nonRetry) {
				t.Fatalf("expected non-retryable error, got %T", err)
			}
		})
	}
}

func TestResolvedEventAttributesCarryCheckoutSession(t *testing.T) {
	orderID := uuid.New()
	resolved := &ResolvedEvent{
		Descriptor: EventDescriptor{EventType: enums.EventOrderCompleted, AggregateType: enums.AggregateOrder},
		Envelope:   outbox.PayloadEnvelope{EventID: "evt-1", Source: "stripe-webhook"},
		Payload:    &payloads.OrderCompletedEvent{OrderID: orderID, SessionID: "cs_test_1"},
	}

	attrs := resolved.Attributes()
	want := map[string]string{
		"event_id":       "evt-1",
		"event_type":     string(enums.EventOrderCompleted),
		"aggregate_type": string(enums.AggregateOrder),
		"source":         "stripe-webhook",
		"session_id":     "cs_test_1",
		"order_id":       orderID.String(),
	}
	if len(attrs) != len(want) {
		t.Fatalf("unexpected attributes %v", attrs)
	}
	for key, value := range want {
		if attrs[key] != value {
			t.Fatalf("attribute %s = %q, want %q", key, attrs[key], value)
		}
	}

	resolved.Payload = &payloads.OrderCompletedEvent{}
	resolved.Envelope.Source = ""
	attrs = resolved.Attributes()
	for _, key := range []string{"source", "session_id", "order_id"} {
		if _, ok := attrs[key]; ok {
			t.Fatalf("empty %s should be omitted", key)
		}
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{}); err == nil {
		t.Fatalf("expected missing topic error")
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders-topic"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func mustEnvelope(t *testing.T, data []byte) json.RawMessage {
	t.Helper()
	return mustMarshal(t, outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       data,
	})
}
