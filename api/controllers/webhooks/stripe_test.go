package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const testSecret = "whsec_test"

func TestStripeWebhook_SuccessAndIdempotent(t *testing.T) {
	payload, header := buildSignedEvent(t, time.Now())
	service := &fakeStripeWebhookService{outcome: stripewebhook.OutcomeCompleted}
	guard := newGuard(t)
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, guard, nil, WebhookOptions{})

	rec := serve(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}

	// Replay the same event
	rec2 := serve(handler, payload, header)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d (%s)", rec2.Code, rec2.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected duplicate not processed, call count %d", service.calls)
	}
	if !strings.Contains(rec2.Body.String(), `"outcome":"completed"`) {
		t.Fatalf("expected replay to report the recorded outcome, got %s", rec2.Body.String())
	}
}

func TestStripeWebhook_InvalidSignature(t *testing.T) {
	payload, _ := buildSignedEvent(t, time.Now())
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, newGuard(t), nil, WebhookOptions{})

	rec := serve(handler, payload, "t=1,v1=invalid")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func TestStripeWebhook_WrongSecret(t *testing.T) {
	payload, header := buildSignedEvent(t, time.Now())
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, &fakeSigningClient{secret: "whsec_other"}, nil, nil, WebhookOptions{})

	rec := serve(handler, payload, header)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for foreign signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked")
	}
}

func TestStripeWebhook_MissingSignature(t *testing.T) {
	payload, _ := buildSignedEvent(t, time.Now())
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, nil, nil, WebhookOptions{})

	rec := serve(handler, payload, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing signature, got %d", rec.Code)
	}
}

func TestStripeWebhook_ReplayOutsideTolerance(t *testing.T) {
	payload, header := buildSignedEvent(t, time.Now().Add(-10*time.Minute))
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, nil, nil, WebhookOptions{Tolerance: 5 * time.Minute})

	rec := serve(handler, payload, header)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for stale timestamp, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on stale event")
	}
}

func TestStripeWebhook_OrderNotFoundStaysOpenForRedelivery(t *testing.T) {
	payload, header := buildSignedEvent(t, time.Now())
	service := &fakeStripeWebhookService{outcome: stripewebhook.OutcomeOrderNotFound}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, newGuard(t), nil, WebhookOptions{})

	for i := 0; i < 2; i++ {
		rec := serve(handler, payload, header)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for unmatched order, got %d", rec.Code)
		}
	}
	if service.calls != 2 {
		t.Fatalf("expected redelivery to be processed again, got %d calls", service.calls)
	}
}

func TestStripeWebhook_DependencyErrorRequestsRedelivery(t *testing.T) {
	payload, header := buildSignedEvent(t, time.Now())
	service := &fakeStripeWebhookService{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "load order")}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, newGuard(t), nil, WebhookOptions{})

	rec := serve(handler, payload, header)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	service.err = nil
	service.outcome = stripewebhook.OutcomeCompleted
	rec = serve(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d", rec.Code)
	}
	if service.calls != 2 {
		t.Fatalf("expected two attempts, got %d", service.calls)
	}
}

func TestStripeWebhook_FailedDeliveryIsNeverRecorded(t *testing.T) {
	payload, header := buildSignedEvent(t, time.Now())
	service := &fakeStripeWebhookService{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("tx aborted"), "update order")}
	store := newInMemoryStore()
	guard, err := stripewebhook.NewIdempotencyGuard(store, time.Minute, "stripe-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, guard, nil, WebhookOptions{})

	rec := serve(handler, payload, header)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if store.sets != 0 || len(store.data) != 0 {
		t.Fatalf("failed delivery wrote a dedupe key: sets=%d data=%v", store.sets, store.data)
	}

	service.err = nil
	service.outcome = stripewebhook.OutcomeCompleted
	rec = serve(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected redelivery to succeed, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"outcome":"completed"`) {
		t.Fatalf("redelivery was not reconciled: %s", rec.Body.String())
	}
	if service.calls != 2 {
		t.Fatalf("expected redelivery to reach the service, got %d calls", service.calls)
	}
	if store.sets != 1 {
		t.Fatalf("expected the committed delivery to be recorded once, got %d writes", store.sets)
	}
}

func TestStripeWebhook_GuardOutageStillProcesses(t *testing.T) {
	payload, header := buildSignedEvent(t, time.Now())
	service := &fakeStripeWebhookService{outcome: stripewebhook.OutcomeCompleted}
	store := newInMemoryStore()
	store.err = errors.New("redis down")
	guard, err := stripewebhook.NewIdempotencyGuard(store, time.Minute, "stripe-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, guard, nil, WebhookOptions{})

	rec := serve(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if service.calls != 1 {
		t.Fatalf("expected event processed, got %d calls", service.calls)
	}
}

func TestStripeWebhook_LegacyBody(t *testing.T) {
	payload, header := buildSignedEvent(t, time.Now())
	service := &fakeStripeWebhookService{outcome: stripewebhook.OutcomeCompleted}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, nil, nil, WebhookOptions{Legacy: true})

	rec := serve(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"received":true}` {
		t.Fatalf("unexpected legacy body %s", got)
	}
}

func serve(handler http.Handler, payload []byte, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if header != "" {
		req.Header.Set("Stripe-Signature", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func newGuard(t *testing.T) *stripewebhook.IdempotencyGuard {
	t.Helper()
	guard, err := stripewebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "stripe-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return guard
}

func buildSignedEvent(t *testing.T, signedAt time.Time) ([]byte, string) {
	t.Helper()
	rawSession, err := json.Marshal(map[string]any{
		"id":             "cs_test_" + uuid.NewString(),
		"object":         "checkout.session",
		"customer_email": "a@b.com",
	})
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	event := &stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       stripe.EventTypeCheckoutSessionCompleted,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data: &stripe.EventData{
			Raw: rawSession,
		},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	header := buildStripeSignatureHeader(payload, testSecret, signedAt.Unix())
	return payload, header
}

func buildStripeSignatureHeader(payload []byte, secret string, ts int64) string {
	signedPayload := fmt.Sprintf("%d.%s", ts, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type fakeStripeWebhookService struct {
	calls   int
	outcome stripewebhook.Outcome
	err     error
}

func (f *fakeStripeWebhookService) HandleEvent(ctx context.Context, event *stripe.Event) (stripewebhook.Outcome, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.outcome, nil
}

type fakeSigningClient struct {
	secret string
}

func (c *fakeSigningClient) SigningSecret() string {
	return c.secret
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
	err  error
	sets int
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{
		data: make(map[string]string),
	}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], s.err
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.err != nil {
		return false, s.err
	}
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("sf:idempotency:%s:%s", scope, id)
}
