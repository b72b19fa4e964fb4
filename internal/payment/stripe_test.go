package payment

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
)

const testSecret = "whsec_test_secret"

func signed(t *testing.T, payload string) (string, []byte) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return sp.Header, sp.Payload
}

func newTestProvider() *StripeProvider {
	return NewStripe(StripeConfig{
		SecretKey:     "sk_test_x",
		WebhookSecret: testSecret,
		AppURL:        "https://fitmeal.example",
		Currency:      "cad",
	})
}

func TestStripe_ParseWebhook_Completed(t *testing.T) {
	p := newTestProvider()
	header, body := signed(t, `{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "object": "checkout.session", "payment_status": "paid", "metadata": {"orderId": "order-42"}}}
	}`)

	ev, err := p.ParseWebhook(body, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, "order-42", ev.OrderID)
	assert.True(t, ev.Completed)
}

func TestStripe_ParseWebhook_Unpaid(t *testing.T) {
	p := newTestProvider()
	header, body := signed(t, `{
		"id": "evt_2",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_2", "object": "checkout.session", "payment_status": "unpaid", "metadata": {"orderId": "order-43"}}}
	}`)

	ev, err := p.ParseWebhook(body, header)
	require.NoError(t, err)
	assert.Equal(t, "order-43", ev.OrderID)
	assert.False(t, ev.Completed)
}

func TestStripe_ParseWebhook_OtherEvent(t *testing.T) {
	p := newTestProvider()
	header, body := signed(t, `{"id": "evt_3", "object": "event", "type": "customer.created", "data": {"object": {"id": "cus_1", "object": "customer"}}}`)

	ev, err := p.ParseWebhook(body, header)
	require.NoError(t, err)
	assert.Equal(t, "customer.created", ev.Type)
	assert.Empty(t, ev.OrderID)
	assert.False(t, ev.Completed)
}

func TestStripe_ParseWebhook_BadSignature(t *testing.T) {
	p := newTestProvider()
	_, body := signed(t, `{"id": "evt_4", "object": "event", "type": "checkout.session.completed"}`)

	_, err := p.ParseWebhook(body, "t=1,v1=deadbeef")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSignature))
}

func TestStripe_URLs(t *testing.T) {
	p := newTestProvider()
	assert.Equal(t, "https://fitmeal.example/orders/success?session_id={CHECKOUT_SESSION_ID}", p.SuccessURL())
	assert.Equal(t, "https://fitmeal.example/orders/cancel?orderId=abc", p.CancelURL("abc"))
}
