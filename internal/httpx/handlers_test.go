package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariefcatur/fitmeal/internal/catalog"
	"github.com/ariefcatur/fitmeal/internal/memstore"
	"github.com/ariefcatur/fitmeal/internal/money"
	"github.com/ariefcatur/fitmeal/internal/nutrition"
	"github.com/ariefcatur/fitmeal/internal/orders"
	"github.com/ariefcatur/fitmeal/internal/payment"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	lastOrder string
	lastLines []payment.CheckoutLine
}

func (p *fakeProvider) CreateCheckoutSession(ctx context.Context, orderID string, lines []payment.CheckoutLine) (string, error) {
	p.lastOrder, p.lastLines = orderID, lines
	return "https://pay.example/cs_" + orderID, nil
}

// ParseWebhook accepts signature "good" and a JSON body {id, orderId, completed}.
func (p *fakeProvider) ParseWebhook(payload []byte, signature string) (payment.Event, error) {
	if signature != "good" {
		return payment.Event{}, payment.ErrInvalidSignature
	}
	var ev struct {
		ID        string `json:"id"`
		OrderID   string `json:"orderId"`
		Completed bool   `json:"completed"`
	}
	if err := json.Unmarshal(payload, &ev); err != nil {
		return payment.Event{}, err
	}
	return payment.Event{ID: ev.ID, Type: "checkout.session.completed", OrderID: ev.OrderID, Completed: ev.Completed}, nil
}

type memDedup struct{ seen map[string]bool }

func (d *memDedup) Seen(ctx context.Context, id string) (bool, error) { return d.seen[id], nil }
func (d *memDedup) Mark(ctx context.Context, id string) error {
	d.seen[id] = true
	return nil
}

type testAPI struct {
	t        *testing.T
	h        http.Handler
	store    *memstore.Store
	provider *fakeProvider
}

func newTestAPI(t *testing.T, secret string) *testAPI {
	t.Helper()
	log := zap.NewNop()
	store := memstore.New()
	auth := &Auth{Secret: []byte(secret), Log: log}
	provider := &fakeProvider{}
	h := Routes(Deps{
		Meals:     &catalog.Service{Store: store, Log: log},
		Orders:    &orders.Service{Store: store, Producer: "test", Log: log},
		Nutrition: &nutrition.Service{Profiles: store, Meals: store},
		Payments:  provider,
		Dedup:     &memDedup{seen: map[string]bool{}},
		Hub:       NewHub(auth, log),
		Auth:      auth,
		Log:       log,
	})
	return &testAPI{t: t, h: h, store: store, provider: provider}
}

func (a *testAPI) do(method, path string, body any, header ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(a.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) createMeal(name string, price string, calories int) catalog.Meal {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/meals", `{"name":"`+name+`","price":`+price+`,"calories":`+itoa(calories)+`}`)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[catalog.Meal](a.t, rec)
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func (a *testAPI) createOrder(userID string, items ...map[string]any) *httptest.ResponseRecorder {
	return a.do(http.MethodPost, "/orders", map[string]any{"userId": userID, "items": items})
}

func line(mealID string, qty int) map[string]any {
	return map[string]any{"mealId": mealID, "quantity": qty}
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t, "")
	rec := api.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMeals_CreateListDelete(t *testing.T) {
	api := newTestAPI(t, "")
	m := api.createMeal("Bowl", "12.99", 500)
	assert.Equal(t, money.Money(1299), *m.Price)

	rec := api.do(http.MethodPost, "/meals", `{"name":"NoPrice"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/meals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]catalog.Meal](t, rec), 1)

	rec = api.do(http.MethodDelete, "/meals/"+m.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodDelete, "/meals/"+m.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrders_CartScenarioTotal(t *testing.T) {
	api := newTestAPI(t, "")
	a := api.createMeal("A", "10.00", 400)
	b := api.createMeal("B", "5.50", 300)

	rec := api.createOrder("user_1", line(a.ID, 2), line(b.ID, 1))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"total":25.50`)

	o := decode[orders.Order](t, rec)
	assert.Equal(t, orders.StatusPending, o.Status)
	require.Len(t, o.Items, 2)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, 1, o.Items[1].Quantity)
	require.NotNil(t, o.Items[0].Meal)
	assert.Equal(t, "A", o.Items[0].Meal.Name)
	require.NotNil(t, o.User)
	assert.Equal(t, "user_1", o.User.ExternalID)
}

func TestOrders_RejectedCreatePersistsNothing(t *testing.T) {
	api := newTestAPI(t, "")
	a := api.createMeal("A", "10.00", 400)

	assert.Equal(t, http.StatusBadRequest, api.createOrder("user_1").Code)
	assert.Equal(t, http.StatusBadRequest, api.createOrder("", line(a.ID, 1)).Code)
	assert.Equal(t, http.StatusBadRequest,
		api.createOrder("user_1", line(a.ID, 1), line("00000000-0000-0000-0000-000000000000", 1)).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/orders", `{bad`).Code)

	_, orderCount, items, _ := api.store.Counts()
	assert.Zero(t, orderCount)
	assert.Zero(t, items)
}

func TestOrders_IdempotencyKeyWithoutRedisStillCreates(t *testing.T) {
	api := newTestAPI(t, "")
	a := api.createMeal("A", "10.00", 400)
	body := map[string]any{"userId": "user_1", "items": []map[string]any{line(a.ID, 1)}}
	rec := api.do(http.MethodPost, "/orders", body, "Idempotency-Key", "k1")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestOrders_PayNonexistent(t *testing.T) {
	api := newTestAPI(t, "")
	rec := api.do(http.MethodPost, "/orders/pay", map[string]string{"orderId": "00000000-0000-0000-0000-000000000000"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPost, "/orders/pay", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, orderCount, _, _ := api.store.Counts()
	assert.Zero(t, orderCount)
}

func TestOrders_LifecycleEndpoints(t *testing.T) {
	api := newTestAPI(t, "")
	a := api.createMeal("A", "10.00", 400)
	o := decode[orders.Order](t, api.createOrder("user_1", line(a.ID, 1)))

	// PATCH with no body defaults to PAID
	rec := api.do(http.MethodPatch, "/orders/"+o.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, orders.StatusPaid, decode[orders.Order](t, rec).Status)

	rec = api.do(http.MethodPatch, "/orders/"+o.ID, map[string]string{"status": "PENDING"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPatch, "/orders/"+o.ID, map[string]string{"status": "SHIPPED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/orders/deliver", map[string]string{"orderId": o.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orders.StatusDelivered, decode[orders.Order](t, rec).Status)

	rec = api.do(http.MethodGet, "/orders/"+o.ID+"/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"DELIVERED"`)

	rec = api.do(http.MethodPost, "/orders/cancel", map[string]string{"orderId": o.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodDelete, "/orders/"+o.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodGet, "/orders/"+o.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrders_ListNewestFirst(t *testing.T) {
	api := newTestAPI(t, "")
	a := api.createMeal("A", "10.00", 400)
	require.Equal(t, http.StatusCreated, api.createOrder("user_1", line(a.ID, 1)).Code)
	require.Equal(t, http.StatusCreated, api.createOrder("user_2", line(a.ID, 3)).Code)

	rec := api.do(http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]orders.Order](t, rec), 2)

	rec = api.do(http.MethodGet, "/orders?userId=user_2", nil)
	list := decode[[]orders.Order](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, money.Money(3000), list[0].Total)
}

func TestMeals_DeleteReferencedConflicts(t *testing.T) {
	api := newTestAPI(t, "")
	a := api.createMeal("A", "10.00", 400)
	require.Equal(t, http.StatusCreated, api.createOrder("user_1", line(a.ID, 1)).Code)

	rec := api.do(http.MethodDelete, "/meals/"+a.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/meals/"+a.ID, nil).Code)
}

func TestWebhook_DuplicateDeliveryStaysPaid(t *testing.T) {
	api := newTestAPI(t, "")
	a := api.createMeal("A", "10.00", 400)
	o := decode[orders.Order](t, api.createOrder("user_1", line(a.ID, 1)))

	body := `{"id":"evt_1","orderId":"` + o.ID + `","completed":true}`
	for i := 0; i < 2; i++ {
		rec := api.do(http.MethodPost, "/webhooks/payment", body, "Stripe-Signature", "good")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	got := decode[orders.Order](t, api.do(http.MethodGet, "/orders/"+o.ID, nil))
	assert.Equal(t, orders.StatusPaid, got.Status)

	// a distinct event for the same order is also harmless
	rec := api.do(http.MethodPost, "/webhooks/payment",
		`{"id":"evt_2","orderId":"`+o.ID+`","completed":true}`, "Stripe-Signature", "good")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhook_BadSignatureChangesNothing(t *testing.T) {
	api := newTestAPI(t, "")
	a := api.createMeal("A", "10.00", 400)
	o := decode[orders.Order](t, api.createOrder("user_1", line(a.ID, 1)))

	rec := api.do(http.MethodPost, "/webhooks/payment",
		`{"id":"evt_1","orderId":"`+o.ID+`","completed":true}`, "Stripe-Signature", "forged")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	got := decode[orders.Order](t, api.do(http.MethodGet, "/orders/"+o.ID, nil))
	assert.Equal(t, orders.StatusPending, got.Status)
}

func TestWebhook_UnknownOrderAcknowledged(t *testing.T) {
	api := newTestAPI(t, "")
	rec := api.do(http.MethodPost, "/webhooks/payment",
		`{"id":"evt_9","orderId":"00000000-0000-0000-0000-000000000000","completed":true}`, "Stripe-Signature", "good")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckout(t *testing.T) {
	api := newTestAPI(t, "")
	a := api.createMeal("A", "10.00", 400)
	o := decode[orders.Order](t, api.createOrder("user_1", line(a.ID, 2)))

	rec := api.do(http.MethodPost, "/checkout", map[string]string{"orderId": o.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "https://pay.example/cs_"+o.ID, decode[map[string]string](t, rec)["url"])
	require.Len(t, api.provider.lastLines, 1)
	assert.Equal(t, payment.CheckoutLine{Name: "A", UnitPrice: 1000, Quantity: 2}, api.provider.lastLines[0])

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/checkout", map[string]string{}).Code)
	assert.Equal(t, http.StatusNotFound,
		api.do(http.MethodPost, "/checkout", map[string]string{"orderId": "00000000-0000-0000-0000-000000000000"}).Code)

	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/orders/pay", map[string]string{"orderId": o.ID}).Code)
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/checkout", map[string]string{"orderId": o.ID}).Code)
}

func TestNutritionProfileAndRecommendations(t *testing.T) {
	api := newTestAPI(t, "")
	api.createMeal("Light", "8.00", 300)
	api.createMeal("Target", "12.00", 600)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/nutrition-profile", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/nutrition-profile?userId=u1", nil).Code)

	rec := api.do(http.MethodGet, "/recommendations?userId=u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	generic := decode[nutrition.Recommendation](t, rec)
	assert.Equal(t, nutrition.NoteGeneric, generic.Note)
	assert.Equal(t, "Light", generic.Recommendations[0].Name)

	rec = api.do(http.MethodPost, "/nutrition-profile?userId=u1", map[string]any{"caloriesPerDay": 2000, "goal": "maintain"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = api.do(http.MethodPost, "/nutrition-profile?userId=u1", map[string]any{"caloriesPerDay": 2000, "lactoseFree": true})
	require.Equal(t, http.StatusOK, rec.Code)

	p := decode[nutrition.Profile](t, api.do(http.MethodGet, "/nutrition-profile?userId=u1", nil))
	assert.Equal(t, "maintain", *p.Goal)
	assert.True(t, p.LactoseFree)

	rec = api.do(http.MethodGet, "/recommendations?userId=u1", nil)
	targeted := decode[nutrition.Recommendation](t, rec)
	assert.Equal(t, "Target", targeted.Recommendations[0].Name)

	assert.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/nutrition-profile?userId=u1", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/nutrition-profile?userId=u1", nil).Code)
}

func TestNutritionProfile_UserIDInBody(t *testing.T) {
	api := newTestAPI(t, "")

	rec := api.do(http.MethodPost, "/nutrition-profile", map[string]any{"userId": "u2", "caloriesPerDay": 1800})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "u2", decode[nutrition.Profile](t, rec).UserID)

	p := decode[nutrition.Profile](t, api.do(http.MethodGet, "/nutrition-profile?userId=u2", nil))
	require.NotNil(t, p.CaloriesPerDay)
	assert.Equal(t, 1800, *p.CaloriesPerDay)

	// query wins over body
	rec = api.do(http.MethodPost, "/nutrition-profile?userId=u3", map[string]any{"userId": "u2", "caloriesPerDay": 2200})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u3", decode[nutrition.Profile](t, rec).UserID)

	assert.Equal(t, http.StatusBadRequest,
		api.do(http.MethodPost, "/nutrition-profile", map[string]any{"caloriesPerDay": 1800}).Code)
}

func TestNutritionProfile_BodyUserIDStillAuthorized(t *testing.T) {
	const secret = "s3cret"
	api := newTestAPI(t, secret)
	alice := token(t, secret, "alice", "")

	rec := api.do(http.MethodPost, "/nutrition-profile", map[string]any{"userId": "bob", "caloriesPerDay": 1800},
		"Authorization", alice)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func token(t *testing.T, secret, sub, role string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub, "email": sub + "@fitmeal.test"}
	if role != "" {
		claims["role"] = role
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + s
}

func TestAuth_AdminAndOwnership(t *testing.T) {
	const secret = "s3cret"
	api := newTestAPI(t, secret)
	admin := token(t, secret, "admin_1", "admin")
	alice := token(t, secret, "alice", "")

	mealBody := `{"name":"A","price":10}`
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/meals", mealBody).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/meals", mealBody, "Authorization", alice).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/meals", mealBody, "Authorization", "Bearer junk").Code)

	rec := api.do(http.MethodPost, "/meals", mealBody, "Authorization", admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	meal := decode[catalog.Meal](t, rec)

	body := map[string]any{"userId": "bob", "items": []map[string]any{line(meal.ID, 1)}}
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/orders", body, "Authorization", alice).Code)

	body["userId"] = ""
	rec = api.do(http.MethodPost, "/orders", body, "Authorization", alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	o := decode[orders.Order](t, rec)
	assert.Equal(t, "alice", o.User.ExternalID)
	assert.Equal(t, "alice@fitmeal.test", o.User.Email)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/orders/pay",
		map[string]string{"orderId": o.ID}, "Authorization", alice).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/orders/"+o.ID, nil, "Authorization", alice).Code)
	assert.Equal(t, http.StatusForbidden,
		api.do(http.MethodGet, "/orders?userId=bob", nil, "Authorization", alice).Code)
}
