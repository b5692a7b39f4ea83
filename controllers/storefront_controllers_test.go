package controllers_test

import (
	"bytes"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/storefront-orders/cart"
	"github.com/yeremiapane/storefront-orders/middlewares"
	"github.com/yeremiapane/storefront-orders/models"
)

type cartResponse struct {
	SessionID string `json:"session_id"`
	Items     []struct {
		ID       uint    `json:"id"`
		Name     string  `json:"name"`
		Quantity int     `json:"quantity"`
		Details  string  `json:"details"`
		Price    float64 `json:"unit_price"`
	} `json:"items"`
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

type stepResponse struct {
	Done      bool `json:"done"`
	Cancelled bool `json:"cancelled"`
	Remaining int  `json:"remaining"`
	Step      *struct {
		Slots      int            `json:"slots_required"`
		Counters   map[string]int `json:"counters"`
		Selected   int            `json:"selected"`
		CanConfirm bool           `json:"can_confirm"`
	} `json:"step"`
}

func (e *testEnv) menuItem(item map[string]interface{}) models.MenuItem {
	e.t.Helper()
	w, resp := e.admin(http.MethodPost, "/menu", item)
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	var created models.MenuItem
	decode(e.t, resp.Data, &created)
	return created
}

func TestPublicMenuHidesUnavailableItems(t *testing.T) {
	env := newTestEnv(t)
	env.menuItem(map[string]interface{}{"name": "Gordita", "price": 25, "available": true})
	env.menuItem(map[string]interface{}{"name": "Secret", "price": 99})

	w, resp := env.do(call{method: http.MethodGet, path: "/t/taqueria/menu"})
	require.Equal(t, http.StatusOK, w.Code)
	var items []models.MenuItem
	decode(t, resp.Data, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "Gordita", items[0].Name)

	w, _ = env.do(call{method: http.MethodGet, path: "/t/unknown/menu"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartOperations(t *testing.T) {
	env := newTestEnv(t)
	item := env.menuItem(map[string]interface{}{"name": "Gordita", "price": 50, "available": true})
	s := &shopper{env: env}

	w, resp := s.do(http.MethodPost, "/cart/items", map[string]interface{}{"menu_item_id": item.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotEmpty(t, s.sessionID)

	w, resp = s.do(http.MethodPost, "/cart/items", map[string]interface{}{"menu_item_id": item.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code)
	var view cartResponse
	decode(t, resp.Data, &view)
	assert.Equal(t, s.sessionID, view.SessionID)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, 100.0, view.Total)

	other := &shopper{env: env}
	w, resp = other.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var empty cartResponse
	decode(t, resp.Data, &empty)
	assert.Zero(t, empty.Count)
	assert.NotEqual(t, s.sessionID, other.sessionID)

	w, resp = s.do(http.MethodPatch, "/cart/items/"+uintStr(item.ID), map[string]interface{}{"quantity": 0})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, resp.Data, &view)
	assert.Zero(t, view.Count)
	assert.Zero(t, view.Total)

	w, _ = s.do(http.MethodPatch, "/cart/items/"+uintStr(item.ID), map[string]interface{}{"quantity": 3})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodPost, "/cart/items", map[string]interface{}{"menu_item_id": 999})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutWithExtrasAndTracking(t *testing.T) {
	env := newTestEnv(t)
	w, resp := env.admin(http.MethodPost, "/option-groups", map[string]interface{}{
		"name":    "Temperature",
		"options": []string{"Rare", "Well-done"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var group models.OptionGroup
	decode(t, resp.Data, &group)

	steak := env.menuItem(map[string]interface{}{
		"name": "Steak", "price": 50, "available": true,
		"pieces_per_unit": 3, "extra_group_ids": []uint{group.ID},
	})

	s := &shopper{env: env}
	w, _ = s.do(http.MethodPost, "/cart/items", map[string]interface{}{"menu_item_id": steak.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)

	submit := map[string]interface{}{
		"name": "Ana", "phone": "555 123 4567", "address": "Calle 5 #12", "payment_method": "cash",
	}
	w, _ = s.do(http.MethodPost, "/checkout/submit", submit)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, resp = s.do(http.MethodPost, "/checkout/start", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var step stepResponse
	decode(t, resp.Data, &step)
	require.NotNil(t, step.Step)
	assert.Equal(t, 6, step.Step.Slots)

	for i := 0; i < 4; i++ {
		w, _ = s.do(http.MethodPost, "/checkout/step/increment", map[string]string{"option": "Rare"})
		require.Equal(t, http.StatusOK, w.Code)
	}
	w, _ = s.do(http.MethodPost, "/checkout/step/confirm", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	for i := 0; i < 2; i++ {
		w, _ = s.do(http.MethodPost, "/checkout/step/increment", map[string]string{"option": "Well-done"})
		require.Equal(t, http.StatusOK, w.Code)
	}
	w, _ = s.do(http.MethodPost, "/checkout/step/increment", map[string]string{"option": "Rare"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, resp = s.do(http.MethodPost, "/checkout/step/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, resp.Data, &step)
	assert.True(t, step.Done)
	assert.Nil(t, step.Step)

	w, resp = s.do(http.MethodPost, "/checkout/submit", submit)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	decode(t, resp.Data, &order)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, order.TrackingCode)
	assert.Equal(t, 100.0, order.Total)
	assert.Equal(t, models.StatusPending, order.Status)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "Steak [Temperature: Rare x4, Well-done x2]", order.Lines[0].Description)

	w, resp = s.do(http.MethodGet, "/cart", nil)
	var view cartResponse
	decode(t, resp.Data, &view)
	assert.Zero(t, view.Count)

	w, resp = env.do(call{method: http.MethodGet, path: "/t/taqueria/track?phone=5551234567&code=" + order.TrackingCode})
	require.Equal(t, http.StatusOK, w.Code)
	var tracked models.Order
	decode(t, resp.Data, &tracked)
	assert.Equal(t, order.ID, tracked.ID)
	assert.Equal(t, "Pending", tracked.StatusLabel)

	w, _ = env.do(call{method: http.MethodGet, path: "/t/taqueria/track?phone=0000000000&code=" + order.TrackingCode})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = env.do(call{method: http.MethodGet, path: "/t/taqueria/track/" + order.TrackingCode + "/qr.png?phone=5551234567"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	_, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	assert.NoError(t, err)
}

func TestSubmitValidationKeepsCart(t *testing.T) {
	env := newTestEnv(t)
	drink := env.menuItem(map[string]interface{}{"name": "Agua", "price": 20, "available": true})
	s := &shopper{env: env}
	s.do(http.MethodPost, "/cart/items", map[string]interface{}{"menu_item_id": drink.ID})

	w, resp := s.do(http.MethodPost, "/checkout/submit", map[string]interface{}{
		"name": "Ana", "phone": "123", "address": "Calle 5", "payment_method": "cash",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var field struct {
		Field string `json:"field"`
	}
	decode(t, resp.Data, &field)
	assert.Equal(t, "phone", field.Field)

	w, _ = s.do(http.MethodPost, "/checkout/submit", map[string]interface{}{
		"name": "Ana", "phone": "5551234567", "address": "Calle 5", "payment_method": "terminal",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, resp = s.do(http.MethodGet, "/cart", nil)
	var view cartResponse
	decode(t, resp.Data, &view)
	assert.Equal(t, 1, view.Count)
}

func TestSubmitWithIdempotencyKeyReplays(t *testing.T) {
	env := newTestEnv(t)
	drink := env.menuItem(map[string]interface{}{"name": "Agua", "price": 20, "available": true})
	form := map[string]interface{}{"name": "Ana", "phone": "5551234567", "address": "Calle 5", "payment_method": "cash"}

	first := &shopper{env: env}
	first.do(http.MethodPost, "/cart/items", map[string]interface{}{"menu_item_id": drink.ID})
	w, resp := first.do(http.MethodPost, "/checkout/submit", form, middlewares.IdempotencyHeader, "click-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Order
	decode(t, resp.Data, &created)

	retry := &shopper{env: env}
	retry.do(http.MethodPost, "/cart/items", map[string]interface{}{"menu_item_id": drink.ID})
	w, resp = retry.do(http.MethodPost, "/checkout/submit", form, middlewares.IdempotencyHeader, "click-1")
	require.Equal(t, http.StatusOK, w.Code)
	var replayed models.Order
	decode(t, resp.Data, &replayed)
	assert.Equal(t, created.ID, replayed.ID)
}

func TestWizardActionsWithoutCheckout(t *testing.T) {
	env := newTestEnv(t)
	s := &shopper{env: env}

	w, _ := s.do(http.MethodGet, "/checkout/step", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(http.MethodPost, "/checkout/start", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w, _ = s.do(http.MethodPost, "/checkout/step/increment", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartIsFrozenWhileOrderIsSubmitted(t *testing.T) {
	env := newTestEnv(t)
	item := env.menuItem(map[string]interface{}{"name": "Gordita", "price": 50, "available": true})
	s := &shopper{env: env}

	w, _ := s.do(http.MethodPost, "/cart/items", map[string]interface{}{"menu_item_id": item.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code)

	sess, ok := env.sessions.Get(env.tenant.ID, s.sessionID)
	require.True(t, ok)
	sess.Lock()
	require.NoError(t, sess.BeginSubmit())
	sess.Unlock()

	mutations := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodPost, "/cart/items", map[string]interface{}{"menu_item_id": item.ID, "quantity": 1}},
		{http.MethodPatch, "/cart/items/" + uintStr(item.ID), map[string]interface{}{"quantity": 5}},
		{http.MethodDelete, "/cart/items/" + uintStr(item.ID), nil},
		{http.MethodDelete, "/cart", nil},
		{http.MethodPost, "/checkout/start", nil},
	}
	for _, m := range mutations {
		w, _ := s.do(m.method, m.path, m.body)
		assert.Equal(t, http.StatusConflict, w.Code, m.method+" "+m.path)
	}

	sess.Lock()
	sess.EndSubmit()
	sess.Unlock()

	w, resp := s.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view cartResponse
	decode(t, resp.Data, &view)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 1, view.Items[0].Quantity)
}

func TestCartRejectsQuantitiesAboveLimit(t *testing.T) {
	env := newTestEnv(t)
	item := env.menuItem(map[string]interface{}{"name": "Gordita", "price": 50, "available": true})
	s := &shopper{env: env}

	w, resp := s.do(http.MethodPost, "/cart/items", map[string]interface{}{"menu_item_id": item.ID, "quantity": cart.MaxQuantity + 1})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, string(resp.Data), "quantity")

	w, _ = s.do(http.MethodPost, "/cart/items", map[string]interface{}{"menu_item_id": item.ID, "quantity": cart.MaxQuantity})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodPost, "/cart/items", map[string]interface{}{"menu_item_id": item.ID, "quantity": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = s.do(http.MethodPatch, "/cart/items/"+uintStr(item.ID), map[string]interface{}{"quantity": 9223372036854775807})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, resp = s.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view cartResponse
	decode(t, resp.Data, &view)
	require.Len(t, view.Items, 1)
	assert.Equal(t, cart.MaxQuantity, view.Items[0].Quantity)
	assert.Equal(t, 50.0*cart.MaxQuantity, view.Total)
}

func TestSubmitRejectsOversizedIdempotencyKey(t *testing.T) {
	env := newTestEnv(t)
	item := env.menuItem(map[string]interface{}{"name": "Agua", "price": 20, "available": true})
	s := &shopper{env: env}
	w, _ := s.do(http.MethodPost, "/cart/items", map[string]interface{}{"menu_item_id": item.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code)

	form := map[string]interface{}{"name": "Ana", "phone": "5551234567", "address": "Calle 5", "payment_method": "cash"}
	w, resp := s.do(http.MethodPost, "/checkout/submit", form, middlewares.IdempotencyHeader, strings.Repeat("k", models.IdempotencyKeyMaxLen+1))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Contains(t, string(resp.Data), "idempotency_key")

	w, _ = s.do(http.MethodGet, "/cart", nil)
	assert.Contains(t, w.Body.String(), "Agua")
}
