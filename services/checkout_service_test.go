package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yeremiapane/storefront-orders/models"
	"github.com/yeremiapane/storefront-orders/session"
)

type checkoutFixture struct {
	db       *gorm.DB
	tenant   *models.Tenant
	orders   *OrderService
	settings *SettingsService
	catalog  *CatalogService
	checkout *CheckoutService
	store    *session.Store
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	db := setupTestDB(t)
	f := &checkoutFixture{
		db:       db,
		tenant:   createTenant(t, db, "taqueria"),
		settings: NewSettingsService(db, quietLogger()),
		catalog:  NewCatalogService(db),
		store:    session.NewStore(0),
	}
	f.orders = NewOrderService(db, &recordingPublisher{}, quietLogger(), 10)
	f.checkout = NewCheckoutService(f.orders, f.settings, quietLogger())
	return f
}

func (f *checkoutFixture) menuItem(t *testing.T, item models.MenuItem) models.MenuItem {
	t.Helper()
	item.Available = true
	created, err := f.catalog.Create(context.Background(), f.tenant.ID, item)
	require.NoError(t, err)
	return *created
}

func validSubmit() SubmitInput {
	return SubmitInput{
		Customer:      CustomerInfo{Name: "Ana", Phone: "(555) 123-4567", Address: "Calle 5 #12"},
		PaymentMethod: models.PaymentCash,
	}
}

func TestCheckoutWithExtrasEndToEnd(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	group, err := f.settings.CreateOptionGroup(ctx, f.tenant.ID, OptionGroupInput{
		Name:    "Temperature",
		Options: []string{"Rare", "Well-done"},
	})
	require.NoError(t, err)
	steak := f.menuItem(t, models.MenuItem{Name: "Steak", Price: 50, PiecesPerUnit: 3, ExtraGroupIDs: []uint{group.ID}})

	sess, _ := f.store.GetOrCreate(f.tenant.ID, "")
	sess.Cart.Add(CartItem(steak), 2)

	_, _, err = f.checkout.Submit(ctx, sess, validSubmit())
	assert.ErrorIs(t, err, ErrExtrasPending)

	wiz, err := f.checkout.Start(ctx, sess)
	require.NoError(t, err)
	view, ok := wiz.Current()
	require.True(t, ok)
	assert.Equal(t, 6, view.Slots)

	for i := 0; i < 4; i++ {
		require.NoError(t, wiz.Increment("Rare"))
	}
	require.NoError(t, wiz.Increment("Well-done"))
	require.NoError(t, wiz.Increment("Well-done"))
	require.NoError(t, wiz.Confirm(sess.Cart))
	require.True(t, wiz.Done())

	order, replayed, err := f.checkout.Submit(ctx, sess, validSubmit())
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, 100.0, order.Total)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "Steak [Temperature: Rare x4, Well-done x2]", order.Lines[0].Description)
	assert.Equal(t, "5551234567", order.Phone)

	assert.True(t, sess.Cart.Empty())
	assert.Nil(t, sess.Wizard)
}

func TestCheckoutWithoutExtrasNeedsNoWizard(t *testing.T) {
	f := newCheckoutFixture(t)
	drink := f.menuItem(t, models.MenuItem{Name: "Agua", Price: 20})

	sess, _ := f.store.GetOrCreate(f.tenant.ID, "")
	sess.Cart.Add(CartItem(drink), 1)

	order, _, err := f.checkout.Submit(context.Background(), sess, validSubmit())
	require.NoError(t, err)
	assert.Equal(t, 20.0, order.Total)
}

func TestRestartingCheckoutDropsEarlierSelections(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	groups, err := f.settings.OptionGroups(ctx, f.tenant.ID)
	require.NoError(t, err)
	guisos := groups[0]
	guisos.Options = []string{"Tinga"}
	require.NoError(t, f.settings.db.Save(&guisos).Error)

	taco := f.menuItem(t, models.MenuItem{Name: "Taco", Price: 20, RequiresGroupA: true, RequiresGroupB: true})
	sess, _ := f.store.GetOrCreate(f.tenant.ID, "")
	sess.Cart.Add(CartItem(taco), 1)

	wiz, err := f.checkout.Start(ctx, sess)
	require.NoError(t, err)
	require.NoError(t, wiz.Increment("Tinga"))
	require.NoError(t, wiz.Confirm(sess.Cart))
	wiz.Cancel()
	assert.Equal(t, "Guisos: Tinga x1", sess.Cart.Items()[0].Details)

	_, _, err = f.checkout.Submit(ctx, sess, validSubmit())
	assert.ErrorIs(t, err, ErrExtrasPending)

	wiz, err = f.checkout.Start(ctx, sess)
	require.NoError(t, err)
	assert.Empty(t, sess.Cart.Items()[0].Details)
	assert.Equal(t, 2, wiz.Remaining())
}

func TestCheckoutValidationKeepsCart(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	_, err := f.settings.Update(ctx, f.tenant.ID, models.TenantSettings{
		Payment:  models.PaymentSettings{Cash: true},
		Delivery: models.DeliverySettings{PostalCodes: []string{"44100"}},
	})
	require.NoError(t, err)
	drink := f.menuItem(t, models.MenuItem{Name: "Agua", Price: 20})

	short := 10.0
	tests := []struct {
		name   string
		mutate func(*SubmitInput)
		field  string
	}{
		{"missing name", func(in *SubmitInput) { in.Customer.Name = " " }, "name"},
		{"short phone", func(in *SubmitInput) { in.Customer.Phone = "12345" }, "phone"},
		{"long phone", func(in *SubmitInput) { in.Customer.Phone = "1234567890123456" }, "phone"},
		{"missing address", func(in *SubmitInput) { in.Customer.Address = "" }, "address"},
		{"missing postal code", func(in *SubmitInput) {}, "postal_code"},
		{"outside delivery area", func(in *SubmitInput) { in.Customer.PostalCode = "99999" }, "postal_code"},
		{"terminal disabled", func(in *SubmitInput) {
			in.Customer.PostalCode = "44100"
			in.PaymentMethod = models.PaymentTerminal
		}, "payment_method"},
		{"cash below total", func(in *SubmitInput) {
			in.Customer.PostalCode = "44100"
			in.CashTendered = &short
		}, "cash_tendered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, _ := f.store.GetOrCreate(f.tenant.ID, "")
			sess.Cart.Add(CartItem(drink), 1)

			in := validSubmit()
			tt.mutate(&in)
			_, _, err := f.checkout.Submit(ctx, sess, in)
			require.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, 1, sess.Cart.Len())

			sess.Lock()
			assert.NoError(t, sess.BeginSubmit())
			sess.Unlock()
		})
	}
}

func TestCheckoutRejectsEmptyCartAndConcurrentSubmit(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	sess, _ := f.store.GetOrCreate(f.tenant.ID, "")
	_, _, err := f.checkout.Submit(ctx, sess, validSubmit())
	assert.ErrorIs(t, err, ErrEmptyCart)
	_, err = f.checkout.Start(ctx, sess)
	assert.ErrorIs(t, err, ErrEmptyCart)

	drink := f.menuItem(t, models.MenuItem{Name: "Agua", Price: 20})
	sess.Cart.Add(CartItem(drink), 1)

	sess.Lock()
	require.NoError(t, sess.BeginSubmit())
	sess.Unlock()

	_, _, err = f.checkout.Submit(ctx, sess, validSubmit())
	assert.ErrorIs(t, err, session.ErrSubmitInProgress)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, 1, sess.Cart.Len())
}

func TestCheckoutIdempotencyKeyReplays(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	drink := f.menuItem(t, models.MenuItem{Name: "Agua", Price: 20})

	in := validSubmit()
	in.IdempotencyKey = "tab-1"

	first, _ := f.store.GetOrCreate(f.tenant.ID, "")
	first.Cart.Add(CartItem(drink), 1)
	created, replayed, err := f.checkout.Submit(ctx, first, in)
	require.NoError(t, err)
	assert.False(t, replayed)

	second, _ := f.store.GetOrCreate(f.tenant.ID, "")
	second.Cart.Add(CartItem(drink), 1)
	again, replayed, err := f.checkout.Submit(ctx, second, in)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, created.ID, again.ID)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(invalid("name", "is required")))
	assert.False(t, IsRetryable(ErrExtrasPending))
	assert.True(t, IsRetryable(ErrTrackingCodeExhausted))
	assert.True(t, IsRetryable(assert.AnError))
}

func TestSubmitKeepsItemsAddedWhileOrderIsWritten(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	drink := f.menuItem(t, models.MenuItem{Name: "Agua", Price: 20})
	taco := f.menuItem(t, models.MenuItem{Name: "Taco", Price: 30})

	sess, _ := f.store.GetOrCreate(f.tenant.ID, "")
	sess.Cart.Add(CartItem(drink), 2)

	var added bool
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:cart_change_during_submit", func(tx *gorm.DB) {
		if added || tx.Statement.Table != "orders" {
			return
		}
		added = true
		sess.Lock()
		assert.True(t, sess.Submitting())
		sess.Cart.Add(CartItem(taco), 1)
		sess.Cart.Add(CartItem(drink), 1)
		sess.Unlock()
	}))
	t.Cleanup(func() { _ = f.db.Callback().Create().Remove("test:cart_change_during_submit") })

	order, _, err := f.checkout.Submit(ctx, sess, validSubmit())
	require.NoError(t, err)
	require.True(t, added)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 2, order.Lines[0].Quantity)

	items := sess.Cart.Items()
	require.Len(t, items, 2)
	assert.Equal(t, drink.ID, items[0].ID)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, taco.ID, items[1].ID)
	assert.False(t, sess.Submitting())
}

func TestStartIsRejectedWhileSubmitting(t *testing.T) {
	f := newCheckoutFixture(t)
	drink := f.menuItem(t, models.MenuItem{Name: "Agua", Price: 20})
	sess, _ := f.store.GetOrCreate(f.tenant.ID, "")
	sess.Cart.Add(CartItem(drink), 1)

	sess.Lock()
	defer sess.Unlock()
	require.NoError(t, sess.BeginSubmit())
	_, err := f.checkout.Start(context.Background(), sess)
	assert.ErrorIs(t, err, session.ErrSubmitInProgress)
}

func TestOversizedIdempotencyKeyIsRejected(t *testing.T) {
	f := newCheckoutFixture(t)
	drink := f.menuItem(t, models.MenuItem{Name: "Agua", Price: 20})
	sess, _ := f.store.GetOrCreate(f.tenant.ID, "")
	sess.Cart.Add(CartItem(drink), 1)

	in := validSubmit()
	in.IdempotencyKey = strings.Repeat("k", models.IdempotencyKeyMaxLen+1)
	_, _, err := f.checkout.Submit(context.Background(), sess, in)
	require.ErrorIs(t, err, ErrValidation)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, 1, sess.Cart.Len())

	in.IdempotencyKey = "  " + strings.Repeat("k", models.IdempotencyKeyMaxLen) + "  "
	_, replayed, err := f.checkout.Submit(context.Background(), sess, in)
	require.NoError(t, err)
	assert.False(t, replayed)
}
