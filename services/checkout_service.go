package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/storefront-orders/extras"
	"github.com/yeremiapane/storefront-orders/models"
	"github.com/yeremiapane/storefront-orders/session"
)

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

type SubmitInput struct {
	Customer       CustomerInfo         `json:"customer"`
	PaymentMethod  models.PaymentMethod `json:"payment_method"`
	CashTendered   *float64             `json:"cash_tendered"`
	IdempotencyKey string               `json:"-"`
}

// CheckoutService drives a session from a filled cart to a persisted order.
type CheckoutService struct {
	orders   *OrderService
	settings *SettingsService
	log      logrus.FieldLogger
}

func NewCheckoutService(orders *OrderService, settings *SettingsService, log logrus.FieldLogger) *CheckoutService {
	return &CheckoutService{orders: orders, settings: settings, log: log}
}

// Start plans the extras steps for the session's cart and installs a new wizard.
// Selections from an earlier, abandoned checkout are discarded first. The
// caller must hold the session lock.
func (s *CheckoutService) Start(ctx context.Context, sess *session.Session) (*extras.Wizard, error) {
	if sess.Submitting() {
		return nil, session.ErrSubmitInProgress
	}
	if sess.Cart.Empty() {
		return nil, ErrEmptyCart
	}
	groups, err := s.settings.OptionGroups(ctx, sess.TenantID)
	if err != nil {
		return nil, err
	}

	sess.ResetCheckout()
	sess.Cart.ResetDetails()
	steps := extras.Plan(sess.Cart.Items(), extras.NewGroups(groups), s.log.WithField("tenant_id", sess.TenantID))
	sess.Wizard = extras.NewWizard(steps)
	return sess.Wizard, nil
}

// Submit validates the form against the tenant settings and creates the order.
// Once the order is committed the ordered entries leave the cart. Submit takes the
// session lock itself and releases it while the order is written.
func (s *CheckoutService) Submit(ctx context.Context, sess *session.Session, in SubmitInput) (*models.Order, bool, error) {
	sess.Lock()
	if sess.Cart.Empty() {
		sess.Unlock()
		return nil, false, ErrEmptyCart
	}
	ready, err := s.extrasSettled(ctx, sess)
	if err != nil || !ready {
		sess.Unlock()
		if err == nil {
			err = ErrExtrasPending
		}
		return nil, false, err
	}
	if err := sess.BeginSubmit(); err != nil {
		sess.Unlock()
		return nil, false, err
	}
	items := sess.Cart.Items()
	total := roundCents(sess.Cart.Total())
	sess.Unlock()

	defer func() {
		sess.Lock()
		sess.EndSubmit()
		sess.Unlock()
	}()

	settings, err := s.settings.Get(ctx, sess.TenantID)
	if err != nil {
		return nil, false, err
	}
	customer, err := validateCustomer(in.Customer, settings)
	if err != nil {
		return nil, false, err
	}
	if !in.PaymentMethod.Valid() {
		return nil, false, invalid("payment_method", "must be cash or terminal")
	}
	if !settings.Accepts(in.PaymentMethod) {
		return nil, false, invalid("payment_method", "is not accepted by this store")
	}
	cash := in.CashTendered
	if in.PaymentMethod != models.PaymentCash {
		cash = nil
	}
	if cash != nil && *cash < total {
		return nil, false, invalid("cash_tendered", "is less than the order total")
	}

	order, replayed, err := s.orders.CreateOrder(ctx, sess.TenantID, CreateOrderInput{
		Customer:       customer,
		Items:          items,
		PaymentMethod:  in.PaymentMethod,
		CashTendered:   cash,
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		s.log.WithError(err).WithField("tenant_id", sess.TenantID).Error("order submission failed")
		return nil, false, err
	}

	sess.Lock()
	sess.Cart.RemoveOrdered(items)
	sess.ResetCheckout()
	sess.Unlock()
	return order, replayed, nil
}

// extrasSettled is true when the wizard finished, or when no wizard was started
// and the cart needs no extras at all.
func (s *CheckoutService) extrasSettled(ctx context.Context, sess *session.Session) (bool, error) {
	if sess.Wizard != nil {
		return sess.Wizard.Done(), nil
	}
	groups, err := s.settings.OptionGroups(ctx, sess.TenantID)
	if err != nil {
		return false, err
	}
	return len(extras.Plan(sess.Cart.Items(), extras.NewGroups(groups), s.log)) == 0, nil
}

func validateCustomer(c CustomerInfo, settings models.TenantSettings) (CustomerInfo, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Address = strings.TrimSpace(c.Address)
	c.PostalCode = strings.TrimSpace(c.PostalCode)
	c.Notes = strings.TrimSpace(c.Notes)
	c.Phone = NormalizePhone(c.Phone)

	if c.Name == "" {
		return c, invalid("name", "is required")
	}
	if n := len(c.Phone); n < minPhoneDigits || n > maxPhoneDigits {
		return c, invalid("phone", "must have between 7 and 15 digits")
	}
	if c.Address == "" {
		return c, invalid("address", "is required")
	}
	if len(settings.Delivery.PostalCodes) > 0 {
		if c.PostalCode == "" {
			return c, invalid("postal_code", "is required")
		}
		if !settings.ServesPostalCode(c.PostalCode) {
			return c, invalid("postal_code", "is outside the delivery area")
		}
	}
	return c, nil
}

// IsRetryable reports whether a checkout failure left nothing persisted and the
// customer can simply submit again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	for _, known := range []error{ErrValidation, ErrEmptyCart, ErrExtrasPending, session.ErrSubmitInProgress, ErrTenantNotFound} {
		if errors.Is(err, known) {
			return false
		}
	}
	return true
}
