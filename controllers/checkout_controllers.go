package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/storefront-orders/extras"
	"github.com/yeremiapane/storefront-orders/middlewares"
	"github.com/yeremiapane/storefront-orders/models"
	"github.com/yeremiapane/storefront-orders/services"
	"github.com/yeremiapane/storefront-orders/session"
	"github.com/yeremiapane/storefront-orders/utils"
)

type CheckoutController struct {
	Checkout *services.CheckoutService
}

func NewCheckoutController(checkout *services.CheckoutService) *CheckoutController {
	return &CheckoutController{Checkout: checkout}
}

// wizardView is returned by every extras action. Step is nil once the flow is
// finished or cancelled.
type wizardView struct {
	Done      bool             `json:"done"`
	Cancelled bool             `json:"cancelled"`
	Remaining int              `json:"remaining"`
	Step      *extras.StepView `json:"step,omitempty"`
	Cart      cartView         `json:"cart"`
}

func wizardOf(sess *session.Session) wizardView {
	v := wizardView{Cart: viewOf(sess)}
	w := sess.Wizard
	if w == nil {
		return v
	}
	v.Done = w.Done()
	v.Cancelled = w.Cancelled()
	v.Remaining = w.Remaining()
	if step, ok := w.Current(); ok {
		v.Step = &step
	}
	return v
}

func (cc *CheckoutController) Start(c *gin.Context) {
	sess := middlewares.CurrentSession(c)
	sess.Lock()
	defer sess.Unlock()
	if _, err := cc.Checkout.Start(c.Request.Context(), sess); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Checkout started", wizardOf(sess))
}

func (cc *CheckoutController) CurrentStep(c *gin.Context) {
	sess := middlewares.CurrentSession(c)
	sess.Lock()
	defer sess.Unlock()
	if sess.Wizard == nil {
		respondServiceError(c, extras.ErrNoActiveStep)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Checkout step", wizardOf(sess))
}

type optionRequest struct {
	Option string `json:"option" binding:"required"`
}

func (cc *CheckoutController) Increment(c *gin.Context) {
	cc.withOption(c, (*extras.Wizard).Increment)
}

func (cc *CheckoutController) Decrement(c *gin.Context) {
	cc.withOption(c, (*extras.Wizard).Decrement)
}

func (cc *CheckoutController) withOption(c *gin.Context, apply func(*extras.Wizard, string) error) {
	var req optionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	cc.step(c, func(sess *session.Session) error {
		return apply(sess.Wizard, req.Option)
	})
}

func (cc *CheckoutController) Confirm(c *gin.Context) {
	cc.step(c, func(sess *session.Session) error {
		return sess.Wizard.Confirm(sess.Cart)
	})
}

func (cc *CheckoutController) Skip(c *gin.Context) {
	cc.step(c, func(sess *session.Session) error {
		return sess.Wizard.Skip()
	})
}

// Cancel aborts the extras flow. Selections already confirmed stay on the cart
// until the next checkout starts.
func (cc *CheckoutController) Cancel(c *gin.Context) {
	cc.step(c, func(sess *session.Session) error {
		sess.Wizard.Cancel()
		return nil
	})
}

func (cc *CheckoutController) step(c *gin.Context, action func(*session.Session) error) {
	sess := middlewares.CurrentSession(c)
	sess.Lock()
	defer sess.Unlock()
	if sess.Wizard == nil {
		respondServiceError(c, extras.ErrNoActiveStep)
		return
	}
	if err := action(sess); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Checkout step", wizardOf(sess))
}

type submitRequest struct {
	Name          string   `json:"name"`
	Phone         string   `json:"phone"`
	Address       string   `json:"address"`
	PostalCode    string   `json:"postal_code"`
	Notes         string   `json:"notes"`
	PaymentMethod string   `json:"payment_method" binding:"required"`
	CashTendered  *float64 `json:"cash_tendered"`
}

// Submit turns the session's cart into an order. A failure that may have been
// transient is reported as retryable and leaves the cart in place.
func (cc *CheckoutController) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	sess := middlewares.CurrentSession(c)
	if sess == nil {
		utils.RespondError(c, http.StatusBadRequest, errNoSession)
		return
	}

	order, replayed, err := cc.Checkout.Submit(c.Request.Context(), sess, services.SubmitInput{
		Customer: services.CustomerInfo{
			Name:       req.Name,
			Phone:      req.Phone,
			Address:    req.Address,
			PostalCode: req.PostalCode,
			Notes:      req.Notes,
		},
		PaymentMethod:  models.PaymentMethod(req.PaymentMethod),
		CashTendered:   req.CashTendered,
		IdempotencyKey: c.GetHeader(middlewares.IdempotencyHeader),
	})
	if err != nil {
		if services.IsRetryable(err) && statusFor(err) == http.StatusInternalServerError {
			_ = c.Error(err)
			utils.RespondError(c, http.StatusServiceUnavailable, errOrderNotConfirmed)
			return
		}
		respondServiceError(c, err)
		return
	}

	if replayed {
		utils.RespondJSON(c, http.StatusOK, "Order already placed", order)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order placed", order)
}
