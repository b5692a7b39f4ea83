package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/storefront-orders/extras"
	"github.com/yeremiapane/storefront-orders/services"
	"github.com/yeremiapane/storefront-orders/session"
	"github.com/yeremiapane/storefront-orders/utils"
)

var (
	errOrderNotConfirmed = errors.New("order was not confirmed, please retry")
	errInvalidID         = errors.New("invalid id")
	errNoSession         = errors.New("checkout session missing")
)

// statusFor maps service and wizard errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrExtrasPending):
		return http.StatusUnprocessableEntity
	case errors.Is(err, extras.ErrUnknownOption),
		errors.Is(err, extras.ErrBelowZero),
		errors.Is(err, extras.ErrSlotsExceeded),
		errors.Is(err, extras.ErrSingleChoice),
		errors.Is(err, extras.ErrNotConfirmable),
		errors.Is(err, extras.ErrNotSkippable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrTenantNotFound),
		errors.Is(err, services.ErrMenuItemNotFound),
		errors.Is(err, services.ErrOptionGroupNotFound),
		errors.Is(err, extras.ErrNoActiveStep):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrPaymentLocked),
		errors.Is(err, services.ErrConcurrentUpdate),
		errors.Is(err, services.ErrLegacyGroup),
		errors.Is(err, session.ErrSubmitInProgress),
		errors.Is(err, extras.ErrCartChanged):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// respondServiceError writes the envelope for err. Internal failures are logged
// and reported without their details.
func respondServiceError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		utils.RespondError(c, code, errors.New("internal server error"))
		return
	}
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		utils.RespondErrorDetail(c, code, verr, gin.H{"field": verr.Field, "reason": verr.Reason})
		return
	}
	utils.RespondError(c, code, err)
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, errInvalidID)
		return 0, false
	}
	return uint(id), true
}
