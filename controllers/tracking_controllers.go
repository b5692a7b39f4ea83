package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/yeremiapane/storefront-orders/middlewares"
	"github.com/yeremiapane/storefront-orders/services"
	"github.com/yeremiapane/storefront-orders/utils"
)

const qrSize = 256

type TrackingController struct {
	Orders *services.OrderService
}

func NewTrackingController(orders *services.OrderService) *TrackingController {
	return &TrackingController{Orders: orders}
}

// Track looks an order up by phone number and tracking code. Both must match.
func (tc *TrackingController) Track(c *gin.Context) {
	tenant := middlewares.CurrentTenant(c)
	order, err := tc.Orders.FindByTrackingCode(c.Request.Context(), tenant.ID, c.Query("phone"), c.Query("code"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order found", order)
}

// QRCode renders the tracking code as a PNG so it can be scanned from a receipt.
func (tc *TrackingController) QRCode(c *gin.Context) {
	tenant := middlewares.CurrentTenant(c)
	order, err := tc.Orders.FindByTrackingCode(c.Request.Context(), tenant.ID, c.Query("phone"), c.Param("code"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	png, err := qrcode.Encode(order.TrackingCode, qrcode.Medium, qrSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
