package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/storefront-orders/middlewares"
	"github.com/yeremiapane/storefront-orders/models"
	"github.com/yeremiapane/storefront-orders/services"
	"github.com/yeremiapane/storefront-orders/utils"
)

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

// GetOrders supports ?search=, ?status=, ?page= and ?page_size=.
func (oc *OrderController) GetOrders(c *gin.Context) {
	filter := services.ListFilter{Search: c.Query("search")}
	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		filter.Status = status
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	tenant := middlewares.CurrentTenant(c)
	result, err := oc.Orders.List(c.Request.Context(), tenant.ID, filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", result)
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	tenant := middlewares.CurrentTenant(c)
	order, err := oc.Orders.GetByID(c.Request.Context(), tenant.ID, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	next, err := models.ParseStatus(req.Status)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	tenant := middlewares.CurrentTenant(c)
	order, err := oc.Orders.ChangeStatus(c.Request.Context(), tenant.ID, id, next, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

type paymentRequest struct {
	PaymentMethod string   `json:"payment_method" binding:"required"`
	CashTendered  *float64 `json:"cash_tendered"`
}

var errUnknownPaymentMethod = errors.New("payment_method must be cash or terminal")

func (oc *OrderController) UpdatePayment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	method := models.PaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		utils.RespondError(c, http.StatusBadRequest, errUnknownPaymentMethod)
		return
	}

	tenant := middlewares.CurrentTenant(c)
	order, err := oc.Orders.UpdatePayment(c.Request.Context(), tenant.ID, id, method, req.CashTendered)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment updated", order)
}
