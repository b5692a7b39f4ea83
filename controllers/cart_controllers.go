package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/storefront-orders/cart"
	"github.com/yeremiapane/storefront-orders/middlewares"
	"github.com/yeremiapane/storefront-orders/services"
	"github.com/yeremiapane/storefront-orders/session"
	"github.com/yeremiapane/storefront-orders/utils"
)

var errItemNotInCart = errors.New("item is not in the cart")

func quantityTooLarge() error {
	return &services.ValidationError{Field: "quantity", Reason: fmt.Sprintf("must be at most %d", cart.MaxQuantity)}
}

// lockIdle locks the session for a cart change. While an order is being
// written from this session the cart is frozen and the caller gets a 409.
func lockIdle(c *gin.Context) (*session.Session, bool) {
	sess := middlewares.CurrentSession(c)
	sess.Lock()
	if sess.Submitting() {
		sess.Unlock()
		respondServiceError(c, session.ErrSubmitInProgress)
		return nil, false
	}
	return sess, true
}

type CartController struct {
	Catalog *services.CatalogService
}

func NewCartController(catalog *services.CatalogService) *CartController {
	return &CartController{Catalog: catalog}
}

type cartView struct {
	SessionID string      `json:"session_id"`
	Items     []cart.Item `json:"items"`
	Count     int         `json:"count"`
	Total     float64     `json:"total"`
}

func viewOf(sess *session.Session) cartView {
	return cartView{
		SessionID: sess.ID,
		Items:     sess.Cart.Items(),
		Count:     sess.Cart.Len(),
		Total:     sess.Cart.Total(),
	}
}

func (cc *CartController) GetCart(c *gin.Context) {
	sess := middlewares.CurrentSession(c)
	sess.Lock()
	defer sess.Unlock()
	utils.RespondJSON(c, http.StatusOK, "Cart", viewOf(sess))
}

type addItemRequest struct {
	MenuItemID uint   `json:"menu_item_id" binding:"required"`
	Quantity   int    `json:"quantity"`
	Comment    string `json:"comment"`
}

// AddItem snapshots the catalog entry into the cart. Adding an item already in
// the cart raises its quantity.
func (cc *CartController) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Quantity > cart.MaxQuantity {
		respondServiceError(c, quantityTooLarge())
		return
	}
	tenant := middlewares.CurrentTenant(c)
	item, err := cc.Catalog.Get(c.Request.Context(), tenant.ID, req.MenuItemID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !item.Available {
		respondServiceError(c, services.ErrMenuItemNotFound)
		return
	}

	sess, ok := lockIdle(c)
	if !ok {
		return
	}
	defer sess.Unlock()
	qty := req.Quantity
	if qty <= 0 {
		qty = 1
	}
	if sess.Cart.Quantity(item.ID)+qty > cart.MaxQuantity {
		respondServiceError(c, quantityTooLarge())
		return
	}
	sess.ResetCheckout()
	sess.Cart.Add(services.CartItem(*item), qty)
	if req.Comment != "" {
		sess.Cart.SetComment(item.ID, req.Comment)
	}
	utils.RespondJSON(c, http.StatusOK, "Item added", viewOf(sess))
}

type updateItemRequest struct {
	Quantity *int    `json:"quantity"`
	Comment  *string `json:"comment"`
}

// UpdateItem sets the quantity (zero or less removes the entry) and/or the comment.
func (cc *CartController) UpdateItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if req.Quantity != nil && *req.Quantity > cart.MaxQuantity {
		respondServiceError(c, quantityTooLarge())
		return
	}

	sess, ok := lockIdle(c)
	if !ok {
		return
	}
	defer sess.Unlock()
	if !inCart(sess.Cart, id) {
		utils.RespondError(c, http.StatusNotFound, errItemNotInCart)
		return
	}
	sess.ResetCheckout()
	if req.Comment != nil {
		sess.Cart.SetComment(id, *req.Comment)
	}
	if req.Quantity != nil {
		sess.Cart.UpdateQuantity(id, *req.Quantity)
	}
	utils.RespondJSON(c, http.StatusOK, "Cart updated", viewOf(sess))
}

func (cc *CartController) RemoveItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	sess, ok := lockIdle(c)
	if !ok {
		return
	}
	defer sess.Unlock()
	sess.ResetCheckout()
	sess.Cart.RemoveByID(id)
	utils.RespondJSON(c, http.StatusOK, "Item removed", viewOf(sess))
}

func (cc *CartController) ClearCart(c *gin.Context) {
	sess, ok := lockIdle(c)
	if !ok {
		return
	}
	defer sess.Unlock()
	sess.ResetCheckout()
	sess.Cart.Clear()
	utils.RespondJSON(c, http.StatusOK, "Cart cleared", viewOf(sess))
}

func inCart(ct *cart.Cart, id uint) bool {
	for _, it := range ct.Items() {
		if it.ID == id {
			return true
		}
	}
	return false
}
