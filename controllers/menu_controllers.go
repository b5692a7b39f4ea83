package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/storefront-orders/middlewares"
	"github.com/yeremiapane/storefront-orders/models"
	"github.com/yeremiapane/storefront-orders/services"
	"github.com/yeremiapane/storefront-orders/utils"
)

type MenuController struct {
	Catalog *services.CatalogService
}

func NewMenuController(catalog *services.CatalogService) *MenuController {
	return &MenuController{Catalog: catalog}
}

// GetMenu lists what customers can order right now.
func (mc *MenuController) GetMenu(c *gin.Context) {
	tenant := middlewares.CurrentTenant(c)
	items, err := mc.Catalog.List(c.Request.Context(), tenant.ID, true)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menu items", items)
}

func (mc *MenuController) GetAllMenus(c *gin.Context) {
	tenant := middlewares.CurrentTenant(c)
	items, err := mc.Catalog.List(c.Request.Context(), tenant.ID, false)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menu items", items)
}

func (mc *MenuController) CreateMenu(c *gin.Context) {
	var item models.MenuItem
	if err := c.ShouldBindJSON(&item); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	tenant := middlewares.CurrentTenant(c)
	created, err := mc.Catalog.Create(c.Request.Context(), tenant.ID, item)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Menu item created", created)
}

func (mc *MenuController) UpdateMenu(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var item models.MenuItem
	if err := c.ShouldBindJSON(&item); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	tenant := middlewares.CurrentTenant(c)
	updated, err := mc.Catalog.Update(c.Request.Context(), tenant.ID, id, item)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item updated", updated)
}

func (mc *MenuController) DeleteMenu(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	tenant := middlewares.CurrentTenant(c)
	if err := mc.Catalog.Delete(c.Request.Context(), tenant.ID, id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item deleted", nil)
}
