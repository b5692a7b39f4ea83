package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/storefront-orders/middlewares"
	"github.com/yeremiapane/storefront-orders/models"
	"github.com/yeremiapane/storefront-orders/services"
	"github.com/yeremiapane/storefront-orders/utils"
)

type SettingsController struct {
	Settings *services.SettingsService
}

func NewSettingsController(settings *services.SettingsService) *SettingsController {
	return &SettingsController{Settings: settings}
}

// PublicSettings is what the storefront needs to render checkout.
func (sc *SettingsController) PublicSettings(c *gin.Context) {
	tenant := middlewares.CurrentTenant(c)
	settings, err := sc.Settings.Get(c.Request.Context(), tenant.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Store settings", gin.H{
		"name":     tenant.Name,
		"payment":  settings.Payment,
		"delivery": settings.Delivery,
		"contact":  settings.Contact,
	})
}

func (sc *SettingsController) GetSettings(c *gin.Context) {
	tenant := middlewares.CurrentTenant(c)
	settings, err := sc.Settings.Get(c.Request.Context(), tenant.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Store settings", settings)
}

func (sc *SettingsController) UpdateSettings(c *gin.Context) {
	var settings models.TenantSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	tenant := middlewares.CurrentTenant(c)
	saved, err := sc.Settings.Update(c.Request.Context(), tenant.ID, settings)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Store settings updated", saved)
}

func (sc *SettingsController) GetOptionGroups(c *gin.Context) {
	tenant := middlewares.CurrentTenant(c)
	groups, err := sc.Settings.OptionGroups(c.Request.Context(), tenant.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of option groups", groups)
}

func (sc *SettingsController) CreateOptionGroup(c *gin.Context) {
	var in services.OptionGroupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	tenant := middlewares.CurrentTenant(c)
	group, err := sc.Settings.CreateOptionGroup(c.Request.Context(), tenant.ID, in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Option group created", group)
}

func (sc *SettingsController) UpdateOptionGroup(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.OptionGroupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	tenant := middlewares.CurrentTenant(c)
	group, err := sc.Settings.UpdateOptionGroup(c.Request.Context(), tenant.ID, id, in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Option group updated", group)
}

func (sc *SettingsController) DeleteOptionGroup(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	tenant := middlewares.CurrentTenant(c)
	if err := sc.Settings.DeleteOptionGroup(c.Request.Context(), tenant.ID, id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Option group deleted", nil)
}
