package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/storefront-orders/middlewares"
	"github.com/yeremiapane/storefront-orders/services"
	"github.com/yeremiapane/storefront-orders/utils"
)

type AuthController struct {
	Credentials *services.CredentialService
}

func NewAuthController(credentials *services.CredentialService) *AuthController {
	return &AuthController{Credentials: credentials}
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	tenant := middlewares.CurrentTenant(c)
	token, err := ac.Credentials.Login(c.Request.Context(), tenant.ID, req.Password)
	if err != nil {
		utils.InfoLogger.WithField("tenant", tenant.Slug).Warn("admin login rejected")
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{"token": token})
}
