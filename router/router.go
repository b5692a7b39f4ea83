package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/storefront-orders/bus"
	"github.com/yeremiapane/storefront-orders/config"
	"github.com/yeremiapane/storefront-orders/controllers"
	"github.com/yeremiapane/storefront-orders/middlewares"
	"github.com/yeremiapane/storefront-orders/services"
	"github.com/yeremiapane/storefront-orders/session"
	"github.com/yeremiapane/storefront-orders/utils"
)

// Dependencies are the long-lived objects shared by every request.
type Dependencies struct {
	Config   config.Config
	DB       *gorm.DB
	Bus      *bus.Bus
	Sessions *session.Store
	Tokens   *utils.TokenIssuer
	Log      logrus.FieldLogger
}

func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.CORSMiddlewares(deps.Config.CORSOrigins))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.NewRateLimiter(deps.Config.RateLimitRPS, deps.Config.RateLimitBurst).RateLimit())
	r.Use(middlewares.RequestTimeout(deps.Config.RequestTimeout))

	orderService := services.NewOrderService(deps.DB, deps.Bus, deps.Log, deps.Config.TrackingCodeAttempts)
	settingsService := services.NewSettingsService(deps.DB, deps.Log)
	catalogService := services.NewCatalogService(deps.DB)
	checkoutService := services.NewCheckoutService(orderService, settingsService, deps.Log)
	credentialService := services.NewCredentialService(deps.DB, deps.Tokens)
	tenantService := services.NewTenantService(deps.DB)

	menuCtrl := controllers.NewMenuController(catalogService)
	cartCtrl := controllers.NewCartController(catalogService)
	checkoutCtrl := controllers.NewCheckoutController(checkoutService)
	trackingCtrl := controllers.NewTrackingController(orderService)
	orderCtrl := controllers.NewOrderController(orderService)
	settingsCtrl := controllers.NewSettingsController(settingsService)
	authCtrl := controllers.NewAuthController(credentialService)
	eventsCtrl := controllers.NewEventsController(deps.Bus, orderService)

	r.GET("/healthz", func(c *gin.Context) {
		utils.RespondJSON(c, http.StatusOK, "ok", nil)
	})

	store := r.Group("/t/:tenant")
	store.Use(middlewares.TenantResolver(tenantService))
	{
		store.GET("/menu", menuCtrl.GetMenu)
		store.GET("/settings/public", settingsCtrl.PublicSettings)
		store.GET("/track", trackingCtrl.Track)
		store.GET("/track/:code/qr.png", trackingCtrl.QRCode)
		store.GET("/ws/track", eventsCtrl.TrackEvents)
		store.POST("/admin/login", middlewares.NewStrictRateLimiter().RateLimit(), authCtrl.Login)

		shop := store.Group("")
		shop.Use(middlewares.Sessions(deps.Sessions))
		{
			shop.GET("/cart", cartCtrl.GetCart)
			shop.POST("/cart/items", cartCtrl.AddItem)
			shop.PATCH("/cart/items/:id", cartCtrl.UpdateItem)
			shop.DELETE("/cart/items/:id", cartCtrl.RemoveItem)
			shop.DELETE("/cart", cartCtrl.ClearCart)

			shop.POST("/checkout/start", checkoutCtrl.Start)
			shop.GET("/checkout/step", checkoutCtrl.CurrentStep)
			shop.POST("/checkout/step/increment", checkoutCtrl.Increment)
			shop.POST("/checkout/step/decrement", checkoutCtrl.Decrement)
			shop.POST("/checkout/step/confirm", checkoutCtrl.Confirm)
			shop.POST("/checkout/step/skip", checkoutCtrl.Skip)
			shop.POST("/checkout/cancel", checkoutCtrl.Cancel)
			shop.POST("/checkout/submit", checkoutCtrl.Submit)
		}

		admin := store.Group("/admin")
		admin.Use(middlewares.AdminAuth(deps.Tokens))
		{
			admin.GET("/orders", orderCtrl.GetOrders)
			admin.GET("/orders/:id", orderCtrl.GetOrderByID)
			admin.PATCH("/orders/:id/status", orderCtrl.UpdateOrderStatus)
			admin.PATCH("/orders/:id/payment", orderCtrl.UpdatePayment)

			admin.GET("/settings", settingsCtrl.GetSettings)
			admin.PUT("/settings", settingsCtrl.UpdateSettings)

			admin.GET("/option-groups", settingsCtrl.GetOptionGroups)
			admin.POST("/option-groups", settingsCtrl.CreateOptionGroup)
			admin.PUT("/option-groups/:id", settingsCtrl.UpdateOptionGroup)
			admin.DELETE("/option-groups/:id", settingsCtrl.DeleteOptionGroup)

			admin.GET("/menu", menuCtrl.GetAllMenus)
			admin.POST("/menu", menuCtrl.CreateMenu)
			admin.PUT("/menu/:id", menuCtrl.UpdateMenu)
			admin.DELETE("/menu/:id", menuCtrl.DeleteMenu)

			admin.GET("/ws", eventsCtrl.AdminEvents)
		}
	}

	return r
}
