package handlers

import (
	"github.com/gin-gonic/gin"

	"commerce-service/internal/middleware"
)

// Router bundles the API handlers mounted under /api
type Router struct {
	Accounts *AccountHandler
	Products *ProductHandler
	Orders   *OrderHandler
	Auth     *middleware.AuthMiddleware
	// LoginLimit guards POST /login. Nil disables it.
	LoginLimit gin.HandlerFunc
}

// Register mounts every API route on api
func (r *Router) Register(api *gin.RouterGroup) {
	auth := r.Auth.AuthRequired()
	admin := r.Auth.RequireAdmin()

	login := []gin.HandlerFunc{r.Accounts.Login}
	if r.LoginLimit != nil {
		login = append([]gin.HandlerFunc{r.LoginLimit}, login...)
	}

	// Accounts
	api.POST("/register", r.Accounts.Register)
	api.POST("/login", login...)
	api.POST("/forgot-password", r.Accounts.ForgotPassword)
	api.POST("/reset-password/:token", r.Accounts.ResetPassword)
	me := api.Group("/me", auth)
	{
		me.GET("", r.Accounts.CurrentUser)
		me.PUT("/update", r.Accounts.UpdateUser)
	}

	// Catalog
	products := api.Group("/products")
	{
		products.GET("", r.Products.ListProducts)
		products.GET("/:id", r.Products.GetProduct)
		products.POST("/new", auth, r.Products.NewProduct)
		products.POST("/upload_images", auth, r.Products.UploadProductImages)
		products.PUT("/:id", auth, r.Products.UpdateProduct)
		products.DELETE("/:id", auth, r.Products.DeleteProduct)
		products.DELETE("/images/:id", auth, r.Products.DeleteProductImage)
		products.POST("/:id/reviews", auth, r.Products.CreateReview)
		products.DELETE("/:id/reviews", auth, r.Products.DeleteReview)
	}

	// Orders
	orders := api.Group("/orders", auth)
	{
		orders.POST("", r.Orders.NewOrder)
		orders.GET("", r.Orders.ListOrders)
		orders.GET("/:id", r.Orders.GetOrder)
		orders.PUT("/:id/process", admin, r.Orders.ProcessOrder)
		orders.DELETE("/:id/delete", r.Orders.DeleteOrder)
	}
	api.POST("/checkout/session", auth, r.Orders.CreateCheckoutSession)

	// Called by the payment gateway, authenticated by signature
	api.POST("/webhook/payment", r.Orders.StripeWebhook)
}
