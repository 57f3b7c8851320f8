package http

import "github.com/gin-gonic/gin"

func RegisterCheckoutRoutes(r *gin.Engine, handler *CheckoutHandler) {
	checkout := r.Group("/checkout")
	{
		checkout.POST("", handler.Checkout)
		checkout.POST("/confirm", handler.Confirm)
	}

	r.GET("/orders", handler.ListOrders)
}
