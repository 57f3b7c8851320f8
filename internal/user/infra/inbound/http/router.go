package http

import "github.com/gin-gonic/gin"

func RegisterWebhookRoutes(r *gin.Engine, handler *WebhookHandler) {
	r.POST("/api/webhook/clerk", handler.HandleClerkWebhook)
}

func RegisterUserRoutes(r *gin.Engine, handler *UserHandler) {
	users := r.Group("/users")
	{
		users.GET("/:clerkId", handler.GetUser)
		users.GET("/", handler.ListUsers)
	}
}
