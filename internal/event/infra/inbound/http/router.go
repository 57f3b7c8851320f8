package http

import "github.com/gin-gonic/gin"

func RegisterEventRoutes(r *gin.Engine, handler *EventHandler) {
	events := r.Group("/events")
	{
		events.POST("/", handler.CreateEvent)
		events.GET("/:id", handler.GetEvent)
		events.GET("/", handler.ListEvents)
	}
}
