package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/davicafu/eventify/internal/event/application"
	"github.com/davicafu/eventify/internal/event/domain"
)

// EventHandler encapsula los endpoints HTTP del catálogo de eventos.
type EventHandler struct {
	service *application.EventService
}

func NewEventHandler(service *application.EventService) *EventHandler {
	return &EventHandler{service: service}
}

// CreateEvent endpoint POST /events (ruta protegida: requiere sesión)
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Location    string `json:"location"`
		ImageURL    string `json:"image_url"`
		Price       string `json:"price"`
		StartsAt    string `json:"starts_at" binding:"required"` // RFC3339
		EndsAt      string `json:"ends_at" binding:"required"`
		OrganizerID string `json:"organizer_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid starts_at format, use RFC3339"})
		return
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ends_at format, use RFC3339"})
		return
	}

	event, err := h.service.CreateEvent(c.Request.Context(), &domain.Event{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		OrganizerID: req.OrganizerID,
	})
	if err != nil {
		if err == domain.ErrInvalidEvent {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, event)
}

// GetEvent endpoint GET /events/:id (ruta pública)
func (h *EventHandler) GetEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	event, err := h.service.GetEvent(c.Request.Context(), id)
	if err != nil {
		if err == domain.ErrEventNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, event)
}

// ListEvents endpoint GET /events
func (h *EventHandler) ListEvents(c *gin.Context) {
	var f domain.EventFilter

	if title := c.Query("title"); title != "" {
		f.Title = &title
	}
	if organizer := c.Query("organizer_id"); organizer != "" {
		f.OrganizerID = &organizer
	}
	f.OnlyFree = c.Query("free") == "true"

	f.Limit = 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil {
			f.Limit = v
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if v, err := strconv.Atoi(offsetStr); err == nil {
			f.Offset = v
		}
	}

	events, err := h.service.ListEvents(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, events)
}
