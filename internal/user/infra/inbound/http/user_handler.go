package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/eventify/internal/user/application"
	"github.com/davicafu/eventify/internal/user/domain"
	"github.com/davicafu/eventify/pkg/utils"
)

// UserHandler expone el directorio en modo lectura. Las mutaciones llegan
// solo por webhook: el proveedor de identidad es la fuente de verdad.
type UserHandler struct {
	service *application.UserSyncService
}

func NewUserHandler(service *application.UserSyncService) *UserHandler {
	return &UserHandler{service: service}
}

// GetUser endpoint GET /users/:clerkId
func (h *UserHandler) GetUser(c *gin.Context) {
	clerkID := c.Param("clerkId")

	user, err := h.service.GetUser(c.Request.Context(), clerkID)
	if err != nil {
		if err == domain.ErrUserNotFound {
			utils.SendNotFound(c, "user not found")
			return
		}
		utils.SendInternalServerError(c, err.Error())
		return
	}

	utils.SendSuccess(c, http.StatusOK, user)
}

// ListUsers endpoint GET /users
func (h *UserHandler) ListUsers(c *gin.Context) {
	var f domain.UserFilter

	if email := c.Query("email"); email != "" {
		f.Email = &email
	}
	if username := c.Query("username"); username != "" {
		f.Username = &username
	}

	f.Pagination.Limit = 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil {
			f.Pagination.Limit = v
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if v, err := strconv.Atoi(offsetStr); err == nil {
			f.Pagination.Offset = v
		}
	}

	f.Sort = domain.Sort{Field: "created_at", Desc: true}

	users, err := h.service.ListUsers(c.Request.Context(), f)
	if err != nil {
		utils.SendInternalServerError(c, err.Error())
		return
	}

	utils.SendSuccess(c, http.StatusOK, users)
}
