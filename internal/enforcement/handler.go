package enforcement

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	e := rg.Group("/enforcement")
	{
		e.POST("/suspend", h.Suspend)
	}
}

func (h *Handler) Suspend(c *gin.Context) {
	var req struct {
		UserID   string `json:"userId" binding:"required"`
		Reason   string `json:"reason" binding:"required"`
		FileName string `json:"fileName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
		return
	}

	result := h.service.Enforce(c.Request.Context(), userID, req.Reason, req.FileName)
	if !result.Core() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enforcement incomplete", "result": result})
		return
	}

	c.JSON(http.StatusOK, result)
}
