package verification

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	v := rg.Group("/verification")
	{
		v.POST("/verify", h.Verify)
	}
}

func (h *Handler) Verify(c *gin.Context) {
	var bundle Bundle
	if err := c.ShouldBindJSON(&bundle); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(bundle.SHA256Hash) != 64 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sha256Hash must be a 64-character hex digest"})
		return
	}

	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	verdict, err := h.service.VerifyUpload(c.Request.Context(), userID, bundle)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, verdict)
}
