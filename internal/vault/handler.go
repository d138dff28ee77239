package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docvault/backend/internal/notifications"
)

// Notifier posts in-app notifications about upload outcomes. Nil disables
// them.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, title, body string) (*notifications.Notification, error)
}

type Handler struct {
	service  Service
	notifier Notifier
}

func NewHandler(service Service, notifier Notifier) *Handler {
	return &Handler{service: service, notifier: notifier}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	docs := rg.Group("/documents")
	{
		docs.POST("/upload", h.Upload)
		docs.GET("", h.List)
		docs.GET("/:id", h.Download)
		docs.GET("/:id/metadata", h.GetMetadata)
		docs.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	mimeType := file.Header.Get("Content-Type")
	result, err := h.service.Upload(c.Request.Context(), UploadRequest{
		UserID:   userID,
		Name:     file.Filename,
		MimeType: mimeType,
		Content:  content,
	})

	switch {
	case errors.Is(err, ErrRejected):
		// Enforcement has already run; tell the user both why and what
		// happens next.
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     result.Report.Rejection,
			"suspended": result.Report.Enforced,
			"steps":     result.Report.Steps,
		})
		h.notify(c.Request.Context(), userID, notifications.TypeUploadRejected,
			"Document rejected",
			fmt.Sprintf("%q was rejected: %s", file.Filename, result.Report.Rejection))
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusCreated, gin.H{
			"document": result.Document,
			"warnings": result.Report.Warnings,
			"steps":    result.Report.Steps,
		})
		h.notify(c.Request.Context(), userID, notifications.TypeUploadVerified,
			"Document verified",
			fmt.Sprintf("%q passed verification and was stored", file.Filename))
	}
}

func (h *Handler) notify(ctx context.Context, userID uuid.UUID, kind, title, body string) {
	if h.notifier == nil {
		return
	}
	// Best effort; the upload outcome does not depend on it.
	_, _ = h.notifier.Notify(ctx, userID, kind, title, body)
}

func (h *Handler) List(c *gin.Context) {
	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	docs, err := h.service.ListDocuments(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, docs)
}

func (h *Handler) Download(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	content, doc, err := h.service.Download(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, doc.MimeType, content)
}

func (h *Handler) GetMetadata(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	doc, err := h.service.GetDocument(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.service.DeleteDocument(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}
