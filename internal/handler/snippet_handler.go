package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"questboard/internal/model"
	"questboard/internal/repository"
)

type SnippetHandler struct {
	repo   *repository.SnippetRepository
	logger *zap.Logger
}

func NewSnippetHandler(repo *repository.SnippetRepository, logger *zap.Logger) *SnippetHandler {
	return &SnippetHandler{repo: repo, logger: logger}
}

type saveSnippetRequest struct {
	Title    string `json:"title" binding:"required"`
	Language string `json:"language" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

func (h *SnippetHandler) Create(c *gin.Context) {
	var req saveSnippetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	me := actor(c)
	snippet := &model.Snippet{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Language:  req.Language,
		Code:      req.Code,
		CreatedBy: me.ID,
	}

	saved, err := h.repo.SaveSnippet(c.Request.Context(), snippet)
	if err != nil {
		h.logger.Error("Failed to save snippet", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save snippet"})
		return
	}

	c.JSON(http.StatusCreated, saved)
}

func (h *SnippetHandler) List(c *gin.Context) {
	snippets, err := h.repo.ListSnippets(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list snippets", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch snippets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snippets": snippets})
}

func (h *SnippetHandler) Get(c *gin.Context) {
	snippet, err := h.repo.GetSnippet(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to get snippet", zap.String("snippet_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch snippet"})
		return
	}
	if snippet == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snippet not found"})
		return
	}
	c.JSON(http.StatusOK, snippet)
}

func (h *SnippetHandler) Delete(c *gin.Context) {
	if err := h.repo.DeleteSnippet(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "snippet not found"})
			return
		}
		h.logger.Error("Failed to delete snippet", zap.String("snippet_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete snippet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
