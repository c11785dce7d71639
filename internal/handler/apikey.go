package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aman-churiwal/quota-gateway/internal/models"
	"github.com/aman-churiwal/quota-gateway/internal/service"
)

type APIKeyHandler struct {
	service *service.APIKeyService
}

func NewAPIKeyHandler(service *service.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{service: service}
}

// Only the create response carries the plaintext key
type createdAPIKey struct {
	*models.APIKey
	PlaintextKey string `json:"plaintext_key"`
}

func (h *APIKeyHandler) Create(c *gin.Context) {
	var req struct {
		Label  string    `json:"label" binding:"required,max=255"`
		PlanID uuid.UUID `json:"plan_id" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	apiKey, secret, err := h.service.Create(c.Request.Context(), req.Label, req.PlanID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, createdAPIKey{APIKey: apiKey, PlaintextKey: secret})
}

func (h *APIKeyHandler) List(c *gin.Context) {
	keys, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, keys)
}

func (h *APIKeyHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	apiKey, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, apiKey)
}

func (h *APIKeyHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req struct {
		Label    *string    `json:"label" binding:"omitempty,max=255"`
		IsActive *bool      `json:"is_active"`
		PlanID   *uuid.UUID `json:"plan_id"`
	}
	if !bindJSON(c, &req) {
		return
	}

	apiKey, err := h.service.Update(c.Request.Context(), id, service.APIKeyUpdate{
		Label:    req.Label,
		IsActive: req.IsActive,
		PlanID:   req.PlanID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, apiKey)
}

func (h *APIKeyHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
