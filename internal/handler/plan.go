package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aman-churiwal/quota-gateway/internal/service"
)

type PlanHandler struct {
	service *service.PlanService
}

func NewPlanHandler(service *service.PlanService) *PlanHandler {
	return &PlanHandler{service: service}
}

func (h *PlanHandler) Create(c *gin.Context) {
	var req struct {
		Name       string `json:"name" binding:"required,max=255"`
		DefaultRPM *int   `json:"default_rpm" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	plan, err := h.service.Create(c.Request.Context(), req.Name, *req.DefaultRPM)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, plan)
}

func (h *PlanHandler) List(c *gin.Context) {
	plans, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plans)
}

func (h *PlanHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	plan, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

func (h *PlanHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req struct {
		Name       *string `json:"name" binding:"omitempty,max=255"`
		DefaultRPM *int    `json:"default_rpm"`
	}
	if !bindJSON(c, &req) {
		return
	}

	plan, err := h.service.Update(c.Request.Context(), id, service.PlanUpdate{
		Name:       req.Name,
		DefaultRPM: req.DefaultRPM,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

func (h *PlanHandler) Delete(c *gin.Context) {
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
