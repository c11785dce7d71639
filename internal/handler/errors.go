package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aman-churiwal/quota-gateway/internal/logging"
	"github.com/aman-churiwal/quota-gateway/internal/service"
)

func respondDetail(c *gin.Context, status int, detail string) {
	c.JSON(status, gin.H{"detail": detail})
}

// Maps service errors to responses. Anything unexpected is logged and hidden behind a 500
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		respondDetail(c, http.StatusNotFound, "Plan not found")
	case errors.Is(err, service.ErrAPIKeyNotFound):
		respondDetail(c, http.StatusNotFound, "API key not found")
	case errors.Is(err, service.ErrPlanNameTaken):
		respondDetail(c, http.StatusConflict, "Plan name already exists")
	case errors.Is(err, service.ErrPlanInUse):
		respondDetail(c, http.StatusConflict, "Cannot delete plan with existing API keys")
	case errors.Is(err, service.ErrInvalidLimit):
		respondDetail(c, http.StatusUnprocessableEntity, "default_rpm must not be negative")
	default:
		logging.FromContext(c.Request.Context()).Error("admin request failed",
			logging.String("path", c.FullPath()),
			logging.Error(err),
		)
		respondDetail(c, http.StatusInternalServerError, "Internal Server Error")
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondDetail(c, http.StatusUnprocessableEntity, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondDetail(c, http.StatusUnprocessableEntity, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
