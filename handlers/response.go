package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/contacts_backend/config"
	"github.com/mmdatafocus/contacts_backend/models/reports"
	"github.com/mmdatafocus/contacts_backend/utils"
	"github.com/sirupsen/logrus"
)

// now is swapped in tests to pin the reference week.
var now = func() time.Time { return time.Now().UTC() }

// respondError maps service errors onto status codes. Unknown errors are logged and hidden.
func respondError(c *gin.Context, err error) {
	var verr *utils.ValidationError
	var bindErrs validator.ValidationErrors
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "fields": verr.Fields})
	case errors.As(err, &bindErrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ErrorValidation.Error(), "fields": utils.ProcessValidationErrors(bindErrs)})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorUnauthorized),
		errors.Is(err, utils.ErrorInvalidCredentials),
		errors.Is(err, utils.ErrorUserDisabled):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		ctx := c.Request.Context()
		cid, _ := utils.GetCorrelationIdFromContext(ctx)
		caller, _ := utils.GetUserNameFromContext(ctx)
		config.GetLogger().WithFields(logrus.Fields{
			"field":          "handlers",
			"method":         c.Request.Method,
			"path":           c.FullPath(),
			"correlation_id": cid,
			"caller":         caller,
		}).Error(err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// bindJSON decodes the body into dest, answering 400 itself on failure.
func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		var bindErrs validator.ValidationErrors
		if errors.As(err, &bindErrs) {
			respondError(c, err)
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		}
		return false
	}
	return true
}

func idParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// invalidateStatistics drops cached statistics for every affected account; failures are only logged.
func invalidateStatistics(userIds ...int) {
	for _, id := range utils.UniqueSlice(userIds) {
		if err := reports.InvalidateStatistics(id, now()); err != nil {
			config.LogError(config.GetLogger(), "handlers", "invalidateStatistics", "remove cache keys", id, err)
		}
	}
}
