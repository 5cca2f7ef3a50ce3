package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/contacts_backend/models"
	"github.com/mmdatafocus/contacts_backend/models/reports"
	"github.com/mmdatafocus/contacts_backend/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StatisticsProvider is the part of reports.StatisticsService the handlers need.
type StatisticsProvider interface {
	CachedAccountStatistics(ctx context.Context, userId int, now time.Time) (*reports.AccountStatistics, error)
	CachedGlobalStatistics(ctx context.Context, now time.Time) (*reports.GlobalStatistics, error)
}

// AccountStatisticsHandler reports on the caller's own persons and filings.
func AccountStatisticsHandler(stats StatisticsProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userId, ok := utils.CallerId(ctx)
		if !ok {
			respondError(c, utils.ErrorUnauthorized)
			return
		}
		result, err := stats.CachedAccountStatistics(ctx, userId, now())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func UserStatisticsHandler(stats StatisticsProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		if _, err := utils.FetchModel[models.User](ctx, id); err != nil {
			respondError(c, err)
			return
		}
		result, err := stats.CachedAccountStatistics(ctx, id, now())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func GlobalStatisticsHandler(stats StatisticsProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := stats.CachedGlobalStatistics(c.Request.Context(), now())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// ExportStatisticsHandler streams the global statistics as an xlsx workbook.
func ExportStatisticsHandler(stats StatisticsProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		reference := now()
		result, err := stats.CachedGlobalStatistics(c.Request.Context(), reference)
		if err != nil {
			respondError(c, err)
			return
		}
		filename := fmt.Sprintf("statistics-%s.xlsx", reports.WeekKey(reference))
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		c.Header("Content-Type", xlsxContentType)
		c.Status(http.StatusOK)
		if err := reports.WriteStatisticsWorkbook(c.Writer, result); err != nil {
			_ = c.Error(err)
		}
	}
}
