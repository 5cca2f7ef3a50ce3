package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/contacts_backend/middlewares"
	"github.com/mmdatafocus/contacts_backend/models"
	"github.com/mmdatafocus/contacts_backend/utils"
)

// ReportResponse is a report with the person and filer names resolved.
type ReportResponse struct {
	*models.Report
	PersonName string `json:"person_name"`
	FiledBy    string `json:"filed_by"`
}

// describeReports resolves names through the request loaders, one batch per kind.
func describeReports(ctx context.Context, items []*models.Report) ([]ReportResponse, error) {
	personIds := make([]int, 0, len(items))
	userIds := make([]int, 0, len(items))
	for _, r := range items {
		personIds = append(personIds, r.PersonId)
		userIds = append(userIds, r.UserId)
	}
	personIds = utils.UniqueSlice(personIds)
	userIds = utils.UniqueSlice(userIds)

	personNames := make(map[int]string, len(personIds))
	if len(personIds) > 0 {
		persons, errs := middlewares.GetPersons(ctx, personIds)
		if err := firstError(errs); err != nil {
			return nil, err
		}
		for _, p := range persons {
			if p != nil {
				personNames[p.ID] = p.Name
			}
		}
	}
	userNames := make(map[int]string, len(userIds))
	if len(userIds) > 0 {
		users, errs := middlewares.GetUsers(ctx, userIds)
		if err := firstError(errs); err != nil {
			return nil, err
		}
		for _, u := range users {
			if u != nil {
				userNames[u.ID] = u.Name
			}
		}
	}

	result := make([]ReportResponse, 0, len(items))
	for _, r := range items {
		result = append(result, ReportResponse{
			Report:     r,
			PersonName: personNames[r.PersonId],
			FiledBy:    userNames[r.UserId],
		})
	}
	return result, nil
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func respondReport(c *gin.Context, status int, report *models.Report) {
	described, err := describeReports(c.Request.Context(), []*models.Report{report})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, described[0])
}

// invalidateReportStatistics covers the filer and the person's owner, which differ for administrator filings.
func invalidateReportStatistics(ctx context.Context, report *models.Report) {
	userIds := []int{report.UserId}
	if person, err := middlewares.GetPerson(ctx, report.PersonId); err == nil && person.UserId != 0 {
		userIds = append(userIds, person.UserId)
	}
	invalidateStatistics(userIds...)
}

func CreateReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewReport
		if !bindJSON(c, &input) {
			return
		}
		ctx := c.Request.Context()
		report, err := models.CreateReport(ctx, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateReportStatistics(ctx, report)
		respondReport(c, http.StatusCreated, report)
	}
}

func ListReportsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var query models.ReportQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
			return
		}
		listReports(c, &query)
	}
}

func listReports(c *gin.Context, query *models.ReportQuery) {
	ctx := c.Request.Context()
	items, err := models.ListReports(ctx, query)
	if err != nil {
		respondError(c, err)
		return
	}
	described, err := describeReports(ctx, items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, described)
}

func GetReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		report, err := models.GetReport(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		respondReport(c, http.StatusOK, report)
	}
}

func UpdateReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.UpdateReportInput
		if !bindJSON(c, &input) {
			return
		}
		ctx := c.Request.Context()
		report, err := models.UpdateReport(ctx, id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateReportStatistics(ctx, report)
		respondReport(c, http.StatusOK, report)
	}
}

func DeleteReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		report, err := models.DeleteReport(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateReportStatistics(ctx, report)
		c.JSON(http.StatusOK, report)
	}
}
