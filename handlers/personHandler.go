package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/contacts_backend/models"
)

func CreatePersonHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPerson
		if !bindJSON(c, &input) {
			return
		}
		person, err := models.CreatePerson(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateStatistics(person.UserId)
		c.JSON(http.StatusCreated, person)
	}
}

func ListPersonsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var query models.PersonQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
			return
		}
		persons, err := models.ListPersons(c.Request.Context(), &query)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, persons)
	}
}

func GetPersonHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		person, err := models.GetPerson(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, person)
	}
}

func UpdatePersonHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewPerson
		if !bindJSON(c, &input) {
			return
		}
		person, err := models.UpdatePerson(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		// person names appear in recent report listings
		invalidateStatistics(person.UserId)
		c.JSON(http.StatusOK, person)
	}
}

// DeletePersonHandler removes the person together with its reports.
func DeletePersonHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		person, err := models.DeletePerson(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateStatistics(person.UserId)
		c.JSON(http.StatusOK, person)
	}
}

func ListPersonReportsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var query models.ReportQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
			return
		}
		query.PersonId = &id
		listReports(c, &query)
	}
}
