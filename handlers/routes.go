package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/contacts_backend/middlewares"
)

// RegisterRoutes mounts the REST API. Caller identity must already be resolved by middlewares.AuthMiddleware.
func RegisterRoutes(r gin.IRouter, stats StatisticsProvider) {
	auth := r.Group("/auth")
	auth.POST("/register", RegisterHandler())
	auth.POST("/login", LoginHandler())
	auth.GET("/me", middlewares.RequireAuth(), MeHandler())
	auth.PUT("/password", middlewares.RequireAuth(), ChangePasswordHandler())

	user := r.Group("/", middlewares.RequireAuth())
	user.GET("/persons", ListPersonsHandler())
	user.POST("/persons", CreatePersonHandler())
	user.GET("/persons/:id", GetPersonHandler())
	user.PUT("/persons/:id", UpdatePersonHandler())
	user.DELETE("/persons/:id", DeletePersonHandler())
	user.GET("/persons/:id/reports", ListPersonReportsHandler())

	user.GET("/reports", ListReportsHandler())
	user.POST("/reports", CreateReportHandler())
	user.GET("/reports/:id", GetReportHandler())
	user.PUT("/reports/:id", UpdateReportHandler())
	user.DELETE("/reports/:id", DeleteReportHandler())

	user.GET("/stats", AccountStatisticsHandler(stats))

	admin := r.Group("/admin", middlewares.RequireAdmin())
	admin.GET("/stats", GlobalStatisticsHandler(stats))
	admin.GET("/stats/export", ExportStatisticsHandler(stats))
	admin.GET("/users", ListUsersHandler())
	admin.GET("/users/:id/stats", UserStatisticsHandler(stats))
	admin.PUT("/users/:id/active", ToggleActiveUserHandler())
}

func NotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}
