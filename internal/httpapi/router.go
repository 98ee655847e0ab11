package httpapi

import "github.com/gin-gonic/gin"

// Register mounts the REST surface under /api. When admin is non-nil the
// destructive roster endpoints require it, and the token endpoint is exposed.
func Register(r *gin.Engine, h *Handler, admin gin.HandlerFunc) {
	api := r.Group("/api")

	api.GET("/health", h.Health)
	if admin != nil {
		api.POST("/auth/token", h.IssueToken)
	}

	api.GET("/students", h.ListStudents)
	api.POST("/students", h.SaveStudents)

	destructive := api.Group("/students")
	if admin != nil {
		destructive.Use(admin)
	}
	destructive.DELETE("", h.DeleteAllStudents)
	destructive.DELETE("/:id", h.DeleteStudent)
	destructive.DELETE("/batch/delete", h.DeleteStudentsBatch)

	api.POST("/attendance", h.SaveAttendance)
	api.GET("/attendance", h.ListSummaries)
	api.GET("/attendance/dates", h.ListDates)
	api.GET("/attendance/:date", h.GetSheet)
	api.GET("/attendance/search/:studentName", h.SearchByName)
	api.GET("/attendance/stats/overview", h.Overview)
}
