package httpapi

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"rollbook/internal/apperr"
)

// fail maps the error taxonomy to HTTP statuses: validation 400, not-found
// 404, conflict 409, everything else 500. The body is always {"error": msg}.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.Validation:
		status = http.StatusBadRequest
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Conflict:
		status = http.StatusConflict
	default:
		log.Printf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
