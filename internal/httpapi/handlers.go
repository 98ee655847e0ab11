package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rollbook/internal/attendance"
	"rollbook/internal/auth"
	"rollbook/internal/roster"
)

// Pinger reports storage reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the services behind the REST surface.
type Handler struct {
	roster *roster.Service
	att    *attendance.Service
	db     Pinger

	adminKey      string
	jwtIssuer     string
	jwtSigningKey string
	accessTTL     time.Duration

	started time.Time
}

// NewHandler wires the services into a handler set.
func NewHandler(rosterSvc *roster.Service, attSvc *attendance.Service, db Pinger,
	adminKey, jwtIssuer, jwtSigningKey string, accessTTL time.Duration) *Handler {
	return &Handler{
		roster:        rosterSvc,
		att:           attSvc,
		db:            db,
		adminKey:      adminKey,
		jwtIssuer:     jwtIssuer,
		jwtSigningKey: jwtSigningKey,
		accessTTL:     accessTTL,
		started:       time.Now(),
	}
}

// ---------- Roster ----------

func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.roster.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

func (h *Handler) SaveStudents(c *gin.Context) {
	var students []roster.Student
	if err := c.ShouldBindJSON(&students); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be an array of students"})
		return
	}
	count, err := h.roster.Replace(c.Request.Context(), students)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "roster saved",
		"count":   count,
	})
}

func (h *Handler) DeleteAllStudents(c *gin.Context) {
	deleted, err := h.roster.DeleteAll(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deletedCount": deleted})
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	deleted, err := h.roster.DeleteOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deletedStudent": deleted})
}

func (h *Handler) DeleteStudentsBatch(c *gin.Context) {
	var req struct {
		StudentIDs []string `json:"studentIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "studentIds must be an array of identifiers"})
		return
	}
	res, err := h.roster.DeleteBatch(c.Request.Context(), req.StudentIDs)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"deletedCount":    res.DeletedCount,
		"notFoundCount":   res.NotFoundCount,
		"deletedStudents": res.DeletedStudents,
	})
}

// ---------- Attendance ----------

func (h *Handler) SaveAttendance(c *gin.Context) {
	var req struct {
		Date    string               `json:"date"`
		Records *[]attendance.Record `json:"records"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Records == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "records must be an array"})
		return
	}
	count, err := h.att.Upsert(c.Request.Context(), req.Date, *req.Records)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"date":        req.Date,
		"recordCount": count,
	})
}

func (h *Handler) ListDates(c *gin.Context) {
	dates, err := h.att.Dates(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dates)
}

func (h *Handler) GetSheet(c *gin.Context) {
	sheet, err := h.att.Sheet(c.Request.Context(), c.Param("date"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sheet)
}

func (h *Handler) ListSummaries(c *gin.Context) {
	summaries, err := h.att.Summaries(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *Handler) SearchByName(c *gin.Context) {
	matches, err := h.att.Search(c.Request.Context(), c.Param("studentName"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, matches)
}

func (h *Handler) Overview(c *gin.Context) {
	overview, err := h.att.Overview(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// ---------- Health & auth ----------

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "ok"
	status := http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		dbStatus = "unreachable"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"database":  dbStatus,
	})
}

// IssueToken exchanges the configured admin key for a short-lived admin JWT.
func (h *Handler) IssueToken(c *gin.Context) {
	var req struct {
		AdminKey string `json:"adminKey" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "adminKey required"})
		return
	}
	if req.AdminKey != h.adminKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin key"})
		return
	}
	token, exp, err := auth.Issue("admin", auth.RoleAdmin, h.jwtIssuer, h.jwtSigningKey, h.accessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":     token,
		"expiresAt": exp.Unix(),
	})
}
