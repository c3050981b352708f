package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CoreX20/library-app/internal/entities"
)

// AuditController exposes the audit trail to administrators.
type AuditController struct {
	audit AuditLogger
}

func NewAuditController(audit AuditLogger) *AuditController {
	return &AuditController{audit: audit}
}

// ListEvents returns audit events, newest first, optionally filtered by
// event type and user.
// GET /api/admin/audit?type=&user_id=&limit=&offset=
func (ac *AuditController) ListEvents(c *gin.Context) {
	limit, offset := parsePagination(c)
	eventType := c.Query("type")
	userID := c.Query("user_id")

	var (
		events []entities.AuditEvent
		total  int64
		err    error
	)
	if eventType != "" {
		events, total, err = ac.audit.GetEventsByType(entities.AuditEventType(eventType), userID, limit, offset)
	} else {
		events, total, err = ac.audit.GetEvents(userID, limit, offset)
	}
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    events,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+limit) < total,
	})
}
