package handler

import (
	"net/http"

	"quoteportal/internal/middleware"
	"quoteportal/internal/model"
	"quoteportal/internal/service"
	"quoteportal/pkg/pagination"
	"quoteportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(middleware.RequireRole(model.RoleAdmin, model.RoleSuperUser))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated audit records, newest first
// @Summary      Get audit logs
// @Description  Lists audit records, optionally for a single entity
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        entity_id  query     string  false  "Only records for this entity"
// @Param        action     query     string  false  "Only records with this action, e.g. HOD_APPROVE"
// @Param        actor_id   query     string  false  "Only records written by this actor"
// @Param        since      query     string  false  "Only records on or after this date (YYYY-MM-DD)"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=object}
// @Failure      400        {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), service.AuditQuery{
		EntityID: c.Query("entity_id"),
		Action:   c.Query("action"),
		ActorID:  c.Query("actor_id"),
		Since:    c.Query("since"),
		Page:     params.Page,
		Limit:    params.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, params.Envelope("logs", logs, total)))
}
