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

type RequisitionHandler struct {
	requisitionService service.RequisitionService
}

func NewRequisitionHandler(requisitionService service.RequisitionService) *RequisitionHandler {
	return &RequisitionHandler{requisitionService: requisitionService}
}

// RegisterRoutes expects router to already run middleware.Authenticate.
func (h *RequisitionHandler) RegisterRoutes(router *gin.RouterGroup) {
	requisitions := router.Group("/api/requisitions")
	{
		requisitions.POST("", middleware.RequireRole(model.RoleEmployee, model.RoleHOD, model.RoleFinance), h.CreateRequisition)
		requisitions.GET("", h.ListRequisitions)
		requisitions.GET("/pending", middleware.RequireRole(model.RoleHOD, model.RoleFinance), h.ListPending)
		requisitions.GET("/:id", h.GetRequisition)
		requisitions.PUT("/:id", h.UpdateRequisition)

		requisitions.PUT("/:id/hod/approve", middleware.RequireRole(model.RoleHOD), h.decide(service.StageHOD, service.DecisionApprove))
		requisitions.PUT("/:id/hod/decline", middleware.RequireRole(model.RoleHOD), h.decide(service.StageHOD, service.DecisionDecline))
		requisitions.PUT("/:id/finance/approve", middleware.RequireRole(model.RoleFinance), h.decide(service.StageFinance, service.DecisionApprove))
		requisitions.PUT("/:id/finance/decline", middleware.RequireRole(model.RoleFinance), h.decide(service.StageFinance, service.DecisionDecline))
	}
}

// CreateRequisition handles POST /api/requisitions
// @Summary      Submit a requisition
// @Description  Creates a requisition with a fresh transaction ID and routes it to the approvers
// @Tags         requisitions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRequisitionRequest  true  "Requisition"
// @Success      201      {object}  response.Response{data=service.RequisitionResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/requisitions [post]
func (h *RequisitionHandler) CreateRequisition(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req service.CreateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	res, err := h.requisitionService.Create(c.Request.Context(), p, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// ListRequisitions handles GET /api/requisitions
// @Summary      List requisitions
// @Description  Lists the requisitions visible to the caller, newest first
// @Tags         requisitions
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Matches item, requester, description or comment"
// @Param        status  query     string  false  "all, approved, declined, pending or finance-review"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/requisitions [get]
func (h *RequisitionHandler) ListRequisitions(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	filter := service.RequisitionFilter{
		Search: c.Query("search"),
		Status: c.DefaultQuery("status", service.FilterAll),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	items, total, err := h.requisitionService.List(c.Request.Context(), p, filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, params.Envelope("requisitions", items, int64(total))))
}

// ListPending handles GET /api/requisitions/pending
// @Summary      Approval queue
// @Description  Requisitions awaiting a decision the caller may record
// @Tags         requisitions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.RequisitionResponse}
// @Router       /api/requisitions/pending [get]
func (h *RequisitionHandler) ListPending(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	items, err := h.requisitionService.ListActionable(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// GetRequisition handles GET /api/requisitions/:id
// @Summary      Get requisition
// @Tags         requisitions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Requisition ID"
// @Success      200  {object}  response.Response{data=service.RequisitionResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requisitions/{id} [get]
func (h *RequisitionHandler) GetRequisition(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	res, err := h.requisitionService.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// UpdateRequisition handles PUT /api/requisitions/:id
// @Summary      Edit requisition
// @Description  Edits content or submits a draft. Only the requester may edit, and only before the first approval action.
// @Tags         requisitions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                            true  "Requisition ID"
// @Param        payload  body      service.UpdateRequisitionRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.RequisitionResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requisitions/{id} [put]
func (h *RequisitionHandler) UpdateRequisition(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req service.UpdateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	res, err := h.requisitionService.Update(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// decide builds the handler for one approval stage and outcome.
// @Summary      Record an approval decision
// @Description  PUT /api/requisitions/{id}/hod/approve, /hod/decline, /finance/approve or /finance/decline
// @Tags         requisitions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                   true   "Requisition ID"
// @Param        payload  body      service.DecisionRequest  false  "Expected version"
// @Success      200      {object}  response.Response{data=service.RequisitionResponse}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/requisitions/{id}/hod/approve [put]
func (h *RequisitionHandler) decide(stage service.Stage, decision service.Decision) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := currentPrincipal(c)
		if !ok {
			return
		}

		var req service.DecisionRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
				return
			}
		}

		res, err := h.requisitionService.Decide(c.Request.Context(), p, c.Param("id"), stage, decision, req)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
	}
}
