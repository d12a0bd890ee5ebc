package handler

import (
	"net/http"

	"quoteportal/internal/service"
	"quoteportal/pkg/response"

	"github.com/gin-gonic/gin"
)

const csvContentType = "text/csv; charset=utf-8"

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// RegisterRoutes expects router to already run middleware.Authenticate.
func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/requisitions/export", h.ExportCSV)
	router.GET("/api/requisitions/:id/report", h.DetailReport)
	router.GET("/api/analytics", h.GetAnalytics)
}

// ExportCSV handles GET /api/requisitions/export
// @Summary      Export requisitions
// @Description  Downloads the caller's visible requisitions as CSV
// @Tags         reports
// @Produce      text/csv
// @Security     BearerAuth
// @Param        search  query     string  false  "Search term"
// @Param        status  query     string  false  "Derived status filter"
// @Success      200     {string}  string  "CSV file"
// @Router       /api/requisitions/export [get]
func (h *ReportHandler) ExportCSV(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	res, err := h.reportService.ExportCSV(c.Request.Context(), p, service.RequisitionFilter{
		Search: c.Query("search"),
		Status: c.DefaultQuery("status", service.FilterAll),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	attach(c, res)
}

// DetailReport handles GET /api/requisitions/:id/report
// @Summary      Requisition report
// @Description  Downloads a single requisition with its approval history
// @Tags         reports
// @Produce      text/csv
// @Security     BearerAuth
// @Param        id   path      string  true  "Requisition ID"
// @Success      200  {string}  string  "CSV file"
// @Failure      404  {object}  response.Response
// @Router       /api/requisitions/{id}/report [get]
func (h *ReportHandler) DetailReport(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	res, err := h.reportService.DetailReport(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	attach(c, res)
}

// GetAnalytics handles GET /api/analytics
// @Summary      Requisition analytics
// @Description  Aggregates over the requisitions visible to the caller
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=model.Analytics}
// @Router       /api/analytics [get]
func (h *ReportHandler) GetAnalytics(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	stats, err := h.reportService.Analytics(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

func attach(c *gin.Context, res service.ExportResult) {
	c.Header("Content-Disposition", `attachment; filename="`+res.Filename+`"`)
	c.Data(http.StatusOK, csvContentType, []byte(res.Content))
}
