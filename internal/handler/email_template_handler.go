package handler

import (
	"net/http"

	"quoteportal/internal/middleware"
	"quoteportal/internal/model"
	"quoteportal/internal/service"
	"quoteportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type EmailTemplateHandler struct {
	templateService service.EmailTemplateService
}

func NewEmailTemplateHandler(templateService service.EmailTemplateService) *EmailTemplateHandler {
	return &EmailTemplateHandler{templateService: templateService}
}

func (h *EmailTemplateHandler) RegisterRoutes(router *gin.RouterGroup) {
	templates := router.Group("/api/email-templates")
	templates.Use(middleware.RequirePermission(model.PermTemplatesManage))
	{
		templates.GET("", h.ListTemplates)
		templates.GET("/:type", h.GetTemplate)
		templates.PUT("/:type", h.UpsertTemplate)
	}
}

// ListTemplates handles GET /api/email-templates
// @Summary      List email templates
// @Tags         email-templates
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.EmailTemplate}
// @Router       /api/email-templates [get]
func (h *EmailTemplateHandler) ListTemplates(c *gin.Context) {
	tpls, err := h.templateService.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tpls))
}

// GetTemplate handles GET /api/email-templates/:type
// @Summary      Get email template
// @Tags         email-templates
// @Produce      json
// @Security     BearerAuth
// @Param        type  path      string  true  "Template type"
// @Success      200   {object}  response.Response{data=model.EmailTemplate}
// @Failure      404   {object}  response.Response
// @Router       /api/email-templates/{type} [get]
func (h *EmailTemplateHandler) GetTemplate(c *gin.Context) {
	tpl, err := h.templateService.Get(c.Request.Context(), c.Param("type"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tpl))
}

// UpsertTemplate handles PUT /api/email-templates/:type
// @Summary      Create or replace an email template
// @Description  Subject and body accept {{variable}} placeholders
// @Tags         email-templates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        type     path      string                              true  "Template type"
// @Param        payload  body      service.UpsertEmailTemplateRequest  true  "Template"
// @Success      200      {object}  response.Response{data=model.EmailTemplate}
// @Failure      400      {object}  response.Response
// @Router       /api/email-templates/{type} [put]
func (h *EmailTemplateHandler) UpsertTemplate(c *gin.Context) {
	actor, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req service.UpsertEmailTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	tpl, err := h.templateService.Upsert(c.Request.Context(), actor, c.Param("type"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tpl))
}
