package campaign

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"donationhub/pkg/db/pagination"
	"donationhub/pkg/errutil"
	"donationhub/pkg/identity"
	"donationhub/pkg/middleware"
)

type routeParams struct {
	fx.In

	Engine   *gin.Engine
	Service  *Service
	Verifier identity.Verifier
}

func registerRoutes(p routeParams) {
	h := &handler{service: p.Service}

	v1 := p.Engine.Group("/v1", middleware.Authenticate(p.Verifier))

	v1.GET("/campaigns", h.list)
	v1.GET("/campaigns/ongoing", h.listOngoing)
	v1.GET("/campaigns/:id", h.get)

	owner := v1.Group("", middleware.RequireKind(identity.KindOrphanage))
	owner.POST("/campaigns", h.create)
	owner.PATCH("/campaigns/:id", h.update)
	owner.DELETE("/campaigns/:id", h.delete)
}

type handler struct {
	service *Service
}

func (h *handler) create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	principal := middleware.PrincipalFrom(c)
	created, err := h.service.Create(c.Request.Context(), principal.ID, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *handler) update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	principal := middleware.PrincipalFrom(c)
	updated, err := h.service.Update(c.Request.Context(), principal.ID, c.Param("id"), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *handler) delete(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)
	if err := h.service.Delete(c.Request.Context(), principal.ID, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handler) get(c *gin.Context) {
	found, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, found)
}

func (h *handler) list(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		_ = c.Error(errutil.BadRequest("invalid query parameters", err))
		return
	}

	campaigns, info, err := h.service.List(c.Request.Context(), page)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": campaigns, "page_info": info})
}

func (h *handler) listOngoing(c *gin.Context) {
	campaigns, err := h.service.ListOngoing(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": campaigns})
}
