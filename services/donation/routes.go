package donation

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

	donor := p.Engine.Group("/v1",
		middleware.Authenticate(p.Verifier),
		middleware.RequireKind(identity.KindDonor),
	)

	donor.POST("/donations", h.create)
	donor.PATCH("/donations/:id", h.updateStatus)
	donor.DELETE("/donations/:id", h.delete)
	donor.GET("/donations", h.history)
	donor.GET("/campaigns/donated", h.donatedCampaigns)
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

func (h *handler) updateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	principal := middleware.PrincipalFrom(c)
	updated, err := h.service.UpdateStatus(c.Request.Context(), principal.ID, c.Param("id"), &req)
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

func (h *handler) history(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		_ = c.Error(errutil.BadRequest("invalid query parameters", err))
		return
	}

	principal := middleware.PrincipalFrom(c)
	items, info, err := h.service.History(c.Request.Context(), principal.ID, page)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items, "page_info": info})
}

func (h *handler) donatedCampaigns(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)
	campaigns, err := h.service.DonatedCampaigns(c.Request.Context(), principal.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": campaigns})
}
