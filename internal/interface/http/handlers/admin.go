package handlers

import (
	"fmt"
	"time"

	"github.com/arkade-os/bridged/internal/core/application"
	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	adminSvc application.AdminService
	svc      application.Service
}

func NewAdminHandler(adminSvc application.AdminService, svc application.Service) *AdminHandler {
	return &AdminHandler{adminSvc, svc}
}

func (h *AdminHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/protocols", h.ListProtocols)
	router.POST("/protocols", h.RegisterProtocol)
	router.GET("/routes", h.ListRoutes)
	router.POST("/routes", h.RegisterRoute)
	router.POST("/routes/deactivate", h.DeactivateRoute)
	router.GET("/routes/capacity", h.GetRouteCapacity)
	router.GET("/assets", h.ListSettlementAssets)
	router.POST("/assets", h.RegisterSettlementAsset)
	router.POST("/assets/:ref/deactivate", h.DeactivateSettlementAsset)
	router.GET("/jurisdictions/:jurisdiction/preferences", h.GetJurisdictionPreferences)
	router.PUT("/jurisdictions/:jurisdiction/preferences", h.SetJurisdictionPreferences)
	router.GET("/stats", h.GetProtocolStats)
	router.GET("/chains", h.ListChains)
	router.GET("/transfers", h.ListTransfers)
	router.GET("/transfers/:id/events", h.GetTransferEvents)
	router.GET("/fee-program", h.GetFeeProgram)
	router.PUT("/fee-program", h.UpdateFeeProgram)
}

func (h *AdminHandler) RegisterProtocol(c *gin.Context) {
	var body registerProtocolRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		invalidRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	p, err := h.adminSvc.RegisterProtocol(
		c.Request.Context(), body.Name, body.FeeBps, time.Duration(body.ExpectedTime)*time.Second,
	)
	if err != nil {
		WriteError(c, err)
		return
	}
	ok(c, toProtocol(*p))
}

func (h *AdminHandler) ListProtocols(c *gin.Context) {
	protocols, err := h.adminSvc.ListProtocols(c.Request.Context())
	if err != nil {
		WriteError(c, err)
		return
	}
	list := make([]protocol, 0, len(protocols))
	for _, p := range protocols {
		list = append(list, toProtocol(p))
	}
	ok(c, gin.H{"protocols": list})
}

func (h *AdminHandler) RegisterRoute(c *gin.Context) {
	var body registerRouteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		invalidRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	r, err := h.adminSvc.RegisterRoute(c.Request.Context(), application.RouteConfig{
		Source:               body.Source,
		Destination:          body.Destination,
		Protocol:             body.Protocol,
		BaseFee:              body.BaseFee,
		DestinationGasBudget: body.DestinationGasBudget,
		DailyCap:             body.DailyCap,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	ok(c, toRoute(*r))
}

func (h *AdminHandler) DeactivateRoute(c *gin.Context) {
	var body routeKey
	if err := c.ShouldBindJSON(&body); err != nil {
		invalidRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	if err := h.adminSvc.DeactivateRoute(c.Request.Context(), body.toDomain()); err != nil {
		WriteError(c, err)
		return
	}
	ok(c, gin.H{})
}

func (h *AdminHandler) ListRoutes(c *gin.Context) {
	routes, err := h.adminSvc.ListRoutes(c.Request.Context())
	if err != nil {
		WriteError(c, err)
		return
	}
	list := make([]route, 0, len(routes))
	for _, r := range routes {
		list = append(list, toRoute(r))
	}
	ok(c, gin.H{"routes": list})
}

func (h *AdminHandler) GetRouteCapacity(c *gin.Context) {
	var key routeKey
	if err := c.ShouldBindQuery(&key); err != nil {
		invalidRequest(c, fmt.Errorf("invalid query: %w", err))
		return
	}

	capacity, err := h.adminSvc.GetRouteCapacity(c.Request.Context(), key.toDomain())
	if err != nil {
		WriteError(c, err)
		return
	}
	ok(c, routeCapacity{
		routeKey:  toRouteKey(capacity.Key),
		Active:    capacity.Active,
		DailyCap:  capacity.DailyCap,
		Available: capacity.Available,
		LastReset: capacity.LastReset,
	})
}

func (h *AdminHandler) RegisterSettlementAsset(c *gin.Context) {
	var body registerAssetRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		invalidRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}
	category, err := domain.ParseAssetCategory(body.Category)
	if err != nil {
		invalidRequest(c, err)
		return
	}

	asset, aErr := h.adminSvc.RegisterSettlementAsset(
		c.Request.Context(), application.SettlementAssetConfig{
			Ref:          body.Ref,
			Category:     category,
			Jurisdiction: body.Jurisdiction,
			DailyCap:     body.DailyCap,
			Preferred:    body.Preferred,
		},
	)
	if aErr != nil {
		WriteError(c, aErr)
		return
	}
	ok(c, toSettlementAsset(*asset))
}

func (h *AdminHandler) DeactivateSettlementAsset(c *gin.Context) {
	if err := h.adminSvc.DeactivateSettlementAsset(
		c.Request.Context(), c.Param("ref"),
	); err != nil {
		WriteError(c, err)
		return
	}
	ok(c, gin.H{})
}

func (h *AdminHandler) ListSettlementAssets(c *gin.Context) {
	assets, err := h.adminSvc.ListSettlementAssets(c.Request.Context())
	if err != nil {
		WriteError(c, err)
		return
	}
	list := make([]settlementAsset, 0, len(assets))
	for _, a := range assets {
		list = append(list, toSettlementAsset(a))
	}
	ok(c, gin.H{"assets": list})
}

func (h *AdminHandler) SetJurisdictionPreferences(c *gin.Context) {
	var body preferences
	if err := c.ShouldBindJSON(&body); err != nil {
		invalidRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}
	categories, err := parseCategories(body.Preferences)
	if err != nil {
		invalidRequest(c, err)
		return
	}

	jurisdiction := c.Param("jurisdiction")
	if err := h.adminSvc.SetJurisdictionPreferences(
		c.Request.Context(), jurisdiction, categories,
	); err != nil {
		WriteError(c, err)
		return
	}
	h.GetJurisdictionPreferences(c)
}

func (h *AdminHandler) GetJurisdictionPreferences(c *gin.Context) {
	jurisdiction := c.Param("jurisdiction")
	categories, err := h.adminSvc.GetJurisdictionPreferences(c.Request.Context(), jurisdiction)
	if err != nil {
		WriteError(c, err)
		return
	}
	names := make([]string, 0, len(categories))
	for _, category := range categories {
		names = append(names, category.String())
	}
	ok(c, preferences{Jurisdiction: jurisdiction, Preferences: names})
}

func (h *AdminHandler) GetProtocolStats(c *gin.Context) {
	stats, err := h.adminSvc.GetProtocolStats(c.Request.Context())
	if err != nil {
		WriteError(c, err)
		return
	}
	list := make([]protocolStats, 0, len(stats))
	for _, s := range stats {
		list = append(list, toProtocolStats(s))
	}
	ok(c, gin.H{"stats": list})
}

func (h *AdminHandler) ListChains(c *gin.Context) {
	chains, err := h.adminSvc.ListChains(c.Request.Context())
	if err != nil {
		WriteError(c, err)
		return
	}
	list := make([]chain, 0, len(chains))
	for _, ch := range chains {
		list = append(list, toChain(ch))
	}
	ok(c, gin.H{"chains": list})
}

// ListTransfers accepts repeated or comma separated status filters, e.g.
// ?status=pending,failed.
func (h *AdminHandler) ListTransfers(c *gin.Context) {
	statuses, err := parseStatuses(c.QueryArray("status"))
	if err != nil {
		invalidRequest(c, err)
		return
	}

	transfers, lErr := h.svc.ListTransfers(c.Request.Context(), statuses...)
	if lErr != nil {
		WriteError(c, lErr)
		return
	}
	list := make([]transfer, 0, len(transfers))
	for _, t := range transfers {
		list = append(list, toTransfer(t))
	}
	ok(c, listTransfersResponse{Transfers: list})
}

func (h *AdminHandler) GetTransferEvents(c *gin.Context) {
	events, err := h.adminSvc.GetTransferEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	list := make([]transferEvent, 0, len(events))
	for _, e := range events {
		list = append(list, toTransferEvent(e))
	}
	ok(c, gin.H{"events": list})
}

func (h *AdminHandler) GetFeeProgram(c *gin.Context) {
	ok(c, feeProgram{Program: h.adminSvc.GetFeeProgram(c.Request.Context())})
}

func (h *AdminHandler) UpdateFeeProgram(c *gin.Context) {
	var body feeProgram
	if err := c.ShouldBindJSON(&body); err != nil {
		invalidRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := h.adminSvc.UpdateFeeProgram(c.Request.Context(), body.Program); err != nil {
		WriteError(c, err)
		return
	}
	h.GetFeeProgram(c)
}
