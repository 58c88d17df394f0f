package handlers

import (
	"fmt"
	"math"
	"time"

	"github.com/arkade-os/bridged/internal/core/application"
	"github.com/gin-gonic/gin"
)

// maxElapsedSeconds keeps the reported elapsed time within a time.Duration.
const maxElapsedSeconds = int64(math.MaxInt64 / time.Second)

type BridgeHandler struct {
	svc application.Service
}

func NewBridgeHandler(svc application.Service) *BridgeHandler {
	return &BridgeHandler{svc}
}

func (h *BridgeHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/quote", h.Quote)
	router.POST("/transfers", h.SubmitTransfer)
	router.GET("/transfers/:id", h.GetTransfer)
	router.POST("/transfers/:id/completion", h.ReportCompletion)
	router.POST("/transfers/:id/cancel", h.CancelTransfer)
}

func (h *BridgeHandler) Quote(c *gin.Context) {
	var body transferRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		invalidRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}
	req, err := parseTransferRequest(body)
	if err != nil {
		invalidRequest(c, err)
		return
	}

	quote, qErr := h.svc.Quote(c.Request.Context(), req)
	if qErr != nil {
		WriteError(c, qErr)
		return
	}
	ok(c, toQuote(*quote))
}

// SubmitTransfer replies 200 also for retried requests, telling them apart with the
// duplicate flag.
func (h *BridgeHandler) SubmitTransfer(c *gin.Context) {
	var body transferRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		invalidRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}
	req, err := parseTransferRequest(body)
	if err != nil {
		invalidRequest(c, err)
		return
	}

	result, sErr := h.svc.Submit(c.Request.Context(), req)
	if sErr != nil {
		WriteError(c, sErr)
		return
	}
	ok(c, submitResponse{
		TransferId: result.TransferId,
		Duplicate:  result.Duplicate,
		Transfer:   toTransfer(result.Transfer),
	})
}

func (h *BridgeHandler) GetTransfer(c *gin.Context) {
	record, err := h.svc.GetTransfer(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	ok(c, toTransfer(*record))
}

func (h *BridgeHandler) ReportCompletion(c *gin.Context) {
	var body reportCompletionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		invalidRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if body.Success == nil {
		invalidRequest(c, fmt.Errorf("missing success"))
		return
	}
	if body.Elapsed < 0 || body.Elapsed > maxElapsedSeconds {
		invalidRequest(c, fmt.Errorf("elapsed must be between 0 and %d seconds", maxElapsedSeconds))
		return
	}

	id := c.Param("id")
	elapsed := time.Duration(body.Elapsed) * time.Second
	if err := h.svc.ReportCompletion(c.Request.Context(), id, *body.Success, elapsed); err != nil {
		WriteError(c, err)
		return
	}
	h.GetTransfer(c)
}

func (h *BridgeHandler) CancelTransfer(c *gin.Context) {
	if err := h.svc.CancelTransfer(c.Request.Context(), c.Param("id")); err != nil {
		WriteError(c, err)
		return
	}
	h.GetTransfer(c)
}
