package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arkade-os/bridged/internal/core/application"
	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	testFees = domain.NewFeeBreakdown(
		decimal.NewFromInt(500), decimal.NewFromInt(3000),
		decimal.NewFromInt(21000), decimal.Zero,
	)
	testTransfer = domain.TransferRecord{
		Id:          "f00d",
		Source:      "ethereum",
		Destination: "arbitrum",
		Asset:       "usdc",
		Amount:      1000,
		Sender:      "0xsender",
		Recipient:   "0xrecipient",
		Urgency:     domain.UrgencyFast,
		Protocol:    "wormhole",
		Format:      domain.FormatInline,
		Fees:        testFees,
		Status:      domain.TransferPending,
		CreatedAt:   1700000000,
	}
)

func newTestRouter(svc *mockService, adminSvc *mockAdminService) *gin.Engine {
	router := gin.New()
	NewBridgeHandler(svc).RegisterRoutes(router.Group("/v1"))
	NewAdminHandler(adminSvc, svc).RegisterRoutes(router.Group("/v1/admin"))
	return router
}

func doRequest(
	t *testing.T, router http.Handler, method, path string, body any,
) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestBridgeHandler(t *testing.T) {
	body := map[string]any{
		"source":      "ethereum",
		"destination": "arbitrum",
		"asset":       "usdc",
		"amount":      1000,
		"sender":      "0xsender",
		"recipient":   "0xrecipient",
		"urgency":     "fast",
		"payload":     "0xcafe",
		"nonce":       7,
	}
	isParsedRequest := mock.MatchedBy(func(req domain.TransferRequest) bool {
		return req.Urgency == domain.UrgencyFast &&
			bytes.Equal(req.Payload, []byte{0xca, 0xfe}) &&
			req.Amount == 1000 && req.Nonce == 7
	})

	t.Run("quote", func(t *testing.T) {
		svc := &mockService{}
		svc.On("Quote", mock.Anything, isParsedRequest).Return(&application.Quote{
			Protocol: "wormhole",
			Format: application.FormatEstimate{
				Format:     domain.FormatInline,
				Cost:       decimal.NewFromInt(32),
				InlineCost: decimal.NewFromInt(32),
				BlobCost:   decimal.Zero,
			},
			Fees:          testFees,
			EstimatedTime: 3 * time.Minute,
			Score:         application.ScoredProtocol{Protocol: "wormhole", Score: 80},
			Alternatives: []application.ScoredProtocol{
				{Protocol: "axelar", Score: 60},
			},
		}, nil)
		router := newTestRouter(svc, &mockAdminService{})

		rec := doRequest(t, router, http.MethodPost, "/v1/quote", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[quoteResponse](t, rec)
		require.Equal(t, "wormhole", resp.Protocol)
		require.Equal(t, "inline", resp.Format.Format)
		require.Equal(t, "24500", resp.Fees.Total)
		require.Equal(t, int64(180), resp.EstimatedTime)
		require.Equal(t, 80, resp.Score.Score)
		require.Len(t, resp.Alternatives, 1)
		require.Equal(t, "axelar", resp.Alternatives[0].Protocol)
		svc.AssertExpectations(t)
	})

	t.Run("submit", func(t *testing.T) {
		testCases := []struct {
			name      string
			duplicate bool
		}{
			{"new transfer", false},
			{"retried transfer", true},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				svc := &mockService{}
				svc.On("Submit", mock.Anything, isParsedRequest).Return(
					&application.SubmitResult{
						TransferId: testTransfer.Id,
						Duplicate:  tc.duplicate,
						Transfer:   testTransfer,
					}, nil,
				)
				router := newTestRouter(svc, &mockAdminService{})

				rec := doRequest(t, router, http.MethodPost, "/v1/transfers", body)
				require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

				resp := decode[submitResponse](t, rec)
				require.Equal(t, testTransfer.Id, resp.TransferId)
				require.Equal(t, tc.duplicate, resp.Duplicate)
				require.Equal(t, "pending", resp.Transfer.Status)
				require.Equal(t, "fast", resp.Transfer.Urgency)
				require.Equal(t, "3000", resp.Transfer.Fees.ProtocolFee)
			})
		}
	})

	t.Run("invalid", func(t *testing.T) {
		testCases := []struct {
			name string
			path string
			body any
		}{
			{
				name: "malformed body",
				path: "/v1/quote",
				body: "{",
			},
			{
				name: "unknown urgency",
				path: "/v1/quote",
				body: map[string]any{"source": "ethereum", "urgency": "asap"},
			},
			{
				name: "payload not hex",
				path: "/v1/transfers",
				body: map[string]any{"source": "ethereum", "payload": "zz"},
			},
			{
				name: "completion without outcome",
				path: "/v1/transfers/f00d/completion",
				body: map[string]any{"elapsed": 10},
			},
			{
				name: "payload too large",
				path: "/v1/transfers",
				body: map[string]any{
					"source":  "ethereum",
					"urgency": "fast",
					"payload": strings.Repeat("ab", domain.MaxPayloadSize+1),
				},
			},
			{
				name: "elapsed overflows",
				path: "/v1/transfers/f00d/completion",
				body: map[string]any{"success": true, "elapsed": maxElapsedSeconds + 1},
			},
			{
				name: "negative elapsed",
				path: "/v1/transfers/f00d/completion",
				body: map[string]any{"success": false, "elapsed": -1},
			},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				svc := &mockService{}
				router := newTestRouter(svc, &mockAdminService{})

				rec := doRequest(t, router, http.MethodPost, tc.path, tc.body)
				require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

				resp := decode[errorResponse](t, rec)
				require.Equal(t, errors.INVALID_REQUEST.Code, resp.Code)
				require.Equal(t, errors.INVALID_REQUEST.Name, resp.Name)
				svc.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything)
				svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
				svc.AssertNotCalled(
					t, "ReportCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
				)
			})
		}
	})

	t.Run("errors map to http status", func(t *testing.T) {
		testCases := []struct {
			name           string
			err            errors.Error
			expectedStatus int
		}{
			{
				name: "capacity exceeded",
				err: errors.CAPACITY_EXCEEDED.New("not enough capacity").
					WithMetadata(errors.CapacityMetadata{
						Key: "ethereum:arbitrum:wormhole", Amount: 1000, Available: 900,
					}),
				expectedStatus: http.StatusTooManyRequests,
			},
			{
				name:           "no eligible protocol",
				err:            errors.NO_ELIGIBLE_PROTOCOL.New("no route"),
				expectedStatus: http.StatusBadRequest,
			},
			{
				name:           "unknown chain",
				err:            errors.UNKNOWN_CHAIN.New("unknown chain"),
				expectedStatus: http.StatusBadRequest,
			},
			{
				name:           "internal",
				err:            errors.INTERNAL_ERROR.New("db is down"),
				expectedStatus: http.StatusInternalServerError,
			},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				svc := &mockService{}
				svc.On("Submit", mock.Anything, mock.Anything).Return(nil, tc.err)
				router := newTestRouter(svc, &mockAdminService{})

				rec := doRequest(t, router, http.MethodPost, "/v1/transfers", body)
				require.Equal(t, tc.expectedStatus, rec.Code, rec.Body.String())

				resp := decode[errorResponse](t, rec)
				require.Equal(t, tc.err.Code(), resp.Code)
				require.Equal(t, tc.err.CodeName(), resp.Name)
			})
		}

		t.Run("metadata", func(t *testing.T) {
			svc := &mockService{}
			svc.On("Submit", mock.Anything, mock.Anything).Return(
				nil, errors.CAPACITY_EXCEEDED.New("not enough capacity").
					WithMetadata(errors.CapacityMetadata{
						Key: "ethereum:arbitrum:wormhole", Amount: 1000, Available: 900,
					}),
			)
			router := newTestRouter(svc, &mockAdminService{})

			rec := doRequest(t, router, http.MethodPost, "/v1/transfers", body)
			resp := decode[errorResponse](t, rec)
			require.Equal(t, "ethereum:arbitrum:wormhole", resp.Metadata["key"])
			require.Equal(t, "900", resp.Metadata["available"])
		})
	})

	t.Run("get transfer", func(t *testing.T) {
		svc := &mockService{}
		svc.On("GetTransfer", mock.Anything, testTransfer.Id).Return(&testTransfer, nil)
		svc.On("GetTransfer", mock.Anything, "unknown").Return(
			nil, errors.TRANSFER_NOT_FOUND.New("transfer unknown not found").
				WithMetadata(errors.TransferMetadata{TransferId: "unknown"}),
		)
		router := newTestRouter(svc, &mockAdminService{})

		rec := doRequest(t, router, http.MethodGet, "/v1/transfers/f00d", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "wormhole", decode[transfer](t, rec).Protocol)

		rec = doRequest(t, router, http.MethodGet, "/v1/transfers/unknown", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "unknown", decode[errorResponse](t, rec).Metadata["transfer_id"])
	})

	t.Run("report completion", func(t *testing.T) {
		completed := testTransfer
		completed.Status = domain.TransferCompleted
		completed.Elapsed = 90 * time.Second

		svc := &mockService{}
		svc.On("ReportCompletion", mock.Anything, testTransfer.Id, true, 90*time.Second).
			Return(nil)
		svc.On("GetTransfer", mock.Anything, testTransfer.Id).Return(&completed, nil)
		router := newTestRouter(svc, &mockAdminService{})

		rec := doRequest(
			t, router, http.MethodPost, "/v1/transfers/f00d/completion",
			map[string]any{"success": true, "elapsed": 90},
		)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[transfer](t, rec)
		require.Equal(t, "completed", resp.Status)
		require.Equal(t, int64(90), resp.Elapsed)
		svc.AssertExpectations(t)
	})

	t.Run("cancel", func(t *testing.T) {
		svc := &mockService{}
		svc.On("CancelTransfer", mock.Anything, testTransfer.Id).Return(
			errors.TRANSFER_NOT_PENDING.New("transfer f00d is completed"),
		)
		router := newTestRouter(svc, &mockAdminService{})

		rec := doRequest(t, router, http.MethodPost, "/v1/transfers/f00d/cancel", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, errors.TRANSFER_NOT_PENDING.Name, decode[errorResponse](t, rec).Name)
	})
}

func TestAdminHandler(t *testing.T) {
	t.Run("register protocol", func(t *testing.T) {
		adminSvc := &mockAdminService{}
		adminSvc.On(
			"RegisterProtocol", mock.Anything, "wormhole", uint32(30), 3*time.Minute,
		).Return(&domain.Protocol{
			Name: "wormhole", FeeBps: 30, ExpectedTime: 3 * time.Minute, Sequence: 1,
		}, nil)
		router := newTestRouter(&mockService{}, adminSvc)

		rec := doRequest(t, router, http.MethodPost, "/v1/admin/protocols", map[string]any{
			"name": "wormhole", "feeBps": 30, "expectedTime": 180,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[protocol](t, rec)
		require.Equal(t, uint64(1), resp.Sequence)
		require.Equal(t, int64(180), resp.ExpectedTime)
	})

	t.Run("register duplicate route", func(t *testing.T) {
		config := application.RouteConfig{
			Source:      "ethereum",
			Destination: "arbitrum",
			Protocol:    "wormhole",
			BaseFee:     500,
			DailyCap:    1000,
		}
		adminSvc := &mockAdminService{}
		adminSvc.On("RegisterRoute", mock.Anything, config).Return(
			nil, errors.DUPLICATE_ROUTE.New("route already exists"),
		)
		router := newTestRouter(&mockService{}, adminSvc)

		rec := doRequest(t, router, http.MethodPost, "/v1/admin/routes", map[string]any{
			"source":      "ethereum",
			"destination": "arbitrum",
			"protocol":    "wormhole",
			"baseFee":     500,
			"dailyCap":    1000,
		})
		require.Equal(t, http.StatusConflict, rec.Code)
		adminSvc.AssertExpectations(t)
	})

	t.Run("route capacity", func(t *testing.T) {
		key := domain.RouteKey{Source: "ethereum", Destination: "arbitrum", Protocol: "wormhole"}
		adminSvc := &mockAdminService{}
		adminSvc.On("GetRouteCapacity", mock.Anything, key).Return(&application.RouteCapacity{
			Key: key, Active: true, DailyCap: 1000, Available: 100, LastReset: 1700000000,
		}, nil)
		router := newTestRouter(&mockService{}, adminSvc)

		rec := doRequest(
			t, router, http.MethodGet,
			"/v1/admin/routes/capacity?source=ethereum&destination=arbitrum&protocol=wormhole",
			nil,
		)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[routeCapacity](t, rec)
		require.Equal(t, uint64(100), resp.Available)
		require.Equal(t, "wormhole", resp.Protocol)
	})

	t.Run("register settlement asset", func(t *testing.T) {
		adminSvc := &mockAdminService{}
		adminSvc.On("RegisterSettlementAsset", mock.Anything, application.SettlementAssetConfig{
			Ref:          "eurc",
			Category:     domain.CategoryFiatStablecoin,
			Jurisdiction: "EU",
			DailyCap:     5000,
		}).Return(&domain.SettlementAsset{
			Ref:          "eurc",
			Category:     domain.CategoryFiatStablecoin,
			Jurisdiction: "EU",
			Active:       true,
		}, nil)
		router := newTestRouter(&mockService{}, adminSvc)

		rec := doRequest(t, router, http.MethodPost, "/v1/admin/assets", map[string]any{
			"ref": "eurc", "category": "fiat-stablecoin", "jurisdiction": "EU", "dailyCap": 5000,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Equal(t, "fiat-stablecoin", decode[settlementAsset](t, rec).Category)

		rec = doRequest(t, router, http.MethodPost, "/v1/admin/assets", map[string]any{
			"ref": "gold", "category": "shiny-rock", "dailyCap": 5000,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		adminSvc.AssertNumberOfCalls(t, "RegisterSettlementAsset", 1)
	})

	t.Run("jurisdiction preferences", func(t *testing.T) {
		categories := []domain.AssetCategory{
			domain.CategoryFiatStablecoin, domain.CategoryCentralBank,
		}
		adminSvc := &mockAdminService{}
		adminSvc.On("SetJurisdictionPreferences", mock.Anything, "EU", categories).Return(nil)
		adminSvc.On("GetJurisdictionPreferences", mock.Anything, "EU").Return(categories, nil)
		router := newTestRouter(&mockService{}, adminSvc)

		rec := doRequest(
			t, router, http.MethodPut, "/v1/admin/jurisdictions/EU/preferences",
			map[string]any{"preferences": []string{"fiat-stablecoin", "central-bank"}},
		)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[preferences](t, rec)
		require.Equal(t, "EU", resp.Jurisdiction)
		require.Equal(t, []string{"fiat-stablecoin", "central-bank"}, resp.Preferences)
		adminSvc.AssertExpectations(t)
	})

	t.Run("list transfers", func(t *testing.T) {
		svc := &mockService{}
		svc.On("ListTransfers", mock.Anything, []domain.TransferStatus{
			domain.TransferPending, domain.TransferFailed, domain.TransferCancelled,
		}).Return([]domain.TransferRecord{testTransfer}, nil)
		router := newTestRouter(svc, &mockAdminService{})

		rec := doRequest(
			t, router, http.MethodGet,
			"/v1/admin/transfers?status=pending,failed&status=cancelled", nil,
		)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Len(t, decode[listTransfersResponse](t, rec).Transfers, 1)

		rec = doRequest(t, router, http.MethodGet, "/v1/admin/transfers?status=lost", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNumberOfCalls(t, "ListTransfers", 1)
	})

	t.Run("transfer events", func(t *testing.T) {
		adminSvc := &mockAdminService{}
		adminSvc.On("GetTransferEvents", mock.Anything, testTransfer.Id).Return(
			[]domain.Event{
				domain.NewTransferAccepted(testTransfer),
			}, nil,
		)
		router := newTestRouter(&mockService{}, adminSvc)

		rec := doRequest(t, router, http.MethodGet, "/v1/admin/transfers/f00d/events", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[struct {
			Events []transferEvent `json:"events"`
		}](t, rec)
		require.Len(t, resp.Events, 1)
		require.Equal(t, "TransferAccepted", resp.Events[0].Type)
	})

	t.Run("fee program", func(t *testing.T) {
		adminSvc := &mockAdminService{}
		adminSvc.On("UpdateFeeProgram", mock.Anything, "amount +").Return(
			errors.INVALID_REQUEST.New("failed to compile program"),
		)
		adminSvc.On("UpdateFeeProgram", mock.Anything, "0.0").Return(nil)
		adminSvc.On("GetFeeProgram", mock.Anything).Return("0.0")
		router := newTestRouter(&mockService{}, adminSvc)

		rec := doRequest(
			t, router, http.MethodPut, "/v1/admin/fee-program", feeProgram{Program: "amount +"},
		)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doRequest(
			t, router, http.MethodPut, "/v1/admin/fee-program", feeProgram{Program: "0.0"},
		)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "0.0", decode[feeProgram](t, rec).Program)
	})
}
