package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	grpccodes "google.golang.org/grpc/codes"
)

// generateErrorFixtures creates test fixtures with sample metadata for each error type
func generateErrorFixtures() []Error {
	route := RouteMetadata{Source: "ethereum", Destination: "base", Protocol: "cctp"}

	return []Error{
		INTERNAL_ERROR.New("Internal server error occurred").
			WithMetadata(map[string]any{
				"component": "database",
				"operation": "query",
			}),
		INVALID_REQUEST.New("amount must be greater than zero").
			WithMetadata(map[string]any{"amount": 0}),
		INVALID_ROUTE.New("daily cap must be greater than zero").
			WithMetadata(InvalidRouteMetadata{RouteMetadata: route, Field: "daily_cap"}),
		DUPLICATE_ROUTE.New("route already registered").WithMetadata(route),
		ROUTE_NOT_FOUND.New("route not found").WithMetadata(route),
		NO_ELIGIBLE_PROTOCOL.New("no route can serve the transfer").
			WithMetadata(NoEligibleProtocolMetadata{
				Source:      "ethereum",
				Destination: "base",
				Amount:      1000,
				Rejected:    []string{"cctp", "wormhole"},
			}),
		NO_ELIGIBLE_ASSET.New("no settlement asset available").
			WithMetadata(NoEligibleAssetMetadata{Jurisdiction: "EU", Amount: 1000}),
		CAPACITY_EXCEEDED.New("daily cap reached").
			WithMetadata(CapacityMetadata{
				Key:       "ethereum:base:cctp",
				Amount:    100,
				Available: 50,
				DailyCap:  1000,
			}),
		DUPLICATE_REQUEST.New("transfer already submitted").
			WithMetadata(TransferMetadata{TransferId: "abcd"}),
		INCONSISTENT_STATE.New("volume would become negative").
			WithMetadata(InconsistentStateMetadata{
				Key:      "ethereum:base:cctp",
				Volume:   10,
				Credit:   20,
				DailyCap: 1000,
			}),
		TRANSFER_NOT_FOUND.New("transfer not found").
			WithMetadata(TransferMetadata{TransferId: "abcd"}),
		TRANSFER_NOT_PENDING.New("transfer already completed").
			WithMetadata(TransferMetadata{TransferId: "abcd", Status: "completed"}),
		INVALID_ASSET.New("invalid category").WithMetadata(AssetMetadata{Ref: "eurc"}),
		DUPLICATE_ASSET.New("asset already registered").WithMetadata(AssetMetadata{Ref: "eurc"}),
		ASSET_NOT_FOUND.New("asset not found").WithMetadata(AssetMetadata{Ref: "eurc"}),
		UNKNOWN_CHAIN.New("chain not configured").WithMetadata(ChainMetadata{ChainId: "mars"}),
		INVALID_PROTOCOL.New("protocol not registered").
			WithMetadata(ProtocolMetadata{Protocol: "carrier-pigeon"}),
		DUPLICATE_PROTOCOL.New("protocol already registered").
			WithMetadata(ProtocolMetadata{Protocol: "cctp"}),
		RATE_LIMITED.New("too many requests"),
		UNAUTHENTICATED.New("missing bearer token"),
	}
}

func TestErrorFixtures(t *testing.T) {
	fixtures := generateErrorFixtures()

	codes := make(map[uint16]struct{})
	for _, err := range fixtures {
		require.NotNil(t, err)
		require.NotEmpty(t, err.Error())
		require.NotEmpty(t, err.CodeName())
		require.NotEqual(t, grpccodes.OK, err.GrpcCode())
		require.NotNil(t, err.Log())

		_, ok := codes[err.Code()]
		require.False(t, ok, "duplicated code %d", err.Code())
		codes[err.Code()] = struct{}{}
	}
}

func TestErrorMetadata(t *testing.T) {
	err := CAPACITY_EXCEEDED.New("daily cap reached").
		WithMetadata(CapacityMetadata{
			Key:       "ethereum:base:cctp",
			Amount:    100,
			Available: 50,
			DailyCap:  1000,
		})

	metadata := err.Metadata()
	require.Equal(t, "ethereum:base:cctp", metadata["key"])
	require.Equal(t, "100", metadata["amount"])
	require.Equal(t, "50", metadata["available"])
	require.Equal(t, "1000", metadata["daily_cap"])

	embedded := INVALID_ROUTE.New("bad fee").WithMetadata(InvalidRouteMetadata{
		RouteMetadata: RouteMetadata{Source: "a", Destination: "b", Protocol: "x"},
		Field:         "base_fee",
	})
	require.Equal(t, "a", embedded.Metadata()["source"])
	require.Equal(t, "base_fee", embedded.Metadata()["field"])
}

func TestCodeIs(t *testing.T) {
	err := TRANSFER_NOT_FOUND.New("transfer %s not found", "abcd")
	wrapped := fmt.Errorf("lookup failed: %w", err)

	require.True(t, TRANSFER_NOT_FOUND.Is(err))
	require.True(t, TRANSFER_NOT_FOUND.Is(wrapped))
	require.False(t, CAPACITY_EXCEEDED.Is(wrapped))
	require.False(t, TRANSFER_NOT_FOUND.Is(fmt.Errorf("plain error")))
	require.Equal(t, "TRANSFER_NOT_FOUND (10): transfer abcd not found", err.Error())

	cause := fmt.Errorf("disk full")
	require.ErrorIs(t, INTERNAL_ERROR.Wrap(cause), cause)
}
