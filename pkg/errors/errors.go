package errors

import (
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	grpccodes "google.golang.org/grpc/codes"
)

// Code is the type representing a namespace error code.
type Code[MT any] struct {
	Code     uint16
	Name     string
	GrpcCode grpccodes.Code
}

// New creates a new error with the given code and the message
func (c Code[MT]) New(msg string, args ...any) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: fmt.Errorf(msg, args...),
	}
}

// Wrap creates a new Error with the given code and the cause error
func (c Code[MT]) Wrap(cause error) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: cause,
	}
}

func (c Code[MT]) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Code)
}

// Is reports whether err carries this code anywhere in its chain.
func (c Code[MT]) Is(err error) bool {
	var typed Error
	if !errors.As(err, &typed) {
		return false
	}
	return typed.Code() == c.Code
}

type Error interface {
	error
	Log() *log.Entry
	Code() uint16
	CodeName() string
	GrpcCode() grpccodes.Code
	Metadata() map[string]string
}

type TypedError[MT any] interface {
	Error
	WithMetadata(MT) TypedError[MT]
}

// ErrorImpl is the default concrete implementation of TypedError.
type ErrorImpl[MT any] struct {
	code     Code[MT]
	cause    error
	metadata MT
}

func (e *ErrorImpl[MT]) Log() *log.Entry {
	return log.WithField("name", e.code.Name).
		WithField("code", e.code.Code).
		WithField("metadata", e.metadata)
}

func (e *ErrorImpl[MT]) Metadata() map[string]string {
	// convert any metadata to map[string]string
	metadata := make(map[string]string)
	buf, err := json.Marshal(e.metadata)
	if err == nil {
		var genericMap map[string]any
		if err := json.Unmarshal(buf, &genericMap); err == nil {
			for k, v := range genericMap {
				vStr := ""
				if v != nil {
					vStr = fmt.Sprintf("%v", v)
				}
				metadata[k] = vStr
			}
		}
	}
	return metadata
}

func (e *ErrorImpl[MT]) GrpcCode() grpccodes.Code {
	return e.code.GrpcCode
}

func (e *ErrorImpl[MT]) Code() uint16 {
	return e.code.Code
}

func (e *ErrorImpl[MT]) CodeName() string {
	return e.code.Name
}

// Error() implements the error interface.
func (e *ErrorImpl[MT]) Error() string {
	return fmt.Sprintf("%s: %s", e.code.String(), e.cause.Error())
}

func (e *ErrorImpl[MT]) Unwrap() error {
	return e.cause
}

func (e *ErrorImpl[MT]) WithMetadata(metadata MT) TypedError[MT] {
	e.metadata = metadata
	return e
}

type RouteMetadata struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Protocol    string `json:"protocol"`
}

type InvalidRouteMetadata struct {
	RouteMetadata
	Field string `json:"field"`
}

type CapacityMetadata struct {
	Key       string `json:"key"`
	Amount    uint64 `json:"amount"`
	Available uint64 `json:"available"`
	DailyCap  uint64 `json:"daily_cap"`
}

type NoEligibleProtocolMetadata struct {
	Source      string   `json:"source"`
	Destination string   `json:"destination"`
	Amount      uint64   `json:"amount"`
	Rejected    []string `json:"rejected"`
}

type NoEligibleAssetMetadata struct {
	Jurisdiction string `json:"jurisdiction"`
	Amount       uint64 `json:"amount"`
}

type TransferMetadata struct {
	TransferId string `json:"transfer_id"`
	Status     string `json:"status,omitempty"`
}

type AssetMetadata struct {
	Ref string `json:"ref"`
}

type ChainMetadata struct {
	ChainId string `json:"chain_id"`
}

type ProtocolMetadata struct {
	Protocol string `json:"protocol"`
}

type InconsistentStateMetadata struct {
	Key      string `json:"key"`
	Volume   uint64 `json:"volume"`
	Credit   uint64 `json:"credit"`
	DailyCap uint64 `json:"daily_cap"`
}

var INTERNAL_ERROR = Code[map[string]any]{0, "INTERNAL_ERROR", grpccodes.Internal}
var INVALID_REQUEST = Code[map[string]any]{1, "INVALID_REQUEST", grpccodes.InvalidArgument}
var INVALID_ROUTE = Code[InvalidRouteMetadata]{2, "INVALID_ROUTE", grpccodes.InvalidArgument}
var DUPLICATE_ROUTE = Code[RouteMetadata]{3, "DUPLICATE_ROUTE", grpccodes.AlreadyExists}
var ROUTE_NOT_FOUND = Code[RouteMetadata]{4, "ROUTE_NOT_FOUND", grpccodes.NotFound}

var NO_ELIGIBLE_PROTOCOL = Code[NoEligibleProtocolMetadata]{
	5,
	"NO_ELIGIBLE_PROTOCOL",
	grpccodes.FailedPrecondition,
}

var NO_ELIGIBLE_ASSET = Code[NoEligibleAssetMetadata]{
	6,
	"NO_ELIGIBLE_ASSET",
	grpccodes.FailedPrecondition,
}

var CAPACITY_EXCEEDED = Code[CapacityMetadata]{
	7,
	"CAPACITY_EXCEEDED",
	grpccodes.ResourceExhausted,
}
var DUPLICATE_REQUEST = Code[TransferMetadata]{8, "DUPLICATE_REQUEST", grpccodes.AlreadyExists}

var INCONSISTENT_STATE = Code[InconsistentStateMetadata]{
	9,
	"INCONSISTENT_STATE",
	grpccodes.Internal,
}
var TRANSFER_NOT_FOUND = Code[TransferMetadata]{10, "TRANSFER_NOT_FOUND", grpccodes.NotFound}

var TRANSFER_NOT_PENDING = Code[TransferMetadata]{
	11,
	"TRANSFER_NOT_PENDING",
	grpccodes.FailedPrecondition,
}
var INVALID_ASSET = Code[AssetMetadata]{12, "INVALID_ASSET", grpccodes.InvalidArgument}
var DUPLICATE_ASSET = Code[AssetMetadata]{13, "DUPLICATE_ASSET", grpccodes.AlreadyExists}
var ASSET_NOT_FOUND = Code[AssetMetadata]{14, "ASSET_NOT_FOUND", grpccodes.NotFound}
var UNKNOWN_CHAIN = Code[ChainMetadata]{15, "UNKNOWN_CHAIN", grpccodes.InvalidArgument}
var INVALID_PROTOCOL = Code[ProtocolMetadata]{16, "INVALID_PROTOCOL", grpccodes.InvalidArgument}

var DUPLICATE_PROTOCOL = Code[ProtocolMetadata]{
	17,
	"DUPLICATE_PROTOCOL",
	grpccodes.AlreadyExists,
}

var RATE_LIMITED = Code[map[string]any]{18, "RATE_LIMITED", grpccodes.ResourceExhausted}
var UNAUTHENTICATED = Code[map[string]any]{19, "UNAUTHENTICATED", grpccodes.Unauthenticated}
