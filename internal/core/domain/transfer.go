package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxPayloadSize bounds the opaque extra data carried by a transfer request.
const MaxPayloadSize = 1 << 20

var (
	ErrTransferExists   = errors.New("transfer already exists")
	ErrTransferNotFound = errors.New("transfer not found")
)

type Urgency uint8

const (
	UrgencyEconomy Urgency = iota
	UrgencyStandard
	UrgencyFast
)

var urgencyNames = []string{"economy", "standard", "fast"}

func (u Urgency) IsValid() bool {
	return int(u) < len(urgencyNames)
}

func (u Urgency) String() string {
	if !u.IsValid() {
		return "unknown"
	}
	return urgencyNames[u]
}

func (u Urgency) MarshalText() ([]byte, error) {
	if !u.IsValid() {
		return nil, fmt.Errorf("invalid urgency %d", u)
	}
	return []byte(u.String()), nil
}

func (u *Urgency) UnmarshalText(text []byte) error {
	parsed, err := ParseUrgency(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

func ParseUrgency(s string) (Urgency, error) {
	if s == "" {
		return UrgencyStandard, nil
	}
	for i, name := range urgencyNames {
		if strings.EqualFold(name, s) {
			return Urgency(i), nil
		}
	}
	return 0, fmt.Errorf("unknown urgency %q", s)
}

type DataFormat string

const (
	FormatInline DataFormat = "inline"
	FormatBlob   DataFormat = "blob"
)

type TransferStatus uint8

const (
	TransferPending TransferStatus = iota
	TransferCompleted
	TransferFailed
	TransferCancelled
)

var transferStatusNames = []string{"pending", "completed", "failed", "cancelled"}

func (s TransferStatus) String() string {
	if int(s) >= len(transferStatusNames) {
		return "unknown"
	}
	return transferStatusNames[s]
}

func (s TransferStatus) IsTerminal() bool {
	return s != TransferPending
}

func (s TransferStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *TransferStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseTransferStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseTransferStatus(s string) (TransferStatus, error) {
	for i, name := range transferStatusNames {
		if strings.EqualFold(name, s) {
			return TransferStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown transfer status %q", s)
}

// TransferRequest is produced by the caller and consumed in a single pass.
// Nonce is chosen by the caller: resubmitting the same request with the same nonce is
// recognized as a retry.
type TransferRequest struct {
	Source                 string
	Destination            string
	Asset                  string
	Amount                 uint64
	Sender                 string
	Recipient              string
	Urgency                Urgency
	Payload                []byte
	SettlementJurisdiction string
	Nonce                  uint64
}

func (r TransferRequest) Validate() error {
	if r.Amount == 0 {
		return fmt.Errorf("amount must be greater than zero")
	}
	if r.Source == "" || r.Destination == "" {
		return fmt.Errorf("missing source or destination network")
	}
	if r.Source == r.Destination {
		return fmt.Errorf("source and destination networks must differ")
	}
	if r.Asset == "" {
		return fmt.Errorf("missing asset")
	}
	if r.Recipient == "" {
		return fmt.Errorf("missing recipient")
	}
	if !r.Urgency.IsValid() {
		return fmt.Errorf("invalid urgency %d", r.Urgency)
	}
	if len(r.Payload) > MaxPayloadSize {
		return fmt.Errorf(
			"payload of %d bytes exceeds max size of %d bytes", len(r.Payload), MaxPayloadSize,
		)
	}
	return nil
}

func (r TransferRequest) RouteKey(protocol string) RouteKey {
	return RouteKey{Source: r.Source, Destination: r.Destination, Protocol: protocol}
}

// Fingerprint deterministically identifies the request. Strings are length prefixed so that
// no two different requests serialize to the same bytes.
func (r TransferRequest) Fingerprint() string {
	h := sha256.New()
	writeString := func(s string) {
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(len(s)))
		h.Write(size[:])
		h.Write([]byte(s))
	}
	writeUint := func(v uint64) {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}

	writeString(r.Source)
	writeString(r.Destination)
	writeString(r.Asset)
	writeUint(r.Amount)
	writeString(r.Sender)
	writeString(r.Recipient)
	writeUint(uint64(r.Urgency))
	payloadHash := sha256.Sum256(r.Payload)
	h.Write(payloadHash[:])
	writeString(r.SettlementJurisdiction)
	writeUint(r.Nonce)

	return hex.EncodeToString(h.Sum(nil))
}

// FeeBreakdown components are rounded up. BaseFee and ProtocolFee are in the smallest unit of
// the transferred asset, DestinationGas and DataCost in the smallest unit of the destination
// chain gas token. Total is the plain sum of the components, no conversion between the two
// units is made.
type FeeBreakdown struct {
	BaseFee        decimal.Decimal
	ProtocolFee    decimal.Decimal
	DestinationGas decimal.Decimal
	DataCost       decimal.Decimal
	Total          decimal.Decimal
}

func NewFeeBreakdown(baseFee, protocolFee, destinationGas, dataCost decimal.Decimal) FeeBreakdown {
	baseFee = baseFee.Ceil()
	protocolFee = protocolFee.Ceil()
	destinationGas = destinationGas.Ceil()
	dataCost = dataCost.Ceil()
	return FeeBreakdown{
		BaseFee:        baseFee,
		ProtocolFee:    protocolFee,
		DestinationGas: destinationGas,
		DataCost:       dataCost,
		Total:          baseFee.Add(protocolFee).Add(destinationGas).Add(dataCost),
	}
}

type TransferRecord struct {
	Id                     string
	Source                 string
	Destination            string
	Asset                  string
	Amount                 uint64
	Sender                 string
	Recipient              string
	Urgency                Urgency
	PayloadSize            int
	SettlementJurisdiction string
	Protocol               string
	Format                 DataFormat
	Fees                   FeeBreakdown
	SettlementAsset        string
	Status                 TransferStatus
	// RouteWindow and AssetWindow are the starts of the daily windows the reservations were
	// debited in.
	RouteWindow int64
	AssetWindow int64
	CreatedAt   int64
	CompletedAt int64
	Elapsed     time.Duration
}

func NewTransferRecord(
	req TransferRequest, protocol string, format DataFormat, fees FeeBreakdown,
	settlementAsset string, routeWindow, assetWindow int64, now time.Time,
) TransferRecord {
	return TransferRecord{
		Id:                     req.Fingerprint(),
		Source:                 req.Source,
		Destination:            req.Destination,
		Asset:                  req.Asset,
		Amount:                 req.Amount,
		Sender:                 req.Sender,
		Recipient:              req.Recipient,
		Urgency:                req.Urgency,
		PayloadSize:            len(req.Payload),
		SettlementJurisdiction: req.SettlementJurisdiction,
		Protocol:               protocol,
		Format:                 format,
		Fees:                   fees,
		SettlementAsset:        settlementAsset,
		Status:                 TransferPending,
		RouteWindow:            routeWindow,
		AssetWindow:            assetWindow,
		CreatedAt:              now.Unix(),
	}
}

func (t TransferRecord) RouteKey() RouteKey {
	return RouteKey{Source: t.Source, Destination: t.Destination, Protocol: t.Protocol}
}

// Finalize moves a pending record to its terminal state. It returns false if the record was
// already terminal, in which case it is left untouched.
func (t *TransferRecord) Finalize(success bool, elapsed time.Duration, now time.Time) bool {
	if t.Status.IsTerminal() {
		return false
	}
	t.Status = TransferFailed
	if success {
		t.Status = TransferCompleted
	}
	t.Elapsed = elapsed
	t.CompletedAt = now.Unix()
	return true
}

func (t *TransferRecord) Cancel(now time.Time) bool {
	if t.Status.IsTerminal() {
		return false
	}
	t.Status = TransferCancelled
	t.CompletedAt = now.Unix()
	return true
}
