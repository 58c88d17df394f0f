package handlers

type transferRequest struct {
	Source                 string `json:"source"`
	Destination            string `json:"destination"`
	Asset                  string `json:"asset"`
	Amount                 uint64 `json:"amount"`
	Sender                 string `json:"sender"`
	Recipient              string `json:"recipient"`
	Urgency                string `json:"urgency"`
	Payload                string `json:"payload,omitempty"`
	SettlementJurisdiction string `json:"settlementJurisdiction,omitempty"`
	Nonce                  uint64 `json:"nonce"`
}

type feeBreakdown struct {
	BaseFee        string `json:"baseFee"`
	ProtocolFee    string `json:"protocolFee"`
	DestinationGas string `json:"destinationGas"`
	DataCost       string `json:"dataCost"`
	Total          string `json:"total"`
}

type formatEstimate struct {
	Format     string `json:"format"`
	Cost       string `json:"cost"`
	InlineCost string `json:"inlineCost"`
	BlobCost   string `json:"blobCost"`
	BlobChunks uint64 `json:"blobChunks"`
}

type scoredProtocol struct {
	Protocol      string       `json:"protocol"`
	Score         int          `json:"score"`
	Reliability   int          `json:"reliability"`
	Speed         int          `json:"speed"`
	Cost          int          `json:"cost"`
	UrgencyBonus  int          `json:"urgencyBonus"`
	SuccessRate   float64      `json:"successRate"`
	EstimatedTime int64        `json:"estimatedTime"`
	Fees          feeBreakdown `json:"fees"`
}

type quoteResponse struct {
	Protocol        string           `json:"protocol"`
	Format          formatEstimate   `json:"format"`
	Fees            feeBreakdown     `json:"fees"`
	EstimatedTime   int64            `json:"estimatedTime"`
	Score           scoredProtocol   `json:"score"`
	SettlementAsset string           `json:"settlementAsset,omitempty"`
	Alternatives    []scoredProtocol `json:"alternatives"`
}

type transfer struct {
	Id                     string       `json:"id"`
	Source                 string       `json:"source"`
	Destination            string       `json:"destination"`
	Asset                  string       `json:"asset"`
	Amount                 uint64       `json:"amount"`
	Sender                 string       `json:"sender"`
	Recipient              string       `json:"recipient"`
	Urgency                string       `json:"urgency"`
	PayloadSize            int          `json:"payloadSize"`
	SettlementJurisdiction string       `json:"settlementJurisdiction,omitempty"`
	Protocol               string       `json:"protocol"`
	Format                 string       `json:"format"`
	Fees                   feeBreakdown `json:"fees"`
	SettlementAsset        string       `json:"settlementAsset,omitempty"`
	Status                 string       `json:"status"`
	CreatedAt              int64        `json:"createdAt"`
	CompletedAt            int64        `json:"completedAt,omitempty"`
	Elapsed                int64        `json:"elapsed,omitempty"`
}

type submitResponse struct {
	TransferId string   `json:"transferId"`
	Duplicate  bool     `json:"duplicate"`
	Transfer   transfer `json:"transfer"`
}

type reportCompletionRequest struct {
	Success *bool `json:"success"`
	// Elapsed is expressed in seconds.
	Elapsed int64 `json:"elapsed"`
}

type listTransfersResponse struct {
	Transfers []transfer `json:"transfers"`
}

type protocol struct {
	Name         string `json:"name"`
	FeeBps       uint32 `json:"feeBps"`
	ExpectedTime int64  `json:"expectedTime"`
	Sequence     uint64 `json:"sequence"`
	CreatedAt    int64  `json:"createdAt"`
}

type registerProtocolRequest struct {
	Name         string `json:"name"`
	FeeBps       uint32 `json:"feeBps"`
	ExpectedTime int64  `json:"expectedTime"`
}

type routeKey struct {
	Source      string `json:"source" form:"source"`
	Destination string `json:"destination" form:"destination"`
	Protocol    string `json:"protocol" form:"protocol"`
}

type registerRouteRequest struct {
	routeKey
	BaseFee              uint64 `json:"baseFee"`
	DestinationGasBudget uint64 `json:"destinationGasBudget"`
	DailyCap             uint64 `json:"dailyCap"`
}

type route struct {
	routeKey
	BaseFee              uint64 `json:"baseFee"`
	DestinationGasBudget uint64 `json:"destinationGasBudget"`
	Active               bool   `json:"active"`
	DailyCap             uint64 `json:"dailyCap"`
	DailyVolume          uint64 `json:"dailyVolume"`
	LastReset            int64  `json:"lastReset"`
	Sequence             uint64 `json:"sequence"`
	CreatedAt            int64  `json:"createdAt"`
	UpdatedAt            int64  `json:"updatedAt"`
}

type routeCapacity struct {
	routeKey
	Active    bool   `json:"active"`
	DailyCap  uint64 `json:"dailyCap"`
	Available uint64 `json:"available"`
	LastReset int64  `json:"lastReset"`
}

type registerAssetRequest struct {
	Ref          string `json:"ref"`
	Category     string `json:"category"`
	Jurisdiction string `json:"jurisdiction"`
	DailyCap     uint64 `json:"dailyCap"`
	Preferred    bool   `json:"preferred"`
}

type settlementAsset struct {
	Ref          string `json:"ref"`
	Category     string `json:"category"`
	Jurisdiction string `json:"jurisdiction"`
	Active       bool   `json:"active"`
	Preferred    bool   `json:"preferred"`
	DailyCap     uint64 `json:"dailyCap"`
	DailyVolume  uint64 `json:"dailyVolume"`
	LastReset    int64  `json:"lastReset"`
	Sequence     uint64 `json:"sequence"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
}

type preferences struct {
	Jurisdiction string   `json:"jurisdiction"`
	Preferences  []string `json:"preferences"`
}

type protocolStats struct {
	Protocol           string  `json:"protocol"`
	TotalTransfers     uint64  `json:"totalTransfers"`
	CompletedTransfers uint64  `json:"completedTransfers"`
	SuccessRate        float64 `json:"successRate"`
	AvgCompletionTime  int64   `json:"avgCompletionTime"`
	UpdatedAt          int64   `json:"updatedAt"`
}

type chain struct {
	Id               string `json:"id"`
	BlobSupported    bool   `json:"blobSupported"`
	AverageBlockTime int64  `json:"averageBlockTime"`
	GasToken         string `json:"gasToken"`
	GasPrice         uint64 `json:"gasPrice"`
	BlobGasPrice     uint64 `json:"blobGasPrice"`
	BlobBaseFee      uint64 `json:"blobBaseFee"`
}

type transferEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

type feeProgram struct {
	Program string `json:"program"`
}

type errorResponse struct {
	Code     uint16            `json:"code"`
	Name     string            `json:"name"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
