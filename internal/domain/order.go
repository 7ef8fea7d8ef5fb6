package domain

import "encoding/json"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType indicates the time-in-force policy.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // Good-Till-Cancelled
	OrderTypeGTD OrderType = "GTD" // Good-Till-Date
	OrderTypeFOK OrderType = "FOK" // Fill-Or-Kill
	OrderTypeFAK OrderType = "FAK" // Fill-And-Kill
)

// OrderStatus tracks the order lifecycle as reported by the settlement
// backend.
type OrderStatus string

const (
	OrderStatusLive      OrderStatus = "live"
	OrderStatusMatched   OrderStatus = "matched"
	OrderStatusDelayed   OrderStatus = "delayed"
	OrderStatusUnmatched OrderStatus = "unmatched"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// TradeIntent is the caller's trade request against one outcome of a market.
// Exactly one of USDCFlowAbs or the explicit Size/Price pair determines the
// trade quantity; when both are supplied, the explicit pair wins.
type TradeIntent struct {
	MarketIDOrSlug   string
	PositionIDOrName string // outcome name, e.g. "YES"
	Side             OrderSide

	// USDCFlowAbs is the desired notional in quote currency. Ignored when
	// Size and Price are both set.
	USDCFlowAbs float64

	Size  float64
	Price float64

	// Optional order parameters; zero values defer to signing defaults.
	FeeRateBps int64
	Nonce      int64
	Expiration int64
	Taker      string

	// Venue names the settlement backend; empty selects the default.
	Venue string
}

// SignedOrder is a settlement-ready order: the twelve EIP-712 struct fields
// plus the signature over them. Created once per successful build and never
// mutated; the core holds it only transiently while submitting.
type SignedOrder struct {
	Salt          string `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          int    `json:"side"`          // 0 = BUY, 1 = SELL
	SignatureType int    `json:"signatureType"` // 0 = EOA, 1 = proxy, 2 = safe
	Signature     string `json:"signature"`
}

// OrderSnapshot is the live view of a submitted order as reported by the
// settlement backend's order-status endpoint.
type OrderSnapshot struct {
	ID           string
	Status       OrderStatus
	MarketID     string
	AssetID      string
	Side         OrderSide
	Price        string
	OriginalSize string
	SizeMatched  string
	CreatedAt    string
}

// ExecutionResult is the outcome of one ExecuteOrder call. Exactly one of
// Order or Proposal is set: Order when the backend assigned an order id,
// Proposal when the submission was recorded as a resting price proposal.
type ExecutionResult struct {
	OrderID string
	Status  OrderStatus
	Matched bool

	Order *OrderSnapshot

	// Proposal preserves the backend's raw response shape for the
	// price-proposal fallback path.
	Proposal json.RawMessage
}
