package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateRaffleRequest represents a request to create a new raffle
type CreateRaffleRequest struct {
	Kind            RaffleKind      `json:"kind" binding:"required"`
	PrizeAssetRef   string          `json:"prize_asset_ref" binding:"required"`
	PrizeTokenID    int64           `json:"prize_token_id"`
	PrizeAmount     decimal.Decimal `json:"prize_amount"`
	Currency        string          `json:"currency" binding:"required"`
	EndTimestamp    int64           `json:"end_timestamp" binding:"required"` // unix seconds
	NumberOfTickets int64           `json:"number_of_tickets"`
	PricePerTicket  decimal.Decimal `json:"price_per_ticket"`
	WhitelistRoot   string          `json:"whitelist_root"`
	Payment         decimal.Decimal `json:"payment"` // attached native payment
}

// BuyTicketsRequest represents a ticket purchase
type BuyTicketsRequest struct {
	Quantity       int64           `json:"quantity" binding:"required"`
	WhitelistProof []string        `json:"whitelist_proof"`
	Payment        decimal.Decimal `json:"payment"`
}

// CompleteRaffleRequest closes a raffle for drawing
type CompleteRaffleRequest struct {
	AgreeToLessTicketsSold bool `json:"agree_to_less_tickets_sold"`
}

// RefundTicketsRequest claims refunds for a cancelled raffle
type RefundTicketsRequest struct {
	TicketIndices []int64 `json:"ticket_indices" binding:"required"`
}

// CreateSellOrderRequest lists a ticket on the resale market
type CreateSellOrderRequest struct {
	TicketIndex int64           `json:"ticket_index"`
	Currency    string          `json:"currency" binding:"required"`
	Price       decimal.Decimal `json:"price" binding:"required"`
}

// BuyResaleTicketRequest fulfills a sell order. Expected price and currency are
// the buyer's commitment against the order changing underneath them.
type BuyResaleTicketRequest struct {
	ExpectedPrice    decimal.Decimal `json:"expected_price" binding:"required"`
	ExpectedCurrency string          `json:"expected_currency" binding:"required"`
	Payment          decimal.Decimal `json:"payment"`
}

// OracleFulfillRequest is the inbound randomness callback payload
type OracleFulfillRequest struct {
	RequestID string   `json:"request_id" binding:"required"`
	Words     []uint64 `json:"words" binding:"required"`
}

// TicketRange is the contiguous block of indices assigned by one purchase
type TicketRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// RaffleResponse is a raffle in API responses
type RaffleResponse struct {
	ID               int64           `json:"id"`
	Owner            string          `json:"owner"`
	Winner           string          `json:"winner,omitempty"`
	State            RaffleState     `json:"state"`
	Kind             RaffleKind      `json:"kind"`
	Currency         string          `json:"currency"`
	PrizeAssetRef    string          `json:"prize_asset_ref"`
	PrizeTokenID     int64           `json:"prize_token_id"`
	PrizeAmount      decimal.Decimal `json:"prize_amount"`
	PricePerTicket   decimal.Decimal `json:"price_per_ticket"`
	NumberOfTickets  int64           `json:"number_of_tickets"`
	TicketsSold      int64           `json:"tickets_sold"`
	EndTimestamp     time.Time       `json:"end_timestamp"`
	WhitelistRoot    string          `json:"whitelist_root,omitempty"`
	PendingRequestID *string         `json:"pending_request_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

func NewRaffleResponse(r *Raffle) *RaffleResponse {
	return &RaffleResponse{
		ID:               r.ID,
		Owner:            r.Owner,
		Winner:           r.Winner,
		State:            r.State,
		Kind:             r.Kind,
		Currency:         r.Currency,
		PrizeAssetRef:    r.PrizeAssetRef,
		PrizeTokenID:     r.PrizeTokenID,
		PrizeAmount:      r.PrizeAmount,
		PricePerTicket:   r.PricePerTicket,
		NumberOfTickets:  r.NumberOfTickets,
		TicketsSold:      r.TicketsSold,
		EndTimestamp:     r.EndTimestamp,
		WhitelistRoot:    r.WhitelistRoot,
		PendingRequestID: r.PendingRequestID,
		CreatedAt:        r.CreatedAt,
	}
}
