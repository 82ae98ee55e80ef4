package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RaffleState string

const (
	RaffleStateInProgress RaffleState = "IN_PROGRESS"
	RaffleStateFinished   RaffleState = "FINISHED"
	RaffleStateDrawn      RaffleState = "DRAWN"
	RaffleStateRefunded   RaffleState = "REFUNDED"
	RaffleStateClaimed    RaffleState = "CLAIMED"
)

type RaffleKind string

const (
	RaffleKindFungible    RaffleKind = "FUNGIBLE"
	RaffleKindNonFungible RaffleKind = "NON_FUNGIBLE"
)

// NativeCurrency is the sentinel asset reference for the custodian's native coin.
const NativeCurrency = "native"

// Raffle is one raffle record. Rows are never deleted; terminal raffles are
// kept for historical queries.
type Raffle struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Owner            string          `gorm:"size:128;not null;index" json:"owner"` // empty once cancelled
	Winner           string          `gorm:"size:128" json:"winner"`
	State            RaffleState     `gorm:"size:20;not null;default:IN_PROGRESS;index" json:"state"`
	Kind             RaffleKind      `gorm:"size:20;not null" json:"kind"`
	Currency         string          `gorm:"size:128;not null" json:"currency"`
	PrizeAssetRef    string          `gorm:"size:128;not null" json:"prize_asset_ref"`
	PrizeTokenID     int64           `json:"prize_token_id"`
	PrizeAmount      decimal.Decimal `gorm:"type:decimal(38,18)" json:"prize_amount"`
	PricePerTicket   decimal.Decimal `gorm:"type:decimal(38,18);not null" json:"price_per_ticket"`
	NumberOfTickets  int64           `gorm:"not null" json:"number_of_tickets"`
	TicketsSold      int64           `gorm:"not null;default:0" json:"tickets_sold"`
	EndTimestamp     time.Time       `gorm:"not null" json:"end_timestamp"`
	WhitelistRoot    string          `gorm:"size:66" json:"whitelist_root"` // empty for public raffles
	PendingRequestID *string         `gorm:"size:36;index" json:"pending_request_id"`
	CreatedAt        time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Raffle) TableName() string {
	return "raffles"
}

// SoldOut reports whether every ticket has been sold.
func (r *Raffle) SoldOut() bool {
	return r.TicketsSold == r.NumberOfTickets
}

// Ended reports whether the raffle is closed for new purchases at time now.
func (r *Raffle) Ended(now time.Time) bool {
	return r.SoldOut() || !now.Before(r.EndTimestamp)
}

// Ticket maps (raffle, index) to its owning account. An empty owner means the
// ticket was refunded and carries no further claim.
type Ticket struct {
	RaffleID    int64  `gorm:"primaryKey;autoIncrement:false" json:"raffle_id"`
	TicketIndex int64  `gorm:"primaryKey;autoIncrement:false" json:"ticket_index"`
	Owner       string `gorm:"size:128;not null;index" json:"owner"`
}

func (Ticket) TableName() string {
	return "tickets"
}

// SellOrder is a resale listing for a single ticket. Creating an order for the
// same (raffle, index) overwrites any prior order.
type SellOrder struct {
	RaffleID    int64           `gorm:"primaryKey;autoIncrement:false" json:"raffle_id"`
	TicketIndex int64           `gorm:"primaryKey;autoIncrement:false" json:"ticket_index"`
	Owner       string          `gorm:"size:128;not null;index" json:"owner"`
	Currency    string          `gorm:"size:128;not null" json:"currency"`
	Price       decimal.Decimal `gorm:"type:decimal(38,18);not null" json:"price"`
	CreatedAt   time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (SellOrder) TableName() string {
	return "sell_orders"
}
