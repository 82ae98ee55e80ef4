package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RaffleTransactionType string

const (
	RaffleTransactionTypeEscrow    RaffleTransactionType = "ESCROW"
	RaffleTransactionTypeTicket    RaffleTransactionType = "TICKET_SALE"
	RaffleTransactionTypeOracleFee RaffleTransactionType = "ORACLE_FEE"
	RaffleTransactionTypePayout    RaffleTransactionType = "PAYOUT"
	RaffleTransactionTypeRefund    RaffleTransactionType = "REFUND"
	RaffleTransactionTypeResale    RaffleTransactionType = "RESALE"
)

// RaffleTransaction is the audit trail for every asset movement a raffle
// causes: prize escrow, ticket sales, oracle fees, payouts, refunds, resales.
type RaffleTransaction struct {
	ID              uuid.UUID             `gorm:"type:uuid;primaryKey" json:"id"`
	RaffleID        int64                 `gorm:"not null;index" json:"raffle_id"`
	TransactionType RaffleTransactionType `gorm:"size:20;not null" json:"transaction_type"`
	Account         string                `gorm:"size:128;not null;index" json:"account"`
	Asset           string                `gorm:"size:128;not null" json:"asset"`
	Amount          decimal.Decimal       `gorm:"type:decimal(38,18)" json:"amount"`
	TicketIndex     *int64                `json:"ticket_index"`
	CreatedAt       time.Time             `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (RaffleTransaction) TableName() string {
	return "raffle_transactions"
}
