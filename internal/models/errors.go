package models

import "errors"

// Input validation
var (
	ErrInvalidEndDate   = errors.New("end date is not far enough in the future")
	ErrNotEnoughTickets = errors.New("raffle needs at least one ticket")
	ErrInvalidAmount    = errors.New("amount must not be negative")
	ErrNotYourAsset     = errors.New("caller does not own the prize asset")
	ErrNotEnoughTokens  = errors.New("token balance below the required amount")
	ErrNotEnoughEther   = errors.New("attached payment does not cover the required amount")
)

// Authorization
var (
	ErrNotYourRaffle      = errors.New("raffle does not exist or is not owned by caller")
	ErrNotYourTicket      = errors.New("ticket is not owned by caller")
	ErrNotYourTicketOrder = errors.New("sell order is not owned by caller")
	ErrUserNotWhitelisted = errors.New("caller is not on the raffle whitelist")
)

// State machine violations
var (
	ErrRaffleNotInProgress    = errors.New("raffle is not in progress")
	ErrRaffleNotEnded         = errors.New("raffle has not ended yet")
	ErrRaffleNotCompleted     = errors.New("raffle winner has not been drawn")
	ErrRaffleCannotBeRefunded = errors.New("raffle is not eligible for refunds")
)

// Existence
var (
	ErrRaffleDoesNotExist = errors.New("raffle does not exist")
	ErrTicketDoesNotExist = errors.New("ticket does not exist")
	ErrTicketNotForSale   = errors.New("ticket is not for sale")
)

// Ownership and accounting
var (
	ErrNotTicketOwner            = errors.New("caller is not the ticket owner")
	ErrNotEnoughTicketsAvailable = errors.New("not enough tickets available")
	ErrTicketsSoldOut            = errors.New("tickets sold out")
)

// Transfer integrity (fee-on-transfer tokens deliver less than requested)
var ErrERC20NotTransferred = errors.New("token transfer delivered less than the requested amount")

// Market races
var (
	ErrWrongPrice    = errors.New("order price does not match the expected price")
	ErrWrongCurrency = errors.New("order currency does not match the expected currency")
)
