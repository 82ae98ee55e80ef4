package handlers

import (
	"errors"
	"net/http"

	"raffle-market/internal/models"
)

// statusFromError maps service errors onto HTTP status codes. Unknown errors
// fall through to 500 so internal failures are never mistaken for caller
// mistakes.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, models.ErrRaffleDoesNotExist),
		errors.Is(err, models.ErrTicketDoesNotExist):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNotYourRaffle),
		errors.Is(err, models.ErrNotYourTicket),
		errors.Is(err, models.ErrNotYourTicketOrder),
		errors.Is(err, models.ErrNotYourAsset),
		errors.Is(err, models.ErrNotTicketOwner),
		errors.Is(err, models.ErrUserNotWhitelisted):
		return http.StatusForbidden
	case errors.Is(err, models.ErrRaffleNotInProgress),
		errors.Is(err, models.ErrRaffleNotEnded),
		errors.Is(err, models.ErrRaffleNotCompleted),
		errors.Is(err, models.ErrRaffleCannotBeRefunded),
		errors.Is(err, models.ErrTicketsSoldOut),
		errors.Is(err, models.ErrNotEnoughTicketsAvailable),
		errors.Is(err, models.ErrTicketNotForSale),
		errors.Is(err, models.ErrWrongPrice),
		errors.Is(err, models.ErrWrongCurrency),
		errors.Is(err, models.ErrNotEnoughTokens),
		errors.Is(err, models.ErrNotEnoughEther),
		errors.Is(err, models.ErrERC20NotTransferred):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidEndDate),
		errors.Is(err, models.ErrNotEnoughTickets),
		errors.Is(err, models.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
