package services

import (
	"context"
	"fmt"

	"raffle-market/internal/models"
	"raffle-market/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CancelRaffle returns the escrowed prize to the owner and moves the raffle
// to REFUNDED. Ticket buyers recover their money individually through
// ClaimCancelledRaffle. The cleared owner field is what denies a second
// cancellation.
func (s *RaffleService) CancelRaffle(ctx context.Context, caller string, raffleID int64) error {
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		raffle, err := tx.GetRaffleByID(ctx, raffleID)
		if err != nil {
			// Unknown raffles and cancelled raffles (owner cleared) are
			// indistinguishable to the caller.
			return models.ErrNotYourRaffle
		}
		if raffle.Owner == "" || raffle.Owner != caller {
			return models.ErrNotYourRaffle
		}
		if raffle.State != models.RaffleStateInProgress {
			return models.ErrRaffleNotInProgress
		}

		owner := raffle.Owner
		raffle.Owner = ""
		raffle.State = models.RaffleStateRefunded
		raffle.UpdatedAt = s.clock()
		if err := tx.UpdateRaffle(ctx, raffle); err != nil {
			return fmt.Errorf("failed to update raffle: %w", err)
		}

		if err := tx.CreateTransaction(ctx, &models.RaffleTransaction{
			ID:              uuid.New(),
			RaffleID:        raffle.ID,
			TransactionType: models.RaffleTransactionTypeRefund,
			Account:         owner,
			Asset:           raffle.PrizeAssetRef,
			Amount:          raffle.PrizeAmount,
		}); err != nil {
			return err
		}
		return s.vaultFor(raffle.Kind).release(ctx, owner, raffle)
	})
	if err != nil {
		return err
	}

	zap.L().Info("raffle cancelled", zap.Int64("raffle_id", raffleID), zap.String("owner", caller))
	return nil
}

// ClaimCancelledRaffle refunds the caller's tickets on a REFUNDED raffle. The
// batch is atomic: one index not owned by the caller fails the whole call.
// Refunded tickets have their owner cleared, which is what prevents a second
// refund.
func (s *RaffleService) ClaimCancelledRaffle(
	ctx context.Context,
	caller string,
	raffleID int64,
	ticketIndices []int64,
) error {
	if len(ticketIndices) == 0 {
		return models.ErrNotTicketOwner
	}

	var refunded decimal.Decimal
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		raffle, err := tx.GetRaffleByID(ctx, raffleID)
		if err != nil {
			return err
		}
		if raffle.State != models.RaffleStateRefunded {
			return models.ErrRaffleCannotBeRefunded
		}

		for _, index := range ticketIndices {
			ticket, err := tx.GetTicket(ctx, raffleID, index)
			if err != nil {
				return err
			}
			if ticket == nil || ticket.Owner == "" || ticket.Owner != caller {
				return models.ErrNotTicketOwner
			}
			if err := tx.UpdateTicketOwner(ctx, raffleID, index, ""); err != nil {
				return fmt.Errorf("failed to clear ticket owner: %w", err)
			}
			idx := index
			if err := tx.CreateTransaction(ctx, &models.RaffleTransaction{
				ID:              uuid.New(),
				RaffleID:        raffle.ID,
				TransactionType: models.RaffleTransactionTypeRefund,
				Account:         caller,
				Asset:           raffle.Currency,
				Amount:          raffle.PricePerTicket,
				TicketIndex:     &idx,
			}); err != nil {
				return err
			}
		}

		refunded = raffle.PricePerTicket.Mul(decimal.NewFromInt(int64(len(ticketIndices))))
		return s.payOut(ctx, caller, raffle.Currency, refunded)
	})
	if err != nil {
		return err
	}

	zap.L().Info("cancelled raffle tickets refunded",
		zap.Int64("raffle_id", raffleID),
		zap.String("account", caller),
		zap.Int("tickets", len(ticketIndices)),
		zap.String("amount", refunded.String()))
	return nil
}
