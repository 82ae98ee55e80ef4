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

// ClaimRaffle settles a drawn raffle: the prize goes to the stored winner and
// the ticket revenue to the stored owner. Anyone may call it; payouts never go
// to the caller, so a third party cannot redirect or block settlement. The
// state moving off DRAWN first is what makes a second claim fail.
func (s *RaffleService) ClaimRaffle(ctx context.Context, raffleID int64) error {
	var winner, owner string
	var revenue decimal.Decimal

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		raffle, err := tx.GetRaffleByID(ctx, raffleID)
		if err != nil {
			return err
		}
		if raffle.State != models.RaffleStateDrawn {
			return models.ErrRaffleNotCompleted
		}

		winner = raffle.Winner
		owner = raffle.Owner
		revenue = raffle.PricePerTicket.Mul(decimal.NewFromInt(raffle.TicketsSold))

		raffle.State = models.RaffleStateClaimed
		raffle.UpdatedAt = s.clock()
		if err := tx.UpdateRaffle(ctx, raffle); err != nil {
			return fmt.Errorf("failed to update raffle: %w", err)
		}

		if err := tx.CreateTransaction(ctx, &models.RaffleTransaction{
			ID:              uuid.New(),
			RaffleID:        raffle.ID,
			TransactionType: models.RaffleTransactionTypePayout,
			Account:         winner,
			Asset:           raffle.PrizeAssetRef,
			Amount:          raffle.PrizeAmount,
		}); err != nil {
			return err
		}
		if err := tx.CreateTransaction(ctx, &models.RaffleTransaction{
			ID:              uuid.New(),
			RaffleID:        raffle.ID,
			TransactionType: models.RaffleTransactionTypePayout,
			Account:         owner,
			Asset:           raffle.Currency,
			Amount:          revenue,
		}); err != nil {
			return err
		}

		if err := s.vaultFor(raffle.Kind).release(ctx, winner, raffle); err != nil {
			return err
		}
		if revenue.IsPositive() {
			return s.payOut(ctx, owner, raffle.Currency, revenue)
		}
		return nil
	})
	if err != nil {
		return err
	}

	zap.L().Info("raffle claimed",
		zap.Int64("raffle_id", raffleID),
		zap.String("winner", winner),
		zap.String("owner", owner),
		zap.String("revenue", revenue.String()))
	return nil
}
