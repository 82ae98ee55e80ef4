package services

import (
	"context"
	"fmt"

	"raffle-market/internal/models"
	"raffle-market/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompleteRaffle closes a raffle for drawing. A sold-out raffle, or an ended
// one the owner accepts with fewer tickets sold, pays the oracle fee and moves
// to FINISHED with a randomness request outstanding. An ended raffle the owner
// declines moves straight to REFUNDED and the prize goes back to the owner;
// ticket buyers refund individually.
func (s *RaffleService) CompleteRaffle(
	ctx context.Context,
	caller string,
	raffleID int64,
	agreeToLessTicketsSold bool,
) error {
	var requestID string
	var finalState models.RaffleState

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		raffle, err := tx.GetRaffleByID(ctx, raffleID)
		if err != nil {
			return err
		}
		if raffle.Owner == "" || raffle.Owner != caller {
			return models.ErrNotYourRaffle
		}
		if raffle.State != models.RaffleStateInProgress {
			return models.ErrRaffleNotInProgress
		}
		if !raffle.Ended(s.clock()) {
			return models.ErrRaffleNotEnded
		}

		// With no buyers there is nobody to draw from, so a drawing is never
		// requested regardless of the owner's agreement.
		if !raffle.SoldOut() && (!agreeToLessTicketsSold || raffle.TicketsSold == 0) {
			raffle.State = models.RaffleStateRefunded
			raffle.UpdatedAt = s.clock()
			if err := tx.UpdateRaffle(ctx, raffle); err != nil {
				return fmt.Errorf("failed to update raffle: %w", err)
			}
			if err := tx.CreateTransaction(ctx, &models.RaffleTransaction{
				ID:              uuid.New(),
				RaffleID:        raffle.ID,
				TransactionType: models.RaffleTransactionTypeRefund,
				Account:         raffle.Owner,
				Asset:           raffle.PrizeAssetRef,
				Amount:          raffle.PrizeAmount,
			}); err != nil {
				return err
			}
			finalState = models.RaffleStateRefunded
			return s.vaultFor(raffle.Kind).release(ctx, raffle.Owner, raffle)
		}

		if err := s.chargeOracleFee(ctx, tx, raffle); err != nil {
			return err
		}

		requestID, err = s.oracle.RequestRandomWords(
			ctx, s.cfg.NumWords, s.cfg.CallbackGasBudget, s.cfg.RequestConfirmations)
		if err != nil {
			return fmt.Errorf("failed to request randomness: %w", err)
		}

		raffle.PendingRequestID = &requestID
		raffle.State = models.RaffleStateFinished
		raffle.UpdatedAt = s.clock()
		if err := tx.UpdateRaffle(ctx, raffle); err != nil {
			return fmt.Errorf("failed to update raffle: %w", err)
		}
		finalState = models.RaffleStateFinished
		return nil
	})
	if err != nil {
		return err
	}

	zap.L().Info("raffle completed",
		zap.Int64("raffle_id", raffleID),
		zap.String("state", string(finalState)),
		zap.String("request_id", requestID))
	return nil
}

func (s *RaffleService) chargeOracleFee(ctx context.Context, tx *repository.Repository, raffle *models.Raffle) error {
	if !s.cfg.OracleFeeAmount.IsPositive() {
		return nil
	}

	balance, err := s.custodian.BalanceOf(ctx, s.cfg.OracleFeeAsset, raffle.Owner)
	if err != nil {
		return fmt.Errorf("failed to read fee balance: %w", err)
	}
	if balance.LessThan(s.cfg.OracleFeeAmount) {
		return models.ErrNotEnoughTokens
	}
	if err := tx.CreateTransaction(ctx, &models.RaffleTransaction{
		ID:              uuid.New(),
		RaffleID:        raffle.ID,
		TransactionType: models.RaffleTransactionTypeOracleFee,
		Account:         raffle.Owner,
		Asset:           s.cfg.OracleFeeAsset,
		Amount:          s.cfg.OracleFeeAmount,
	}); err != nil {
		return err
	}
	received, err := s.custodian.EscrowFungible(ctx, s.cfg.OracleFeeAsset, raffle.Owner, s.cfg.OracleFeeAmount)
	if err != nil {
		return fmt.Errorf("failed to collect oracle fee: %w", err)
	}
	if !received.Equal(s.cfg.OracleFeeAmount) {
		return models.ErrERC20NotTransferred
	}
	return nil
}

// HandleRandomWords is the randomness callback. It correlates the request ID
// back to its raffle, maps the random value onto a sold ticket and records the
// winner. Unknown and already-resolved request IDs are ignored, so duplicate
// or spurious callbacks cannot change a drawn raffle.
func (s *RaffleService) HandleRandomWords(ctx context.Context, requestID string, words []uint64) error {
	if len(words) == 0 {
		zap.L().Warn("randomness callback without words", zap.String("request_id", requestID))
		return nil
	}

	var winner string
	var winningIndex int64
	handled := false

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		raffle, err := tx.GetRaffleByRequestID(ctx, requestID)
		if err != nil {
			return err
		}
		if raffle == nil || raffle.State != models.RaffleStateFinished {
			return nil
		}

		winningIndex = int64(words[0] % uint64(raffle.TicketsSold))
		ticket, err := tx.GetTicket(ctx, raffle.ID, winningIndex)
		if err != nil {
			return err
		}
		if ticket == nil {
			return fmt.Errorf("winning ticket %d of raffle %d has no owner row", winningIndex, raffle.ID)
		}

		winner = ticket.Owner
		raffle.Winner = winner
		raffle.PendingRequestID = nil
		raffle.State = models.RaffleStateDrawn
		raffle.UpdatedAt = s.clock()
		handled = true
		return tx.UpdateRaffle(ctx, raffle)
	})
	if err != nil {
		return err
	}

	if handled {
		zap.L().Info("raffle winner drawn",
			zap.String("request_id", requestID),
			zap.Int64("winning_index", winningIndex),
			zap.String("winner", winner))
	} else {
		zap.L().Debug("ignoring randomness callback for unknown request",
			zap.String("request_id", requestID))
	}
	return nil
}
