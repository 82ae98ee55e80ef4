package services

import (
	"context"
	"fmt"

	"raffle-market/internal/custodian"
	"raffle-market/internal/models"
	"raffle-market/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MarketService runs the peer-to-peer resale market for already-purchased
// tickets. Orders exist per (raffle, ticket) key; relisting overwrites, which
// is why fulfillment checks the buyer's expected price and currency against
// the current order.
type MarketService struct {
	repo      *repository.Repository
	custodian custodian.AssetCustodian
	native    custodian.NativeAdapter
}

func NewMarketService(
	repo *repository.Repository,
	assetCustodian custodian.AssetCustodian,
	native custodian.NativeAdapter,
) *MarketService {
	return &MarketService{
		repo:      repo,
		custodian: assetCustodian,
		native:    native,
	}
}

// CreateSellOrder lists a ticket for resale, overwriting any existing order
// for the same ticket.
func (s *MarketService) CreateSellOrder(
	ctx context.Context,
	caller string,
	raffleID int64,
	req *models.CreateSellOrderRequest,
) error {
	if req.Price.IsNegative() {
		return models.ErrInvalidAmount
	}

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		raffle, err := tx.GetRaffleByID(ctx, raffleID)
		if err != nil {
			return err
		}
		if raffle.State != models.RaffleStateInProgress {
			return models.ErrRaffleNotInProgress
		}
		ticket, err := tx.GetTicket(ctx, raffleID, req.TicketIndex)
		if err != nil {
			return err
		}
		if ticket == nil || ticket.Owner != caller {
			return models.ErrNotYourTicket
		}
		return tx.UpsertSellOrder(ctx, &models.SellOrder{
			RaffleID:    raffleID,
			TicketIndex: req.TicketIndex,
			Owner:       caller,
			Currency:    req.Currency,
			Price:       req.Price,
		})
	})
	if err != nil {
		return err
	}

	zap.L().Info("sell order created",
		zap.Int64("raffle_id", raffleID),
		zap.Int64("ticket_index", req.TicketIndex),
		zap.String("seller", caller),
		zap.String("price", req.Price.String()))
	return nil
}

// CancelSellOrder delists a ticket. Only the order's recorded owner may
// cancel; a missing order behaves the same as someone else's.
func (s *MarketService) CancelSellOrder(ctx context.Context, caller string, raffleID, ticketIndex int64) error {
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		order, err := tx.GetSellOrder(ctx, raffleID, ticketIndex)
		if err != nil {
			return err
		}
		if order == nil || order.Owner != caller {
			return models.ErrNotYourTicketOrder
		}
		return tx.DeleteSellOrder(ctx, raffleID, ticketIndex)
	})
	if err != nil {
		return err
	}

	zap.L().Info("sell order cancelled",
		zap.Int64("raffle_id", raffleID), zap.Int64("ticket_index", ticketIndex))
	return nil
}

// GetSellOrder retrieves the current order for a ticket.
func (s *MarketService) GetSellOrder(ctx context.Context, raffleID, ticketIndex int64) (*models.SellOrder, error) {
	order, err := s.repo.GetSellOrder(ctx, raffleID, ticketIndex)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, models.ErrTicketNotForSale
	}
	return order, nil
}

// BuyResaleTicket fulfills a sell order: the buyer pays the seller and takes
// over the ticket. The expected price and currency are checked against the
// current order, so a seller relisting at a different price between the
// buyer's read and this call fails the purchase instead of overcharging.
// Order deletion and ticket reassignment commit in the same transaction,
// ahead of the seller payout.
func (s *MarketService) BuyResaleTicket(
	ctx context.Context,
	caller string,
	raffleID, ticketIndex int64,
	req *models.BuyResaleTicketRequest,
) error {
	if req.ExpectedPrice.IsNegative() || req.Payment.IsNegative() {
		return models.ErrInvalidAmount
	}

	var seller string
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		raffle, err := tx.GetRaffleByID(ctx, raffleID)
		if err != nil {
			return err
		}
		if raffle.State != models.RaffleStateInProgress {
			return models.ErrRaffleNotInProgress
		}
		order, err := tx.GetSellOrder(ctx, raffleID, ticketIndex)
		if err != nil {
			return err
		}
		if order == nil {
			return models.ErrTicketNotForSale
		}
		if !req.ExpectedPrice.Equal(order.Price) {
			return models.ErrWrongPrice
		}
		if req.ExpectedCurrency != order.Currency {
			return models.ErrWrongCurrency
		}

		seller = order.Owner
		if err := tx.DeleteSellOrder(ctx, raffleID, ticketIndex); err != nil {
			return fmt.Errorf("failed to delete sell order: %w", err)
		}
		if err := tx.UpdateTicketOwner(ctx, raffleID, ticketIndex, caller); err != nil {
			return fmt.Errorf("failed to reassign ticket: %w", err)
		}

		idx := ticketIndex
		if err := tx.CreateTransaction(ctx, &models.RaffleTransaction{
			ID:              uuid.New(),
			RaffleID:        raffleID,
			TransactionType: models.RaffleTransactionTypeResale,
			Account:         caller,
			Asset:           order.Currency,
			Amount:          order.Price,
			TicketIndex:     &idx,
		}); err != nil {
			return err
		}
		return s.paySeller(ctx, caller, seller, order.Currency, order.Price, req.Payment)
	})
	if err != nil {
		return err
	}

	zap.L().Info("resale ticket bought",
		zap.Int64("raffle_id", raffleID),
		zap.Int64("ticket_index", ticketIndex),
		zap.String("buyer", caller),
		zap.String("seller", seller))
	return nil
}

func (s *MarketService) paySeller(
	ctx context.Context,
	buyer, seller, currency string,
	price, attached decimal.Decimal,
) error {
	if currency == models.NativeCurrency {
		if attached.LessThan(price) {
			return models.ErrNotEnoughEther
		}
		if err := s.native.Collect(ctx, buyer, price); err != nil {
			return models.ErrNotEnoughEther
		}
		s.native.Pay(ctx, seller, price)
		return nil
	}

	balance, err := s.custodian.BalanceOf(ctx, currency, buyer)
	if err != nil {
		return fmt.Errorf("failed to read buyer balance: %w", err)
	}
	if balance.LessThan(price) {
		return models.ErrNotEnoughTokens
	}
	received, err := s.custodian.EscrowFungible(ctx, currency, buyer, price)
	if err != nil {
		return fmt.Errorf("failed to collect resale payment: %w", err)
	}
	if !received.Equal(price) {
		return models.ErrERC20NotTransferred
	}
	if err := s.custodian.ReleaseFungible(ctx, currency, seller, received); err != nil {
		return fmt.Errorf("failed to pay seller: %w", err)
	}
	return nil
}
