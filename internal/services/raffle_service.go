package services

import (
	"context"
	"fmt"
	"time"

	"raffle-market/internal/custodian"
	"raffle-market/internal/models"
	"raffle-market/internal/oracle"
	"raffle-market/internal/repository"
	"raffle-market/internal/whitelist"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RaffleConfig carries the tunables of the raffle lifecycle.
type RaffleConfig struct {
	// MinDuration is the minimum lead time between creation and end.
	MinDuration time.Duration
	// Oracle fee charged to the owner when a drawing is requested.
	OracleFeeAsset  string
	OracleFeeAmount decimal.Decimal
	// Randomness request parameters forwarded to the oracle.
	NumWords             uint32
	CallbackGasBudget    uint32
	RequestConfirmations uint16
}

// RaffleService owns the raffle lifecycle: creation, ticket sales, completion,
// winner drawing, claims and refunds. All state mutations run inside a single
// database transaction per call, with guarding state written before the
// custodian transfer for the same operation.
type RaffleService struct {
	repo      *repository.Repository
	custodian custodian.AssetCustodian
	native    custodian.NativeAdapter
	oracle    oracle.Oracle
	cfg       RaffleConfig
	clock     func() time.Time
}

func NewRaffleService(
	repo *repository.Repository,
	assetCustodian custodian.AssetCustodian,
	native custodian.NativeAdapter,
	rng oracle.Oracle,
	cfg RaffleConfig,
) *RaffleService {
	return &RaffleService{
		repo:      repo,
		custodian: assetCustodian,
		native:    native,
		oracle:    rng,
		cfg:       cfg,
		clock:     time.Now,
	}
}

// CreateRaffle escrows the prize and inserts a new raffle in IN_PROGRESS.
func (s *RaffleService) CreateRaffle(
	ctx context.Context,
	caller string,
	req *models.CreateRaffleRequest,
) (*models.Raffle, error) {
	now := s.clock()
	end := time.Unix(req.EndTimestamp, 0)
	if end.Before(now.Add(s.cfg.MinDuration)) {
		return nil, models.ErrInvalidEndDate
	}
	if req.NumberOfTickets <= 0 {
		return nil, models.ErrNotEnoughTickets
	}
	if req.PricePerTicket.IsNegative() || req.PrizeAmount.IsNegative() || req.Payment.IsNegative() {
		return nil, models.ErrInvalidAmount
	}
	if req.Kind != models.RaffleKindFungible && req.Kind != models.RaffleKindNonFungible {
		return nil, fmt.Errorf("unknown raffle kind %q", req.Kind)
	}

	prizeAmount := req.PrizeAmount
	if req.Kind == models.RaffleKindNonFungible {
		// The prize is identified by its token ID; any attached amount is noise.
		prizeAmount = decimal.Zero
	}

	raffle := &models.Raffle{
		Owner:           caller,
		State:           models.RaffleStateInProgress,
		Kind:            req.Kind,
		Currency:        req.Currency,
		PrizeAssetRef:   req.PrizeAssetRef,
		PrizeTokenID:    req.PrizeTokenID,
		PrizeAmount:     prizeAmount,
		PricePerTicket:  req.PricePerTicket,
		NumberOfTickets: req.NumberOfTickets,
		EndTimestamp:    end,
		WhitelistRoot:   req.WhitelistRoot,
		CreatedAt:       now,
	}

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if err := tx.CreateRaffle(ctx, raffle); err != nil {
			return fmt.Errorf("failed to create raffle: %w", err)
		}
		// Audit row before the custodian call: a failed insert must not
		// leave funds moved with no trace of why.
		if err := tx.CreateTransaction(ctx, &models.RaffleTransaction{
			ID:              uuid.New(),
			RaffleID:        raffle.ID,
			TransactionType: models.RaffleTransactionTypeEscrow,
			Account:         caller,
			Asset:           raffle.PrizeAssetRef,
			Amount:          raffle.PrizeAmount,
		}); err != nil {
			return err
		}
		return s.vaultFor(raffle.Kind).escrow(ctx, caller, raffle, req.Payment)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("raffle created",
		zap.Int64("raffle_id", raffle.ID),
		zap.String("owner", caller),
		zap.String("kind", string(raffle.Kind)),
		zap.Int64("tickets", raffle.NumberOfTickets))

	return raffle, nil
}

// BuyTickets charges the buyer and assigns a contiguous ticket range.
func (s *RaffleService) BuyTickets(
	ctx context.Context,
	caller string,
	raffleID int64,
	req *models.BuyTicketsRequest,
) (*models.TicketRange, error) {
	if req.Quantity <= 0 {
		return nil, models.ErrNotEnoughTickets
	}
	if req.Payment.IsNegative() {
		return nil, models.ErrInvalidAmount
	}

	var assigned models.TicketRange
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		raffle, err := tx.GetRaffleByID(ctx, raffleID)
		if err != nil {
			return err
		}
		if raffle.State != models.RaffleStateInProgress {
			return models.ErrRaffleNotInProgress
		}
		if raffle.WhitelistRoot != "" {
			if err := verifyWhitelisted(caller, req.WhitelistProof, raffle.WhitelistRoot); err != nil {
				return err
			}
		}
		if raffle.SoldOut() {
			return models.ErrTicketsSoldOut
		}
		if raffle.TicketsSold+req.Quantity > raffle.NumberOfTickets {
			return models.ErrNotEnoughTicketsAvailable
		}

		assigned = models.TicketRange{
			Start: raffle.TicketsSold,
			End:   raffle.TicketsSold + req.Quantity - 1,
		}

		// Effects first: the range and counter are committed in the same
		// transaction as the charge, ahead of it.
		if err := tx.AssignTickets(ctx, raffle.ID, assigned.Start, req.Quantity, caller); err != nil {
			return fmt.Errorf("failed to assign tickets: %w", err)
		}
		raffle.TicketsSold += req.Quantity
		raffle.UpdatedAt = s.clock()
		if err := tx.UpdateRaffle(ctx, raffle); err != nil {
			return fmt.Errorf("failed to update raffle: %w", err)
		}

		cost := raffle.PricePerTicket.Mul(decimal.NewFromInt(req.Quantity))
		if err := tx.CreateTransaction(ctx, &models.RaffleTransaction{
			ID:              uuid.New(),
			RaffleID:        raffle.ID,
			TransactionType: models.RaffleTransactionTypeTicket,
			Account:         caller,
			Asset:           raffle.Currency,
			Amount:          cost,
		}); err != nil {
			return err
		}
		return s.collectPayment(ctx, caller, raffle.Currency, cost, req.Payment)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("tickets bought",
		zap.Int64("raffle_id", raffleID),
		zap.String("buyer", caller),
		zap.Int64("quantity", req.Quantity),
		zap.Int64("start", assigned.Start),
		zap.Int64("end", assigned.End))

	return &assigned, nil
}

// collectPayment charges amount in the given currency from payer, verifying
// the escrow actually received the full amount.
func (s *RaffleService) collectPayment(
	ctx context.Context,
	payer, currency string,
	amount, attached decimal.Decimal,
) error {
	if currency == models.NativeCurrency {
		if attached.LessThan(amount) {
			return models.ErrNotEnoughEther
		}
		if err := s.native.Collect(ctx, payer, amount); err != nil {
			return models.ErrNotEnoughEther
		}
		return nil
	}

	balance, err := s.custodian.BalanceOf(ctx, currency, payer)
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}
	if balance.LessThan(amount) {
		return models.ErrNotEnoughTokens
	}
	received, err := s.custodian.EscrowFungible(ctx, currency, payer, amount)
	if err != nil {
		return fmt.Errorf("failed to escrow payment: %w", err)
	}
	if !received.Equal(amount) {
		return models.ErrERC20NotTransferred
	}
	return nil
}

// payOut releases amount in the given currency from escrow to an account,
// wrapping native payouts that the recipient rejects.
func (s *RaffleService) payOut(ctx context.Context, to, currency string, amount decimal.Decimal) error {
	if currency == models.NativeCurrency {
		s.native.Pay(ctx, to, amount)
		return nil
	}
	if err := s.custodian.ReleaseFungible(ctx, currency, to, amount); err != nil {
		return fmt.Errorf("failed to release funds: %w", err)
	}
	return nil
}

func verifyWhitelisted(caller string, proofNodes []string, rootHex string) error {
	root, err := whitelist.ParseRoot(rootHex)
	if err != nil {
		return fmt.Errorf("corrupt whitelist root: %w", err)
	}
	proof, err := whitelist.ParseProof(proofNodes)
	if err != nil {
		return models.ErrUserNotWhitelisted
	}
	if !whitelist.Verify(proof, root, whitelist.Leaf(caller)) {
		return models.ErrUserNotWhitelisted
	}
	return nil
}

// GetRaffleDetails retrieves a raffle by ID.
func (s *RaffleService) GetRaffleDetails(ctx context.Context, id int64) (*models.Raffle, error) {
	return s.repo.GetRaffleByID(ctx, id)
}

// GetRaffleState retrieves just the lifecycle state of a raffle.
func (s *RaffleService) GetRaffleState(ctx context.Context, id int64) (models.RaffleState, error) {
	raffle, err := s.repo.GetRaffleByID(ctx, id)
	if err != nil {
		return "", err
	}
	return raffle.State, nil
}

// GetTicketOwner resolves the owner of a ticket index. An empty owner means
// the index is inside capacity but unsold or refunded.
func (s *RaffleService) GetTicketOwner(ctx context.Context, raffleID, index int64) (string, error) {
	raffle, err := s.repo.GetRaffleByID(ctx, raffleID)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= raffle.NumberOfTickets {
		return "", models.ErrTicketDoesNotExist
	}
	ticket, err := s.repo.GetTicket(ctx, raffleID, index)
	if err != nil {
		return "", err
	}
	if ticket == nil {
		return "", nil
	}
	return ticket.Owner, nil
}

// ListRaffles retrieves raffles newest-first with pagination.
func (s *RaffleService) ListRaffles(ctx context.Context, limit, offset int) ([]*models.Raffle, int64, error) {
	return s.repo.ListRaffles(ctx, limit, offset)
}

// GetRaffleTransactions retrieves the audit trail for a raffle.
func (s *RaffleService) GetRaffleTransactions(ctx context.Context, raffleID int64) ([]*models.RaffleTransaction, error) {
	if _, err := s.repo.GetRaffleByID(ctx, raffleID); err != nil {
		return nil, err
	}
	return s.repo.GetRaffleTransactions(ctx, raffleID)
}
