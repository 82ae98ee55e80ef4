package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"raffle-market/internal/custodian"
	"raffle-market/internal/models"
	"raffle-market/internal/oracle"
	"raffle-market/internal/repository"
	"raffle-market/internal/whitelist"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// One named in-memory DB per test so state never leaks between tests.
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Raffle{},
		&models.Ticket{},
		&models.SellOrder{},
		&models.RaffleTransaction{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

type testEnv struct {
	svc    *RaffleService
	market *MarketService
	ledger *custodian.Ledger
	native *custodian.LedgerNativeAdapter
	rng    *oracle.LocalOracle
	repo   *repository.Repository
	now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	db := setupTestDB(t)
	env := &testEnv{
		ledger: custodian.NewLedger(),
		repo:   repository.NewRepository(db),
		rng:    oracle.NewLocalOracle(0), // manual fulfillment
		now:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	env.native = custodian.NewLedgerNativeAdapter(env.ledger, "WETH")

	env.svc = NewRaffleService(env.repo, env.ledger, env.native, env.rng, RaffleConfig{
		MinDuration:          time.Hour,
		OracleFeeAsset:       "LINK",
		OracleFeeAmount:      decimal.RequireFromString("0.25"),
		NumWords:             1,
		CallbackGasBudget:    100000,
		RequestConfirmations: 3,
	})
	env.svc.clock = func() time.Time { return env.now }
	env.rng.SetConsumer(env.svc)

	env.market = NewMarketService(env.repo, env.ledger, env.native)
	return env
}

func (e *testEnv) balance(t *testing.T, asset, holder string) decimal.Decimal {
	t.Helper()
	b, err := e.ledger.BalanceOf(context.Background(), asset, holder)
	if err != nil {
		t.Fatalf("BalanceOf failed: %v", err)
	}
	return b
}

// createTokenRaffle sets up a raffle with a token prize, token ticket currency
// and 10 tickets at 5 USDC each, ending in 24 hours.
func (e *testEnv) createTokenRaffle(t *testing.T, owner string) *models.Raffle {
	t.Helper()
	e.ledger.Mint("GOLD", owner, decimal.NewFromInt(100))
	e.ledger.Mint("LINK", owner, decimal.NewFromInt(1))

	raffle, err := e.svc.CreateRaffle(context.Background(), owner, &models.CreateRaffleRequest{
		Kind:            models.RaffleKindFungible,
		PrizeAssetRef:   "GOLD",
		PrizeAmount:     decimal.NewFromInt(100),
		Currency:        "USDC",
		EndTimestamp:    e.now.Add(24 * time.Hour).Unix(),
		NumberOfTickets: 10,
		PricePerTicket:  decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("CreateRaffle failed: %v", err)
	}
	return raffle
}

func (e *testEnv) buy(t *testing.T, buyer string, raffleID, quantity int64) *models.TicketRange {
	t.Helper()
	cost := decimal.NewFromInt(5 * quantity)
	e.ledger.Mint("USDC", buyer, cost)
	r, err := e.svc.BuyTickets(context.Background(), buyer, raffleID, &models.BuyTicketsRequest{
		Quantity: quantity,
	})
	if err != nil {
		t.Fatalf("BuyTickets failed for %s: %v", buyer, err)
	}
	return r
}

func TestCreateRaffleValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateRaffle(ctx, "alice", &models.CreateRaffleRequest{
		Kind:            models.RaffleKindFungible,
		PrizeAssetRef:   "GOLD",
		PrizeAmount:     decimal.NewFromInt(10),
		Currency:        "USDC",
		EndTimestamp:    env.now.Add(10 * time.Minute).Unix(), // below minimum lead time
		NumberOfTickets: 10,
		PricePerTicket:  decimal.NewFromInt(1),
	})
	if !errors.Is(err, models.ErrInvalidEndDate) {
		t.Errorf("expected ErrInvalidEndDate, got %v", err)
	}

	_, err = env.svc.CreateRaffle(ctx, "alice", &models.CreateRaffleRequest{
		Kind:            models.RaffleKindFungible,
		PrizeAssetRef:   "GOLD",
		PrizeAmount:     decimal.NewFromInt(10),
		Currency:        "USDC",
		EndTimestamp:    env.now.Add(24 * time.Hour).Unix(),
		NumberOfTickets: 0,
		PricePerTicket:  decimal.NewFromInt(1),
	})
	if !errors.Is(err, models.ErrNotEnoughTickets) {
		t.Errorf("expected ErrNotEnoughTickets, got %v", err)
	}

	// No GOLD minted: prize escrow must fail.
	_, err = env.svc.CreateRaffle(ctx, "alice", &models.CreateRaffleRequest{
		Kind:            models.RaffleKindFungible,
		PrizeAssetRef:   "GOLD",
		PrizeAmount:     decimal.NewFromInt(10),
		Currency:        "USDC",
		EndTimestamp:    env.now.Add(24 * time.Hour).Unix(),
		NumberOfTickets: 10,
		PricePerTicket:  decimal.NewFromInt(1),
	})
	if !errors.Is(err, models.ErrNotEnoughTokens) {
		t.Errorf("expected ErrNotEnoughTokens, got %v", err)
	}

	// Failed creation must not leave a raffle row behind.
	raffles, total, err := env.svc.ListRaffles(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListRaffles failed: %v", err)
	}
	if total != 0 || len(raffles) != 0 {
		t.Errorf("expected no raffles after failed creations, got %d", total)
	}
}

func TestCreateRaffleEscrowsPrize(t *testing.T) {
	env := newTestEnv(t)
	raffle := env.createTokenRaffle(t, "alice")

	if raffle.State != models.RaffleStateInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", raffle.State)
	}
	if !env.balance(t, "GOLD", "alice").IsZero() {
		t.Error("prize not debited from owner")
	}
	if !env.balance(t, "GOLD", custodian.EscrowAccount).Equal(decimal.NewFromInt(100)) {
		t.Error("prize not credited to escrow")
	}
}

func TestCreateNonFungibleRaffle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.ledger.MintItem("punks", 42, "alice")

	req := &models.CreateRaffleRequest{
		Kind:            models.RaffleKindNonFungible,
		PrizeAssetRef:   "punks",
		PrizeTokenID:    42,
		PrizeAmount:     decimal.NewFromInt(999), // meaningless for an item prize
		Currency:        "USDC",
		EndTimestamp:    env.now.Add(24 * time.Hour).Unix(),
		NumberOfTickets: 5,
		PricePerTicket:  decimal.NewFromInt(1),
	}

	_, err := env.svc.CreateRaffle(ctx, "bob", req)
	if !errors.Is(err, models.ErrNotYourAsset) {
		t.Errorf("expected ErrNotYourAsset for non-holder, got %v", err)
	}

	created, err := env.svc.CreateRaffle(ctx, "alice", req)
	if err != nil {
		t.Fatalf("CreateRaffle failed: %v", err)
	}
	if !created.PrizeAmount.IsZero() {
		t.Errorf("item raffle must not store a prize amount, got %s", created.PrizeAmount)
	}
	holder, err := env.ledger.OwnerOf(ctx, "punks", 42)
	if err != nil {
		t.Fatalf("OwnerOf failed: %v", err)
	}
	if holder != custodian.EscrowAccount {
		t.Errorf("expected item in escrow, held by %s", holder)
	}
}

func TestBuyTicketsAssignsContiguousRanges(t *testing.T) {
	env := newTestEnv(t)
	raffle := env.createTokenRaffle(t, "alice")

	first := env.buy(t, "bob", raffle.ID, 3)
	if first.Start != 0 || first.End != 2 {
		t.Errorf("expected range [0,2], got [%d,%d]", first.Start, first.End)
	}
	second := env.buy(t, "carol", raffle.ID, 4)
	if second.Start != 3 || second.End != 6 {
		t.Errorf("expected range [3,6], got [%d,%d]", second.Start, second.End)
	}

	owner, err := env.svc.GetTicketOwner(context.Background(), raffle.ID, 5)
	if err != nil {
		t.Fatalf("GetTicketOwner failed: %v", err)
	}
	if owner != "carol" {
		t.Errorf("expected carol to own ticket 5, got %q", owner)
	}

	if !env.balance(t, "USDC", custodian.EscrowAccount).Equal(decimal.NewFromInt(35)) {
		t.Error("ticket revenue not escrowed")
	}
}

func TestBuyTicketsCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	raffle := env.createTokenRaffle(t, "alice")

	env.buy(t, "bob", raffle.ID, 8)

	env.ledger.Mint("USDC", "carol", decimal.NewFromInt(100))
	_, err := env.svc.BuyTickets(ctx, "carol", raffle.ID, &models.BuyTicketsRequest{Quantity: 3})
	if !errors.Is(err, models.ErrNotEnoughTicketsAvailable) {
		t.Errorf("expected ErrNotEnoughTicketsAvailable, got %v", err)
	}

	env.buy(t, "carol", raffle.ID, 2)

	_, err = env.svc.BuyTickets(ctx, "carol", raffle.ID, &models.BuyTicketsRequest{Quantity: 1})
	if !errors.Is(err, models.ErrTicketsSoldOut) {
		t.Errorf("expected ErrTicketsSoldOut, got %v", err)
	}
}

func TestBuyTicketsPaymentFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	raffle := env.createTokenRaffle(t, "alice")

	// No USDC minted for dave.
	_, err := env.svc.BuyTickets(ctx, "dave", raffle.ID, &models.BuyTicketsRequest{Quantity: 1})
	if !errors.Is(err, models.ErrNotEnoughTokens) {
		t.Errorf("expected ErrNotEnoughTokens, got %v", err)
	}

	// A failed purchase must not leave assigned tickets behind.
	owner, err := env.svc.GetTicketOwner(ctx, raffle.ID, 0)
	if err != nil {
		t.Fatalf("GetTicketOwner failed: %v", err)
	}
	if owner != "" {
		t.Errorf("expected ticket 0 unowned after failed buy, got %q", owner)
	}

	// A currency that charges a transfer fee under-fills the escrow.
	env.ledger.SetTransferFee("USDC", decimal.RequireFromString("0.01"))
	env.ledger.Mint("USDC", "dave", decimal.NewFromInt(10))
	_, err = env.svc.BuyTickets(ctx, "dave", raffle.ID, &models.BuyTicketsRequest{Quantity: 1})
	if !errors.Is(err, models.ErrERC20NotTransferred) {
		t.Errorf("expected ErrERC20NotTransferred, got %v", err)
	}

	// Failed purchases roll back their audit rows along with the ticket
	// assignment; only the creation escrow row survives.
	transactions, err := env.svc.GetRaffleTransactions(ctx, raffle.ID)
	if err != nil {
		t.Fatalf("GetRaffleTransactions failed: %v", err)
	}
	if len(transactions) != 1 || transactions[0].TransactionType != models.RaffleTransactionTypeEscrow {
		t.Errorf("expected only the escrow row after failed purchases, got %d rows", len(transactions))
	}
}

func TestBuyTicketsNativeCurrency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.ledger.Mint("GOLD", "alice", decimal.NewFromInt(100))
	env.ledger.Mint("LINK", "alice", decimal.NewFromInt(1))

	raffle, err := env.svc.CreateRaffle(ctx, "alice", &models.CreateRaffleRequest{
		Kind:            models.RaffleKindFungible,
		PrizeAssetRef:   "GOLD",
		PrizeAmount:     decimal.NewFromInt(100),
		Currency:        models.NativeCurrency,
		EndTimestamp:    env.now.Add(24 * time.Hour).Unix(),
		NumberOfTickets: 10,
		PricePerTicket:  decimal.NewFromInt(2),
	})
	if err != nil {
		t.Fatalf("CreateRaffle failed: %v", err)
	}

	env.ledger.Mint(custodian.NativeAsset, "bob", decimal.NewFromInt(10))

	_, err = env.svc.BuyTickets(ctx, "bob", raffle.ID, &models.BuyTicketsRequest{
		Quantity: 3,
		Payment:  decimal.NewFromInt(5), // 3 tickets cost 6
	})
	if !errors.Is(err, models.ErrNotEnoughEther) {
		t.Errorf("expected ErrNotEnoughEther, got %v", err)
	}

	if _, err := env.svc.BuyTickets(ctx, "bob", raffle.ID, &models.BuyTicketsRequest{
		Quantity: 3,
		Payment:  decimal.NewFromInt(6),
	}); err != nil {
		t.Fatalf("BuyTickets failed: %v", err)
	}
	if !env.balance(t, custodian.NativeAsset, "bob").Equal(decimal.NewFromInt(4)) {
		t.Error("native payment not collected")
	}
}

func TestBuyTicketsWhitelist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tree, err := whitelist.BuildTree([]string{"alice", "bob", "carol"})
	if err != nil {
		t.Fatalf("BuildTree failed: %v", err)
	}

	env.ledger.Mint("GOLD", "alice", decimal.NewFromInt(100))
	raffle, err := env.svc.CreateRaffle(ctx, "alice", &models.CreateRaffleRequest{
		Kind:            models.RaffleKindFungible,
		PrizeAssetRef:   "GOLD",
		PrizeAmount:     decimal.NewFromInt(100),
		Currency:        "USDC",
		EndTimestamp:    env.now.Add(24 * time.Hour).Unix(),
		NumberOfTickets: 10,
		PricePerTicket:  decimal.NewFromInt(5),
		WhitelistRoot:   tree.RootHex(),
	})
	if err != nil {
		t.Fatalf("CreateRaffle failed: %v", err)
	}

	env.ledger.Mint("USDC", "dave", decimal.NewFromInt(50))
	env.ledger.Mint("USDC", "bob", decimal.NewFromInt(50))

	// dave is not in the set; bob's proof does not help him.
	bobProof, ok := tree.ProofHex("bob")
	if !ok {
		t.Fatal("no proof for bob")
	}
	_, err = env.svc.BuyTickets(ctx, "dave", raffle.ID, &models.BuyTicketsRequest{
		Quantity:       1,
		WhitelistProof: bobProof,
	})
	if !errors.Is(err, models.ErrUserNotWhitelisted) {
		t.Errorf("expected ErrUserNotWhitelisted, got %v", err)
	}

	_, err = env.svc.BuyTickets(ctx, "bob", raffle.ID, &models.BuyTicketsRequest{Quantity: 1})
	if !errors.Is(err, models.ErrUserNotWhitelisted) {
		t.Errorf("expected ErrUserNotWhitelisted without proof, got %v", err)
	}

	if _, err := env.svc.BuyTickets(ctx, "bob", raffle.ID, &models.BuyTicketsRequest{
		Quantity:       2,
		WhitelistProof: bobProof,
	}); err != nil {
		t.Fatalf("whitelisted buy failed: %v", err)
	}
}

func TestCancelRaffle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	raffle := env.createTokenRaffle(t, "alice")
	env.buy(t, "bob", raffle.ID, 3)

	if err := env.svc.CancelRaffle(ctx, "bob", raffle.ID); !errors.Is(err, models.ErrNotYourRaffle) {
		t.Errorf("expected ErrNotYourRaffle for non-owner, got %v", err)
	}
	if err := env.svc.CancelRaffle(ctx, "alice", raffle.ID+100); !errors.Is(err, models.ErrNotYourRaffle) {
		t.Errorf("expected ErrNotYourRaffle for unknown raffle, got %v", err)
	}

	if err := env.svc.CancelRaffle(ctx, "alice", raffle.ID); err != nil {
		t.Fatalf("CancelRaffle failed: %v", err)
	}
	if !env.balance(t, "GOLD", "alice").Equal(decimal.NewFromInt(100)) {
		t.Error("prize not returned to owner")
	}
	state, err := env.svc.GetRaffleState(ctx, raffle.ID)
	if err != nil {
		t.Fatalf("GetRaffleState failed: %v", err)
	}
	if state != models.RaffleStateRefunded {
		t.Errorf("expected REFUNDED, got %s", state)
	}

	// The cleared owner blocks a second cancellation.
	if err := env.svc.CancelRaffle(ctx, "alice", raffle.ID); !errors.Is(err, models.ErrNotYourRaffle) {
		t.Errorf("expected ErrNotYourRaffle on second cancel, got %v", err)
	}
}

func TestClaimCancelledRaffle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	raffle := env.createTokenRaffle(t, "alice")
	env.buy(t, "bob", raffle.ID, 3)

	// Refunds only open once the raffle is cancelled.
	err := env.svc.ClaimCancelledRaffle(ctx, "bob", raffle.ID, []int64{0})
	if !errors.Is(err, models.ErrRaffleCannotBeRefunded) {
		t.Errorf("expected ErrRaffleCannotBeRefunded, got %v", err)
	}

	if err := env.svc.CancelRaffle(ctx, "alice", raffle.ID); err != nil {
		t.Fatalf("CancelRaffle failed: %v", err)
	}

	if err := env.svc.ClaimCancelledRaffle(ctx, "bob", raffle.ID, nil); !errors.Is(err, models.ErrNotTicketOwner) {
		t.Errorf("expected ErrNotTicketOwner for empty batch, got %v", err)
	}
	if err := env.svc.ClaimCancelledRaffle(ctx, "carol", raffle.ID, []int64{0}); !errors.Is(err, models.ErrNotTicketOwner) {
		t.Errorf("expected ErrNotTicketOwner for someone else's ticket, got %v", err)
	}
	// One bad index fails the whole batch, including bob's own tickets.
	if err := env.svc.ClaimCancelledRaffle(ctx, "bob", raffle.ID, []int64{0, 1, 7}); !errors.Is(err, models.ErrNotTicketOwner) {
		t.Errorf("expected ErrNotTicketOwner for mixed batch, got %v", err)
	}
	balance := env.balance(t, "USDC", "bob")
	if !balance.IsZero() {
		t.Errorf("expected no refund after failed batch, got %s", balance)
	}

	if err := env.svc.ClaimCancelledRaffle(ctx, "bob", raffle.ID, []int64{0, 1, 2}); err != nil {
		t.Fatalf("ClaimCancelledRaffle failed: %v", err)
	}
	if !env.balance(t, "USDC", "bob").Equal(decimal.NewFromInt(15)) {
		t.Error("refund amount wrong")
	}

	// Refunded tickets cannot be refunded again.
	if err := env.svc.ClaimCancelledRaffle(ctx, "bob", raffle.ID, []int64{0}); !errors.Is(err, models.ErrNotTicketOwner) {
		t.Errorf("expected ErrNotTicketOwner on double refund, got %v", err)
	}
}

func TestCompleteRaffleGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	raffle := env.createTokenRaffle(t, "alice")
	env.buy(t, "bob", raffle.ID, 3)

	if err := env.svc.CompleteRaffle(ctx, "bob", raffle.ID, true); !errors.Is(err, models.ErrNotYourRaffle) {
		t.Errorf("expected ErrNotYourRaffle, got %v", err)
	}
	if err := env.svc.CompleteRaffle(ctx, "alice", raffle.ID, true); !errors.Is(err, models.ErrRaffleNotEnded) {
		t.Errorf("expected ErrRaffleNotEnded, got %v", err)
	}
}

func TestCompleteRaffleDeclined(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	raffle := env.createTokenRaffle(t, "alice")
	env.buy(t, "bob", raffle.ID, 4)

	env.now = env.now.Add(25 * time.Hour)

	// The owner does not accept a partial sale: prize returns, buyers refund
	// themselves.
	if err := env.svc.CompleteRaffle(ctx, "alice", raffle.ID, false); err != nil {
		t.Fatalf("CompleteRaffle failed: %v", err)
	}
	if !env.balance(t, "GOLD", "alice").Equal(decimal.NewFromInt(100)) {
		t.Error("prize not returned to owner")
	}
	state, _ := env.svc.GetRaffleState(ctx, raffle.ID)
	if state != models.RaffleStateRefunded {
		t.Errorf("expected REFUNDED, got %s", state)
	}

	if err := env.svc.ClaimCancelledRaffle(ctx, "bob", raffle.ID, []int64{0, 1, 2, 3}); err != nil {
		t.Fatalf("ClaimCancelledRaffle failed: %v", err)
	}
	if !env.balance(t, "USDC", "bob").Equal(decimal.NewFromInt(20)) {
		t.Error("buyer refund wrong")
	}
}

func TestCompleteRaffleZeroSold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	raffle := env.createTokenRaffle(t, "alice")

	env.now = env.now.Add(25 * time.Hour)

	// With nobody to draw from, agreement changes nothing.
	if err := env.svc.CompleteRaffle(ctx, "alice", raffle.ID, true); err != nil {
		t.Fatalf("CompleteRaffle failed: %v", err)
	}
	state, _ := env.svc.GetRaffleState(ctx, raffle.ID)
	if state != models.RaffleStateRefunded {
		t.Errorf("expected REFUNDED, got %s", state)
	}
	if !env.balance(t, "GOLD", "alice").Equal(decimal.NewFromInt(100)) {
		t.Error("prize not returned to owner")
	}
}

func TestCompleteNonFungibleRaffleDeclined(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.ledger.MintItem("punks", 42, "alice")

	raffle, err := env.svc.CreateRaffle(ctx, "alice", &models.CreateRaffleRequest{
		Kind:            models.RaffleKindNonFungible,
		PrizeAssetRef:   "punks",
		PrizeTokenID:    42,
		Currency:        "USDC",
		EndTimestamp:    env.now.Add(24 * time.Hour).Unix(),
		NumberOfTickets: 10,
		PricePerTicket:  decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("CreateRaffle failed: %v", err)
	}

	env.now = env.now.Add(25 * time.Hour)

	if err := env.svc.CompleteRaffle(ctx, "alice", raffle.ID, false); err != nil {
		t.Fatalf("CompleteRaffle failed: %v", err)
	}
	state, _ := env.svc.GetRaffleState(ctx, raffle.ID)
	if state != models.RaffleStateRefunded {
		t.Errorf("expected REFUNDED, got %s", state)
	}
	holder, err := env.ledger.OwnerOf(ctx, "punks", 42)
	if err != nil {
		t.Fatalf("OwnerOf failed: %v", err)
	}
	if holder != "alice" {
		t.Errorf("prize item not returned to creator, held by %s", holder)
	}
}

func TestCompleteRaffleRequestsDrawing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	raffle := env.createTokenRaffle(t, "alice")
	env.buy(t, "bob", raffle.ID, 10)

	// Sold out: completable before the end date.
	if err := env.svc.CompleteRaffle(ctx, "alice", raffle.ID, false); err != nil {
		t.Fatalf("CompleteRaffle failed: %v", err)
	}

	updated, err := env.svc.GetRaffleDetails(ctx, raffle.ID)
	if err != nil {
		t.Fatalf("GetRaffleDetails failed: %v", err)
	}
	if updated.State != models.RaffleStateFinished {
		t.Errorf("expected FINISHED, got %s", updated.State)
	}
	if updated.PendingRequestID == nil {
		t.Fatal("no randomness request recorded")
	}
	if !env.rng.Pending(*updated.PendingRequestID) {
		t.Error("request not pending at the oracle")
	}
	if !env.balance(t, "LINK", "alice").Equal(decimal.RequireFromString("0.75")) {
		t.Error("oracle fee not charged")
	}

	// A second completion attempt finds the raffle off IN_PROGRESS.
	if err := env.svc.CompleteRaffle(ctx, "alice", raffle.ID, false); !errors.Is(err, models.ErrRaffleNotInProgress) {
		t.Errorf("expected ErrRaffleNotInProgress, got %v", err)
	}
}

func TestCompleteRaffleWithoutOracleFeeFunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.ledger.Mint("GOLD", "alice", decimal.NewFromInt(100))
	// No LINK minted.
	raffle, err := env.svc.CreateRaffle(ctx, "alice", &models.CreateRaffleRequest{
		Kind:            models.RaffleKindFungible,
		PrizeAssetRef:   "GOLD",
		PrizeAmount:     decimal.NewFromInt(100),
		Currency:        "USDC",
		EndTimestamp:    env.now.Add(24 * time.Hour).Unix(),
		NumberOfTickets: 2,
		PricePerTicket:  decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("CreateRaffle failed: %v", err)
	}
	env.buy(t, "bob", raffle.ID, 2)

	if err := env.svc.CompleteRaffle(ctx, "alice", raffle.ID, false); !errors.Is(err, models.ErrNotEnoughTokens) {
		t.Errorf("expected ErrNotEnoughTokens, got %v", err)
	}
	state, _ := env.svc.GetRaffleState(ctx, raffle.ID)
	if state != models.RaffleStateInProgress {
		t.Errorf("failed completion must not change state, got %s", state)
	}
}

func TestHandleRandomWordsIgnoresUnknownRequests(t *testing.T) {
	env := newTestEnv(t)
	if err := env.svc.HandleRandomWords(context.Background(), "no-such-request", []uint64{1}); err != nil {
		t.Errorf("unknown request must be a no-op, got %v", err)
	}
	if err := env.svc.HandleRandomWords(context.Background(), "no-such-request", nil); err != nil {
		t.Errorf("empty words must be a no-op, got %v", err)
	}
}

func TestHandleRandomWordsDuplicateCallback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	raffle := env.createTokenRaffle(t, "alice")
	env.buy(t, "bob", raffle.ID, 5)   // tickets 0-4
	env.buy(t, "carol", raffle.ID, 5) // tickets 5-9

	if err := env.svc.CompleteRaffle(ctx, "alice", raffle.ID, false); err != nil {
		t.Fatalf("CompleteRaffle failed: %v", err)
	}
	finished, err := env.svc.GetRaffleDetails(ctx, raffle.ID)
	if err != nil {
		t.Fatalf("GetRaffleDetails failed: %v", err)
	}
	requestID := *finished.PendingRequestID

	// Word 7 maps onto ticket 7, owned by carol.
	if err := env.rng.Fulfill(ctx, requestID, []uint64{7}); err != nil {
		t.Fatalf("Fulfill failed: %v", err)
	}

	// A replayed callback for the resolved request would pick bob's ticket 3
	// if it were applied. It must change nothing.
	if err := env.svc.HandleRandomWords(ctx, requestID, []uint64{3}); err != nil {
		t.Fatalf("replayed callback must be a no-op, got %v", err)
	}
	drawn, err := env.svc.GetRaffleDetails(ctx, raffle.ID)
	if err != nil {
		t.Fatalf("GetRaffleDetails failed: %v", err)
	}
	if drawn.State != models.RaffleStateDrawn {
		t.Errorf("replayed callback changed state to %s", drawn.State)
	}
	if drawn.Winner != "carol" {
		t.Errorf("replayed callback changed winner to %q", drawn.Winner)
	}
}

func TestNegativeAmountsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.ledger.Mint("GOLD", "alice", decimal.NewFromInt(100))
	env.ledger.Mint("LINK", "alice", decimal.NewFromInt(1))

	base := models.CreateRaffleRequest{
		Kind:            models.RaffleKindFungible,
		PrizeAssetRef:   "GOLD",
		PrizeAmount:     decimal.NewFromInt(100),
		Currency:        "USDC",
		EndTimestamp:    env.now.Add(24 * time.Hour).Unix(),
		NumberOfTickets: 10,
		PricePerTicket:  decimal.NewFromInt(5),
	}

	// A negative price would credit every buyer out of escrow.
	req := base
	req.PricePerTicket = decimal.NewFromInt(-50)
	if _, err := env.svc.CreateRaffle(ctx, "alice", &req); !errors.Is(err, models.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for negative price, got %v", err)
	}

	req = base
	req.PrizeAmount = decimal.NewFromInt(-100)
	if _, err := env.svc.CreateRaffle(ctx, "alice", &req); !errors.Is(err, models.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for negative prize, got %v", err)
	}

	req = base
	req.Payment = decimal.NewFromInt(-1)
	if _, err := env.svc.CreateRaffle(ctx, "alice", &req); !errors.Is(err, models.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for negative payment, got %v", err)
	}

	raffle, err := env.svc.CreateRaffle(ctx, "alice", &base)
	if err != nil {
		t.Fatalf("CreateRaffle failed: %v", err)
	}

	// mallory holds nothing and attaches a negative payment; she must not end
	// the call holding tickets or funds.
	_, err = env.svc.BuyTickets(ctx, "mallory", raffle.ID, &models.BuyTicketsRequest{
		Quantity: 10,
		Payment:  decimal.NewFromInt(-1),
	})
	if !errors.Is(err, models.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for negative payment, got %v", err)
	}
	if !env.balance(t, "USDC", "mallory").IsZero() {
		t.Error("buyer with no funds gained a balance")
	}
	owner, err := env.svc.GetTicketOwner(ctx, raffle.ID, 0)
	if err != nil {
		t.Fatalf("GetTicketOwner failed: %v", err)
	}
	if owner != "" {
		t.Errorf("expected ticket 0 unowned, got %q", owner)
	}
}

func TestRaffleLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	raffle := env.createTokenRaffle(t, "alice")

	env.buy(t, "bob", raffle.ID, 5)   // tickets 0-4
	env.buy(t, "carol", raffle.ID, 5) // tickets 5-9

	if err := env.svc.CompleteRaffle(ctx, "alice", raffle.ID, false); err != nil {
		t.Fatalf("CompleteRaffle failed: %v", err)
	}
	finished, err := env.svc.GetRaffleDetails(ctx, raffle.ID)
	if err != nil {
		t.Fatalf("GetRaffleDetails failed: %v", err)
	}

	// Word 7 maps onto ticket 7 % 10 = 7, owned by carol.
	if err := env.rng.Fulfill(ctx, *finished.PendingRequestID, []uint64{7}); err != nil {
		t.Fatalf("Fulfill failed: %v", err)
	}

	drawn, err := env.svc.GetRaffleDetails(ctx, raffle.ID)
	if err != nil {
		t.Fatalf("GetRaffleDetails failed: %v", err)
	}
	if drawn.State != models.RaffleStateDrawn {
		t.Errorf("expected DRAWN, got %s", drawn.State)
	}
	if drawn.Winner != "carol" {
		t.Errorf("expected winner carol, got %q", drawn.Winner)
	}
	if drawn.PendingRequestID != nil {
		t.Error("request ID not cleared after drawing")
	}

	if err := env.svc.ClaimRaffle(ctx, raffle.ID); err != nil {
		t.Fatalf("ClaimRaffle failed: %v", err)
	}
	if !env.balance(t, "GOLD", "carol").Equal(decimal.NewFromInt(100)) {
		t.Error("prize not paid to winner")
	}
	if !env.balance(t, "USDC", "alice").Equal(decimal.NewFromInt(50)) {
		t.Error("revenue not paid to owner")
	}

	// Settled raffles cannot be claimed again.
	if err := env.svc.ClaimRaffle(ctx, raffle.ID); !errors.Is(err, models.ErrRaffleNotCompleted) {
		t.Errorf("expected ErrRaffleNotCompleted on second claim, got %v", err)
	}

	transactions, err := env.svc.GetRaffleTransactions(ctx, raffle.ID)
	if err != nil {
		t.Fatalf("GetRaffleTransactions failed: %v", err)
	}
	counts := map[models.RaffleTransactionType]int{}
	for _, tr := range transactions {
		counts[tr.TransactionType]++
	}
	if counts[models.RaffleTransactionTypeEscrow] != 1 ||
		counts[models.RaffleTransactionTypeTicket] != 2 ||
		counts[models.RaffleTransactionTypeOracleFee] != 1 ||
		counts[models.RaffleTransactionTypePayout] != 2 {
		t.Errorf("unexpected transaction trail: %v", counts)
	}
}

func TestGetTicketOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	raffle := env.createTokenRaffle(t, "alice")
	env.buy(t, "bob", raffle.ID, 2)

	if _, err := env.svc.GetTicketOwner(ctx, raffle.ID, 10); !errors.Is(err, models.ErrTicketDoesNotExist) {
		t.Errorf("expected ErrTicketDoesNotExist beyond capacity, got %v", err)
	}
	if _, err := env.svc.GetTicketOwner(ctx, raffle.ID, -1); !errors.Is(err, models.ErrTicketDoesNotExist) {
		t.Errorf("expected ErrTicketDoesNotExist for negative index, got %v", err)
	}

	owner, err := env.svc.GetTicketOwner(ctx, raffle.ID, 5)
	if err != nil {
		t.Fatalf("GetTicketOwner failed: %v", err)
	}
	if owner != "" {
		t.Errorf("expected unsold ticket to have no owner, got %q", owner)
	}
}
