package custodian

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFungibleEscrowAndRelease(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()
	ledger.Mint("USDC", "alice", decimal.NewFromInt(100))

	received, err := ledger.EscrowFungible(ctx, "USDC", "alice", decimal.NewFromInt(40))
	if err != nil {
		t.Fatalf("EscrowFungible failed: %v", err)
	}
	if !received.Equal(decimal.NewFromInt(40)) {
		t.Errorf("expected 40 received, got %s", received)
	}

	balance, _ := ledger.BalanceOf(ctx, "USDC", "alice")
	if !balance.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected 60 remaining, got %s", balance)
	}

	if err := ledger.ReleaseFungible(ctx, "USDC", "bob", decimal.NewFromInt(40)); err != nil {
		t.Fatalf("ReleaseFungible failed: %v", err)
	}
	balance, _ = ledger.BalanceOf(ctx, "USDC", "bob")
	if !balance.Equal(decimal.NewFromInt(40)) {
		t.Errorf("expected bob to hold 40, got %s", balance)
	}

	_, err = ledger.EscrowFungible(ctx, "USDC", "alice", decimal.NewFromInt(500))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestNegativeAmountsRefused(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()

	// A negative escrow would credit the sender. The asset has no balance map
	// yet, so this also covers the unminted-asset path.
	_, err := ledger.EscrowFungible(ctx, "USDC", "mallory", decimal.NewFromInt(-50))
	if !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount, got %v", err)
	}
	balance, _ := ledger.BalanceOf(ctx, "USDC", "mallory")
	if !balance.IsZero() {
		t.Errorf("expected zero balance after refused escrow, got %s", balance)
	}

	ledger.Mint("USDC", "alice", decimal.NewFromInt(10))
	if err := ledger.ReleaseFungible(ctx, "USDC", "alice", decimal.NewFromInt(-1)); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount, got %v", err)
	}
	balance, _ = ledger.BalanceOf(ctx, "USDC", "alice")
	if !balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected balance untouched, got %s", balance)
	}

	// Zero moves nothing but is not an error, even for an unminted asset.
	if _, err := ledger.EscrowFungible(ctx, "NEW", "alice", decimal.Zero); err != nil {
		t.Errorf("zero escrow failed: %v", err)
	}
}

func TestFeeOnTransfer(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()
	ledger.Mint("FEE", "alice", decimal.NewFromInt(100))
	ledger.SetTransferFee("FEE", decimal.RequireFromString("0.02"))

	received, err := ledger.EscrowFungible(ctx, "FEE", "alice", decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("EscrowFungible failed: %v", err)
	}
	if !received.Equal(decimal.NewFromInt(49)) {
		t.Errorf("expected 49 after 2%% fee, got %s", received)
	}

	// The sender is debited the full amount regardless of the fee.
	balance, _ := ledger.BalanceOf(ctx, "FEE", "alice")
	if !balance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected 50 remaining, got %s", balance)
	}
}

func TestNonFungibleCustody(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()
	ledger.MintItem("punks", 7, "alice")

	if err := ledger.EscrowNonFungible(ctx, "punks", "bob", 7); !errors.Is(err, ErrNotItemOwner) {
		t.Errorf("expected ErrNotItemOwner, got %v", err)
	}
	if err := ledger.EscrowNonFungible(ctx, "punks", "alice", 99); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("expected ErrUnknownItem, got %v", err)
	}

	if err := ledger.EscrowNonFungible(ctx, "punks", "alice", 7); err != nil {
		t.Fatalf("EscrowNonFungible failed: %v", err)
	}
	holder, err := ledger.OwnerOf(ctx, "punks", 7)
	if err != nil {
		t.Fatalf("OwnerOf failed: %v", err)
	}
	if holder != EscrowAccount {
		t.Errorf("expected escrow holding, got %s", holder)
	}

	if err := ledger.ReleaseNonFungible(ctx, "punks", "bob", 7); err != nil {
		t.Fatalf("ReleaseNonFungible failed: %v", err)
	}
	holder, _ = ledger.OwnerOf(ctx, "punks", 7)
	if holder != "bob" {
		t.Errorf("expected bob holding, got %s", holder)
	}
}

func TestNativePaymentWrapFallback(t *testing.T) {
	ledger := NewLedger()
	adapter := NewLedgerNativeAdapter(ledger, "WETH")
	ctx := context.Background()

	ledger.Mint(NativeAsset, "alice", decimal.NewFromInt(10))
	if err := adapter.Collect(ctx, "alice", decimal.NewFromInt(10)); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	adapter.Pay(ctx, "bob", decimal.NewFromInt(4))
	balance, _ := ledger.BalanceOf(ctx, NativeAsset, "bob")
	if !balance.Equal(decimal.NewFromInt(4)) {
		t.Errorf("expected direct native payment of 4, got %s", balance)
	}

	// A rejecting recipient still gets paid, in the wrapped form.
	adapter.SetRejecting("carol", true)
	adapter.Pay(ctx, "carol", decimal.NewFromInt(6))
	balance, _ = ledger.BalanceOf(ctx, NativeAsset, "carol")
	if !balance.IsZero() {
		t.Errorf("rejecting account credited natively: %s", balance)
	}
	balance, _ = ledger.BalanceOf(ctx, "WETH", "carol")
	if !balance.Equal(decimal.NewFromInt(6)) {
		t.Errorf("expected 6 wrapped, got %s", balance)
	}

	escrow, _ := ledger.BalanceOf(ctx, NativeAsset, EscrowAccount)
	if !escrow.IsZero() {
		t.Errorf("escrow not drained, holds %s", escrow)
	}
}

func TestCollectFailsWithoutFunds(t *testing.T) {
	ledger := NewLedger()
	adapter := NewLedgerNativeAdapter(ledger, "WETH")

	if err := adapter.Collect(context.Background(), "alice", decimal.NewFromInt(1)); err == nil {
		t.Error("expected collect to fail without funds")
	}
}
