package custodian

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerNativeAdapter settles native-currency payments against an in-memory
// Ledger. Accounts registered as rejecting refuse direct native credits; their
// payouts are wrapped instead, so settlement can never be blocked.
type LedgerNativeAdapter struct {
	ledger       *Ledger
	wrappedAsset string

	mu        sync.Mutex
	rejecting map[string]bool
}

func NewLedgerNativeAdapter(ledger *Ledger, wrappedAsset string) *LedgerNativeAdapter {
	return &LedgerNativeAdapter{
		ledger:       ledger,
		wrappedAsset: wrappedAsset,
		rejecting:    make(map[string]bool),
	}
}

// SetRejecting marks an account as refusing direct native payments. Test setup only.
func (a *LedgerNativeAdapter) SetRejecting(account string, rejecting bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejecting[account] = rejecting
}

func (a *LedgerNativeAdapter) rejects(account string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rejecting[account]
}

func (a *LedgerNativeAdapter) Collect(ctx context.Context, from string, amount decimal.Decimal) error {
	if _, err := a.ledger.EscrowFungible(ctx, NativeAsset, from, amount); err != nil {
		return fmt.Errorf("collect native payment: %w", err)
	}
	return nil
}

func (a *LedgerNativeAdapter) Pay(ctx context.Context, to string, amount decimal.Decimal) {
	if !a.rejects(to) {
		if err := a.ledger.ReleaseFungible(ctx, NativeAsset, to, amount); err == nil {
			return
		}
	}
	// Direct payment refused or failed: credit the wrapped representation
	// instead. The escrowed native amount backs the wrapped credit.
	a.ledger.mu.Lock()
	defer a.ledger.mu.Unlock()
	if err := a.ledger.debit(NativeAsset, EscrowAccount, amount); err != nil {
		zap.L().Error("native escrow underfunded during wrap fallback",
			zap.String("to", to), zap.String("amount", amount.String()), zap.Error(err))
		return
	}
	a.ledger.credit(a.wrappedAsset, to, amount)
	zap.L().Info("native payment wrapped",
		zap.String("to", to), zap.String("amount", amount.String()))
}
