package custodian

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// EscrowAccount is the internal account holding all escrowed assets.
const EscrowAccount = "escrow"

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNegativeAmount      = errors.New("amount must not be negative")
	ErrUnknownItem         = errors.New("item does not exist")
	ErrNotItemOwner        = errors.New("item is not held by the given account")
)

// Ledger is an in-memory custodian used for tests and local runs. Per-asset
// transfer fees simulate fee-on-transfer tokens: the receiver is credited the
// requested amount minus the configured fee fraction.
type Ledger struct {
	mu        sync.Mutex
	fungible  map[string]map[string]decimal.Decimal // asset -> holder -> balance
	items     map[string]map[int64]string           // collection -> tokenID -> holder
	feeRates  map[string]decimal.Decimal            // asset -> fee fraction [0,1)
}

func NewLedger() *Ledger {
	return &Ledger{
		fungible: make(map[string]map[string]decimal.Decimal),
		items:    make(map[string]map[int64]string),
		feeRates: make(map[string]decimal.Decimal),
	}
}

// Mint credits a fungible balance. Test and local-run setup only.
func (l *Ledger) Mint(asset, holder string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(asset, holder, amount)
}

// MintItem assigns a non-fungible item to a holder. Test and local-run setup only.
func (l *Ledger) MintItem(collection string, tokenID int64, holder string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.items[collection] == nil {
		l.items[collection] = make(map[int64]string)
	}
	l.items[collection][tokenID] = holder
}

// SetTransferFee configures a fee-on-transfer fraction for an asset.
func (l *Ledger) SetTransferFee(asset string, fraction decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.feeRates[asset] = fraction
}

func (l *Ledger) credit(asset, holder string, amount decimal.Decimal) {
	if l.fungible[asset] == nil {
		l.fungible[asset] = make(map[string]decimal.Decimal)
	}
	l.fungible[asset][holder] = l.fungible[asset][holder].Add(amount)
}

func (l *Ledger) debit(asset, holder string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s of %s for %s", ErrNegativeAmount, amount, asset, holder)
	}
	if l.fungible[asset][holder].LessThan(amount) {
		return fmt.Errorf("%w: %s of %s for %s", ErrInsufficientBalance, amount, asset, holder)
	}
	if l.fungible[asset] == nil {
		l.fungible[asset] = make(map[string]decimal.Decimal)
	}
	l.fungible[asset][holder] = l.fungible[asset][holder].Sub(amount)
	return nil
}

// transfer moves amount from one holder to another, applying the asset's
// transfer fee, and returns the amount the receiver actually got.
func (l *Ledger) transfer(asset, from, to string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := l.debit(asset, from, amount); err != nil {
		return decimal.Zero, err
	}
	received := amount
	if fee, ok := l.feeRates[asset]; ok && fee.IsPositive() {
		received = amount.Sub(amount.Mul(fee))
	}
	l.credit(asset, to, received)
	return received, nil
}

func (l *Ledger) EscrowFungible(_ context.Context, asset, from string, amount decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transfer(asset, from, EscrowAccount, amount)
}

func (l *Ledger) ReleaseFungible(_ context.Context, asset, to string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.transfer(asset, EscrowAccount, to, amount)
	return err
}

func (l *Ledger) EscrowNonFungible(_ context.Context, collection, from string, tokenID int64) error {
	return l.moveItem(collection, from, EscrowAccount, tokenID)
}

func (l *Ledger) ReleaseNonFungible(_ context.Context, collection, to string, tokenID int64) error {
	return l.moveItem(collection, EscrowAccount, to, tokenID)
}

func (l *Ledger) moveItem(collection, from, to string, tokenID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	holder, ok := l.items[collection][tokenID]
	if !ok {
		return fmt.Errorf("%w: %s/%d", ErrUnknownItem, collection, tokenID)
	}
	if holder != from {
		return fmt.Errorf("%w: %s/%d held by %s", ErrNotItemOwner, collection, tokenID, holder)
	}
	l.items[collection][tokenID] = to
	return nil
}

func (l *Ledger) BalanceOf(_ context.Context, asset, holder string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fungible[asset][holder], nil
}

func (l *Ledger) OwnerOf(_ context.Context, collection string, tokenID int64) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	holder, ok := l.items[collection][tokenID]
	if !ok {
		return "", fmt.Errorf("%w: %s/%d", ErrUnknownItem, collection, tokenID)
	}
	return holder, nil
}
