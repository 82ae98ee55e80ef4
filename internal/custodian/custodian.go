package custodian

import (
	"context"

	"github.com/shopspring/decimal"
)

// NativeAsset is the ledger's asset reference for the native coin.
const NativeAsset = "native"

// AssetCustodian moves fungible tokens and non-fungible items between external
// accounts and the escrow held for raffles. Fungible escrow reports the amount
// actually received so callers can detect fee-on-transfer tokens and fail
// closed.
type AssetCustodian interface {
	EscrowFungible(ctx context.Context, asset, from string, amount decimal.Decimal) (decimal.Decimal, error)
	ReleaseFungible(ctx context.Context, asset, to string, amount decimal.Decimal) error
	EscrowNonFungible(ctx context.Context, collection, from string, tokenID int64) error
	ReleaseNonFungible(ctx context.Context, collection, to string, tokenID int64) error
	BalanceOf(ctx context.Context, asset, holder string) (decimal.Decimal, error)
	OwnerOf(ctx context.Context, collection string, tokenID int64) (string, error)
}

// NativeAdapter handles native-currency payments. Collect debits an inbound
// payment from a payer. Pay attempts a direct credit and, when the recipient
// rejects native funds, falls back to crediting a wrapped representation
// through the custodian; the fallback cannot fail, so payouts never trap funds.
type NativeAdapter interface {
	Collect(ctx context.Context, from string, amount decimal.Decimal) error
	Pay(ctx context.Context, to string, amount decimal.Decimal)
}
