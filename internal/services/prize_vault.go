package services

import (
	"context"
	"fmt"

	"raffle-market/internal/models"

	"github.com/shopspring/decimal"
)

// prizeVault abstracts how a prize kind is escrowed and released. One
// implementation per kind; the raffle record carries the tag.
type prizeVault interface {
	escrow(ctx context.Context, caller string, r *models.Raffle, payment decimal.Decimal) error
	release(ctx context.Context, to string, r *models.Raffle) error
}

func (s *RaffleService) vaultFor(kind models.RaffleKind) prizeVault {
	if kind == models.RaffleKindNonFungible {
		return &nonFungiblePrize{svc: s}
	}
	return &fungiblePrize{svc: s}
}

// fungiblePrize escrows a token quantity, or the native coin when the prize
// asset is the native sentinel.
type fungiblePrize struct {
	svc *RaffleService
}

func (v *fungiblePrize) escrow(ctx context.Context, caller string, r *models.Raffle, payment decimal.Decimal) error {
	if r.PrizeAssetRef == models.NativeCurrency {
		if !payment.Equal(r.PrizeAmount) {
			return models.ErrNotEnoughEther
		}
		if err := v.svc.native.Collect(ctx, caller, r.PrizeAmount); err != nil {
			return models.ErrNotEnoughEther
		}
		return nil
	}

	balance, err := v.svc.custodian.BalanceOf(ctx, r.PrizeAssetRef, caller)
	if err != nil {
		return fmt.Errorf("failed to read prize balance: %w", err)
	}
	if balance.LessThan(r.PrizeAmount) {
		return models.ErrNotEnoughTokens
	}
	received, err := v.svc.custodian.EscrowFungible(ctx, r.PrizeAssetRef, caller, r.PrizeAmount)
	if err != nil {
		return fmt.Errorf("failed to escrow prize: %w", err)
	}
	// A fee-charging token would leave the raffle under-collateralized.
	if !received.Equal(r.PrizeAmount) {
		return models.ErrERC20NotTransferred
	}
	return nil
}

func (v *fungiblePrize) release(ctx context.Context, to string, r *models.Raffle) error {
	return v.svc.payOut(ctx, to, r.PrizeAssetRef, r.PrizeAmount)
}

// nonFungiblePrize escrows a single item out of a collection.
type nonFungiblePrize struct {
	svc *RaffleService
}

func (v *nonFungiblePrize) escrow(ctx context.Context, caller string, r *models.Raffle, _ decimal.Decimal) error {
	holder, err := v.svc.custodian.OwnerOf(ctx, r.PrizeAssetRef, r.PrizeTokenID)
	if err != nil {
		return fmt.Errorf("failed to resolve prize item: %w", err)
	}
	if holder != caller {
		return models.ErrNotYourAsset
	}
	if err := v.svc.custodian.EscrowNonFungible(ctx, r.PrizeAssetRef, caller, r.PrizeTokenID); err != nil {
		return fmt.Errorf("failed to escrow prize item: %w", err)
	}
	return nil
}

func (v *nonFungiblePrize) release(ctx context.Context, to string, r *models.Raffle) error {
	if err := v.svc.custodian.ReleaseNonFungible(ctx, r.PrizeAssetRef, to, r.PrizeTokenID); err != nil {
		return fmt.Errorf("failed to release prize item: %w", err)
	}
	return nil
}
