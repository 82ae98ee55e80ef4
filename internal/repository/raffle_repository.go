package repository

import (
	"context"
	"errors"

	"raffle-market/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx runs fn inside a database transaction. The repository passed to fn is
// bound to the transaction; any error rolls everything back.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// CreateRaffle inserts a new raffle and assigns its sequential ID.
func (r *Repository) CreateRaffle(ctx context.Context, raffle *models.Raffle) error {
	return r.db.WithContext(ctx).Create(raffle).Error
}

// GetRaffleByID retrieves a raffle by ID.
func (r *Repository) GetRaffleByID(ctx context.Context, id int64) (*models.Raffle, error) {
	var raffle models.Raffle
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&raffle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrRaffleDoesNotExist
	}
	if err != nil {
		return nil, err
	}
	return &raffle, nil
}

// GetRaffleByRequestID retrieves the raffle correlated to an outstanding
// randomness request, or nil when no raffle is waiting on that ID.
func (r *Repository) GetRaffleByRequestID(ctx context.Context, requestID string) (*models.Raffle, error) {
	var raffle models.Raffle
	err := r.db.WithContext(ctx).Where("pending_request_id = ?", requestID).First(&raffle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &raffle, nil
}

// UpdateRaffle persists a raffle.
func (r *Repository) UpdateRaffle(ctx context.Context, raffle *models.Raffle) error {
	return r.db.WithContext(ctx).Save(raffle).Error
}

// ListRaffles retrieves raffles newest-first with pagination.
func (r *Repository) ListRaffles(ctx context.Context, limit, offset int) ([]*models.Raffle, int64, error) {
	var raffles []*models.Raffle
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Raffle{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&raffles).Error
	if err != nil {
		return nil, 0, err
	}

	return raffles, total, nil
}

// AssignTickets creates the contiguous ticket range [start, start+quantity-1]
// for a buyer.
func (r *Repository) AssignTickets(ctx context.Context, raffleID, start, quantity int64, owner string) error {
	tickets := make([]models.Ticket, quantity)
	for i := int64(0); i < quantity; i++ {
		tickets[i] = models.Ticket{
			RaffleID:    raffleID,
			TicketIndex: start + i,
			Owner:       owner,
		}
	}
	return r.db.WithContext(ctx).Create(&tickets).Error
}

// GetTicket retrieves a ticket row. A sold ticket always has a row; a missing
// row means the index was never sold.
func (r *Repository) GetTicket(ctx context.Context, raffleID, index int64) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		Where("raffle_id = ? AND ticket_index = ?", raffleID, index).
		First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UpdateTicketOwner reassigns a ticket. An empty owner records a refunded
// ticket with no remaining claim.
func (r *Repository) UpdateTicketOwner(ctx context.Context, raffleID, index int64, owner string) error {
	return r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("raffle_id = ? AND ticket_index = ?", raffleID, index).
		Update("owner", owner).Error
}

// UpsertSellOrder stores a sell order, overwriting any existing order for the
// same (raffle, ticket) key.
func (r *Repository) UpsertSellOrder(ctx context.Context, order *models.SellOrder) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "raffle_id"}, {Name: "ticket_index"}},
			UpdateAll: true,
		}).
		Create(order).Error
}

// GetSellOrder retrieves a sell order, or nil when the ticket is not listed.
func (r *Repository) GetSellOrder(ctx context.Context, raffleID, index int64) (*models.SellOrder, error) {
	var order models.SellOrder
	err := r.db.WithContext(ctx).
		Where("raffle_id = ? AND ticket_index = ?", raffleID, index).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// DeleteSellOrder removes a sell order (cancellation or fulfillment).
func (r *Repository) DeleteSellOrder(ctx context.Context, raffleID, index int64) error {
	return r.db.WithContext(ctx).
		Where("raffle_id = ? AND ticket_index = ?", raffleID, index).
		Delete(&models.SellOrder{}).Error
}

// CreateTransaction records an asset movement in the audit trail.
func (r *Repository) CreateTransaction(ctx context.Context, tx *models.RaffleTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// GetRaffleTransactions retrieves the audit trail for a raffle, oldest first.
func (r *Repository) GetRaffleTransactions(ctx context.Context, raffleID int64) ([]*models.RaffleTransaction, error) {
	var transactions []*models.RaffleTransaction
	err := r.db.WithContext(ctx).
		Where("raffle_id = ?", raffleID).
		Order("created_at ASC").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}
