package handlers

import (
	"net/http"
	"strconv"

	"raffle-market/internal/auth"
	"raffle-market/internal/models"
	"raffle-market/internal/services"

	"github.com/gin-gonic/gin"
)

type RaffleHandler struct {
	raffleService *services.RaffleService
}

func NewRaffleHandler(raffleService *services.RaffleService) *RaffleHandler {
	return &RaffleHandler{
		raffleService: raffleService,
	}
}

// CreateRaffle creates a new raffle
// POST /api/raffles
func (h *RaffleHandler) CreateRaffle(c *gin.Context) {
	account, exists := auth.GetAccount(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreateRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raffle, err := h.raffleService.CreateRaffle(c.Request.Context(), account, &req)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, models.NewRaffleResponse(raffle))
}

// GetRaffle retrieves a raffle by ID
// GET /api/raffles/:id
func (h *RaffleHandler) GetRaffle(c *gin.Context) {
	raffleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid raffle id"})
		return
	}

	raffle, err := h.raffleService.GetRaffleDetails(c.Request.Context(), raffleID)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.NewRaffleResponse(raffle))
}

// GetRaffleState retrieves just the lifecycle state of a raffle
// GET /api/raffles/:id/state
func (h *RaffleHandler) GetRaffleState(c *gin.Context) {
	raffleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid raffle id"})
		return
	}

	state, err := h.raffleService.GetRaffleState(c.Request.Context(), raffleID)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": state})
}

// ListRaffles retrieves raffles, newest first
// GET /api/raffles
func (h *RaffleHandler) ListRaffles(c *gin.Context) {
	limit := 20
	offset := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	raffles, total, err := h.raffleService.ListRaffles(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list raffles"})
		return
	}

	responses := make([]*models.RaffleResponse, 0, len(raffles))
	for _, raffle := range raffles {
		responses = append(responses, models.NewRaffleResponse(raffle))
	}

	c.JSON(http.StatusOK, gin.H{
		"raffles": responses,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// BuyTickets purchases tickets in a raffle
// POST /api/raffles/:id/tickets
func (h *RaffleHandler) BuyTickets(c *gin.Context) {
	account, exists := auth.GetAccount(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	raffleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid raffle id"})
		return
	}

	var req models.BuyTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticketRange, err := h.raffleService.BuyTickets(c.Request.Context(), account, raffleID, &req)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ticketRange)
}

// GetTicketOwner retrieves the current owner of a ticket
// GET /api/raffles/:id/tickets/:index
func (h *RaffleHandler) GetTicketOwner(c *gin.Context) {
	raffleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid raffle id"})
		return
	}
	ticketIndex, err := strconv.ParseInt(c.Param("index"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket index"})
		return
	}

	owner, err := h.raffleService.GetTicketOwner(c.Request.Context(), raffleID, ticketIndex)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"owner": owner})
}

// CancelRaffle cancels an in-progress raffle
// POST /api/raffles/:id/cancel
func (h *RaffleHandler) CancelRaffle(c *gin.Context) {
	account, exists := auth.GetAccount(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	raffleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid raffle id"})
		return
	}

	if err := h.raffleService.CancelRaffle(c.Request.Context(), account, raffleID); err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "raffle cancelled"})
}

// CompleteRaffle closes an ended raffle and requests the winning draw
// POST /api/raffles/:id/complete
func (h *RaffleHandler) CompleteRaffle(c *gin.Context) {
	account, exists := auth.GetAccount(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	raffleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid raffle id"})
		return
	}

	var req models.CompleteRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.raffleService.CompleteRaffle(c.Request.Context(), account, raffleID, req.AgreeToLessTicketsSold); err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "raffle completed"})
}

// ClaimRaffle settles a drawn raffle, paying the prize and revenue out
// POST /api/raffles/:id/claim
func (h *RaffleHandler) ClaimRaffle(c *gin.Context) {
	raffleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid raffle id"})
		return
	}

	if err := h.raffleService.ClaimRaffle(c.Request.Context(), raffleID); err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "raffle claimed"})
}

// RefundTickets refunds the caller's tickets in a cancelled raffle
// POST /api/raffles/:id/refund
func (h *RaffleHandler) RefundTickets(c *gin.Context) {
	account, exists := auth.GetAccount(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	raffleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid raffle id"})
		return
	}

	var req models.RefundTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.raffleService.ClaimCancelledRaffle(c.Request.Context(), account, raffleID, req.TicketIndices); err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "tickets refunded"})
}

// GetRaffleTransactions retrieves the accounting trail for a raffle
// GET /api/raffles/:id/transactions
func (h *RaffleHandler) GetRaffleTransactions(c *gin.Context) {
	raffleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid raffle id"})
		return
	}

	transactions, err := h.raffleService.GetRaffleTransactions(c.Request.Context(), raffleID)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}
