package handlers

import (
	"net/http"
	"strconv"

	"raffle-market/internal/auth"
	"raffle-market/internal/models"
	"raffle-market/internal/services"

	"github.com/gin-gonic/gin"
)

type MarketHandler struct {
	marketService *services.MarketService
}

func NewMarketHandler(marketService *services.MarketService) *MarketHandler {
	return &MarketHandler{
		marketService: marketService,
	}
}

// CreateSellOrder lists a ticket for resale
// POST /api/raffles/:id/orders
func (h *MarketHandler) CreateSellOrder(c *gin.Context) {
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

	var req models.CreateSellOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.marketService.CreateSellOrder(c.Request.Context(), account, raffleID, &req); err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "sell order created"})
}

// GetSellOrder retrieves the active order for a ticket
// GET /api/raffles/:id/orders/:index
func (h *MarketHandler) GetSellOrder(c *gin.Context) {
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

	order, err := h.marketService.GetSellOrder(c.Request.Context(), raffleID, ticketIndex)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}

// CancelSellOrder delists a ticket
// DELETE /api/raffles/:id/orders/:index
func (h *MarketHandler) CancelSellOrder(c *gin.Context) {
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
	ticketIndex, err := strconv.ParseInt(c.Param("index"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket index"})
		return
	}

	if err := h.marketService.CancelSellOrder(c.Request.Context(), account, raffleID, ticketIndex); err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "sell order cancelled"})
}

// BuyResaleTicket fulfills a sell order
// POST /api/raffles/:id/orders/:index/buy
func (h *MarketHandler) BuyResaleTicket(c *gin.Context) {
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
	ticketIndex, err := strconv.ParseInt(c.Param("index"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket index"})
		return
	}

	var req models.BuyResaleTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.marketService.BuyResaleTicket(c.Request.Context(), account, raffleID, ticketIndex, &req); err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ticket purchased"})
}
