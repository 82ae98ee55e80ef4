package handlers

import (
	"net/http"

	"raffle-market/internal/models"
	"raffle-market/internal/oracle"

	"github.com/gin-gonic/gin"
)

// OracleHandler exposes the randomness callback for deployments where
// fulfillment is driven externally instead of by the oracle's own timer.
type OracleHandler struct {
	oracle *oracle.LocalOracle
}

func NewOracleHandler(localOracle *oracle.LocalOracle) *OracleHandler {
	return &OracleHandler{
		oracle: localOracle,
	}
}

// Fulfill delivers random words for a pending request
// POST /api/oracle/fulfill
func (h *OracleHandler) Fulfill(c *gin.Context) {
	var req models.OracleFulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.oracle.Fulfill(c.Request.Context(), req.RequestID, req.Words); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "request fulfilled"})
}

// Pending lists request IDs awaiting fulfillment
// GET /api/oracle/pending
func (h *OracleHandler) Pending(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pending": h.oracle.PendingRequests()})
}
