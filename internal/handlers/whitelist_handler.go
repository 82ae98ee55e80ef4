package handlers

import (
	"net/http"

	"raffle-market/internal/whitelist"

	"github.com/gin-gonic/gin"
)

// WhitelistHandler builds Merkle trees for private raffles so creators do not
// need their own tooling to produce roots and proofs.
type WhitelistHandler struct{}

func NewWhitelistHandler() *WhitelistHandler {
	return &WhitelistHandler{}
}

type buildTreeRequest struct {
	Accounts []string `json:"accounts" binding:"required"`
}

// BuildTree computes the whitelist root and per-account inclusion proofs
// POST /api/whitelist/tree
func (h *WhitelistHandler) BuildTree(c *gin.Context) {
	var req buildTreeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tree, err := whitelist.BuildTree(req.Accounts)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proofs := make(map[string][]string, len(req.Accounts))
	for _, account := range req.Accounts {
		if proof, ok := tree.ProofHex(account); ok {
			proofs[account] = proof
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"root":   tree.RootHex(),
		"proofs": proofs,
	})
}
