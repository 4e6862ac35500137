package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"finsync/internal/domain"
	"finsync/internal/service"
)

// FinanceHandler atiende cuentas y transacciones del usuario autenticado.
type FinanceHandler struct {
	logger       *zap.Logger
	accounts     *service.AccountService
	transactions *service.TransactionService
}

func NewFinanceHandler(logger *zap.Logger, accounts *service.AccountService, transactions *service.TransactionService) *FinanceHandler {
	return &FinanceHandler{
		logger:       logger,
		accounts:     accounts,
		transactions: transactions,
	}
}

// GetAccounts maneja GET /accounts.
func (h *FinanceHandler) GetAccounts(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	resp, err := h.accounts.Accounts(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list accounts failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve accounts"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreateAccount maneja POST /accounts.
func (h *FinanceHandler) CreateAccount(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req domain.AccountLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid account link request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	link, err := h.accounts.LinkAccount(c.Request.Context(), userID, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLink) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("link account failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to link account"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"account": link})
}

// GetTransactions maneja GET /transactions.
func (h *FinanceHandler) GetTransactions(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	txs, err := h.transactions.List(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list transactions failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve transactions"})
		return
	}
	c.JSON(http.StatusOK, domain.TransactionsResponse{Transactions: txs})
}

// UpdateTransaction maneja PUT /transactions/:id con un patch parcial.
func (h *FinanceHandler) UpdateTransaction(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	id := c.Param("id")
	if _, err := h.transactions.Edit(c.Request.Context(), userID, id, patch); err != nil {
		switch {
		case errors.Is(err, service.ErrTransactionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		case errors.Is(err, service.ErrInvalidPatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("edit transaction failed",
				zap.String("user_id", userID),
				zap.String("transaction_id", id),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to edit transaction"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction successfully updated"})
}

func (h *FinanceHandler) userID(c *gin.Context) (string, bool) {
	claims, ok := GetAuthClaims(c)
	if !ok || claims.UserID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user"})
		return "", false
	}
	return claims.UserID, true
}
