package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"dompet/models"
	"dompet/pkg/ledger"
)

type transactionRequest struct {
	AccountID         uint                      `json:"account_id" binding:"required"`
	Type              models.TransactionType    `json:"type" binding:"required"`
	Amount            decimal.Decimal           `json:"amount"`
	Description       string                    `json:"description"`
	Category          string                    `json:"category"`
	Date              string                    `json:"date"` // RFC3339, defaults to now
	IsRecurring       bool                      `json:"is_recurring"`
	RecurringInterval *models.RecurringInterval `json:"recurring_interval"`
}

func (r transactionRequest) toInput() (ledger.Input, error) {
	date := time.Now()
	if r.Date != "" {
		t, err := time.Parse(time.RFC3339, r.Date)
		if err != nil {
			return ledger.Input{}, fmt.Errorf("%w: bad date %q", ledger.ErrValidation, r.Date)
		}
		date = t
	}
	return ledger.Input{
		AccountID:         r.AccountID,
		Type:              r.Type,
		Amount:            r.Amount,
		Description:       r.Description,
		Category:          r.Category,
		Date:              date,
		IsRecurring:       r.IsRecurring,
		RecurringInterval: r.RecurringInterval,
	}, nil
}

// ledgerErrStatus maps engine errors to HTTP statuses. Foreign rows come back
// as 404 so existence of other users' data is never leaked.
func ledgerErrStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// createTransactionHandler records a transaction through the ledger engine,
// which also applies the balance effect atomically.
func createTransactionHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tx, err := engine.Create(user.ID, in)
	if err != nil {
		c.JSON(ledgerErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tx)
}

func getTransactionHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}
	tx, err := dataStore.FindTransaction(user.ID, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}
	c.JSON(http.StatusOK, tx)
}

// updateTransactionHandler rewrites a transaction; the engine reconciles the
// balance of the old and (possibly different) new account.
func updateTransactionHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := engine.Update(user.ID, id, in)
	if err != nil {
		c.JSON(ledgerErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": res.AccountID})
}

// bulkDeleteTransactionsHandler removes a batch of owned transactions in one
// atomic unit, reverting every balance contribution.
func bulkDeleteTransactionsHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		IDs []uint `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := engine.BulkDelete(user.ID, req.IDs); err != nil {
		c.JSON(ledgerErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transactions deleted", "count": len(req.IDs)})
}

// dashboardHandler serves the user's accounts plus recent transactions.
// Responses are cached until a mutation touches one of the accounts.
func dashboardHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	key := fmt.Sprintf("dashboard:%d", user.ID)
	if cached, ok := views.Get(key); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	var accounts []models.Account
	if err := db.Where("user_id = ?", user.ID).Order("created_at desc").Find(&accounts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	var recent []models.Transaction
	if err := db.Where("user_id = ?", user.ID).Order("date desc").Limit(50).Find(&recent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	payload := gin.H{"accounts": accounts, "recent_transactions": recent}
	ids := make([]uint, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	views.Put(key, payload, ids...)
	c.JSON(http.StatusOK, payload)
}
