package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"dompet/models"
)

// getBudgetHandler returns the user's budget (if any) together with the
// expense total for the current calendar month. The month window is always
// applied; an all-time total would make the percentage meaningless.
func getBudgetHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	var budget *models.Budget
	var b models.Budget
	switch err := db.Where("user_id = ?", user.ID).First(&b).Error; err {
	case nil:
		budget = &b
	case gorm.ErrRecordNotFound:
		// no budget yet, still report current spending
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	total, err := dataStore.SumMonthlyExpenses(user.ID, monthStart, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"budget": budget, "current_expenses": total})
}

// updateBudgetHandler sets the user's monthly threshold, creating the budget
// row on first use (one budget per user).
func updateBudgetHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Amount.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must not be negative"})
		return
	}

	var budget models.Budget
	err := db.Where("user_id = ?", user.ID).First(&budget).Error
	switch err {
	case nil:
		if err := db.Model(&budget).Update("amount", req.Amount).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
			return
		}
		budget.Amount = req.Amount
	case gorm.ErrRecordNotFound:
		budget = models.Budget{UserID: user.ID, Amount: req.Amount}
		if err := db.Create(&budget).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
			return
		}
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, budget)
}
