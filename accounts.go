package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"dompet/models"
)

// createAccountHandler opens an account for the authenticated user. The
// user's first account is forced to be the default one; marking a later
// account default clears the previous default in the same atomic unit.
func createAccountHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		Name      string             `json:"name" binding:"required"`
		Type      models.AccountType `json:"type"`
		Balance   decimal.Decimal    `json:"balance"`
		IsDefault bool               `json:"is_default"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type == "" {
		req.Type = models.AccountCurrent
	}
	if req.Type != models.AccountCurrent && req.Type != models.AccountSavings {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown account type"})
		return
	}

	var existing int64
	db.Model(&models.Account{}).Where("user_id = ?", user.ID).Count(&existing)
	shouldBeDefault := existing == 0 || req.IsDefault

	acct := models.Account{
		UserID:    user.ID,
		Name:      req.Name,
		Type:      req.Type,
		Balance:   req.Balance,
		IsDefault: shouldBeDefault,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if shouldBeDefault {
			if err := tx.Model(&models.Account{}).
				Where("user_id = ? AND is_default = ?", user.ID, true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&acct).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "account name already used"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	views.InvalidateAll()
	c.JSON(http.StatusOK, acct)
}

// listAccountsHandler returns the user's accounts with transaction counts,
// newest first.
func listAccountsHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var accounts []models.Account
	if err := db.Where("user_id = ?", user.ID).Order("created_at desc").Find(&accounts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	type accountView struct {
		models.Account
		TransactionCount int64 `json:"transaction_count"`
	}
	out := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		var cnt int64
		db.Model(&models.Transaction{}).Where("account_id = ?", a.ID).Count(&cnt)
		out = append(out, accountView{Account: a, TransactionCount: cnt})
	}
	c.JSON(http.StatusOK, out)
}

// setDefaultAccountHandler makes the given account the user's default,
// clearing the flag on all others atomically.
func setDefaultAccountHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}
	if _, err := dataStore.FindAccount(user.ID, id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Account{}).Where("user_id = ?", user.ID).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.Account{}).Where("id = ? AND user_id = ?", id, user.ID).
			Update("is_default", true).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	views.InvalidateAll()
	c.JSON(http.StatusOK, gin.H{"message": "default account updated"})
}

// deleteAccountHandler removes an account and (per FK constraint) its
// transactions. If the deleted account was the default and others remain,
// the newest remaining account is promoted so the user keeps exactly one
// default.
func deleteAccountHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}
	acct, err := dataStore.FindAccount(user.ID, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		// delete rows explicitly so the behavior does not depend on FK cascade support
		if err := tx.Where("account_id = ?", acct.ID).Delete(&models.Transaction{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Account{}, acct.ID).Error; err != nil {
			return err
		}
		if !acct.IsDefault {
			return nil
		}
		var next models.Account
		if err := tx.Where("user_id = ?", user.ID).Order("created_at desc").First(&next).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil // no accounts left
			}
			return err
		}
		return tx.Model(&next).Update("is_default", true).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	views.InvalidateAll()
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}

func parseID(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}
