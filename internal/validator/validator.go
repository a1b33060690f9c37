// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("portfolio_type", validatePortfolioType)
		_ = v.RegisterValidation("investment_type", validateInvestmentType)
		_ = v.RegisterValidation("withdraw_status", validateWithdrawStatus)
		_ = v.RegisterValidation("ledger_type", validateLedgerType)
	}
}

func validatePortfolioType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "standard", "premium", "gold":
		return true
	}
	return false
}

func validateInvestmentType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "starter", "growth", "elite":
		return true
	}
	return false
}

func validateWithdrawStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "pending", "processing", "sent", "failed":
		return true
	}
	return false
}

func validateLedgerType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "initial", "payment", "withdrawal", "interest_deposit",
		"end_investment", "renew_investment", "points_redemption",
		"credit", "debit":
		return true
	}
	return false
}
