package services

import (
	"fmt"

	"gorm.io/gorm"

	apperrors "vestra/internal/errors"
	"vestra/internal/logger"
	"vestra/internal/models"
	"vestra/internal/pagination"
)

// adminService provides reporting queries for the admin surface.
type adminService struct {
	db      *gorm.DB
	accrual AccrualServicer
}

// NewAdminService creates a new AdminServicer.
func NewAdminService(db *gorm.DB, accrual AccrualServicer) AdminServicer {
	return &adminService{db: db, accrual: accrual}
}

// ListInvestors returns a paginated investor list, optionally filtered by a
// case-insensitive email substring.
func (s *adminService) ListInvestors(search string, page pagination.PageRequest) (*pagination.PageResponse[models.Investor], error) {
	page.Defaults()

	base := s.db.Model(&models.Investor{}).Scopes(pagination.SearchEmail(search))

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var investors []models.Investor
	err := base.Order("created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&investors).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(investors, page.Page, page.PageSize, totalItems)
	return &resp, nil
}

// PaymentsSummary returns investment totals and payment progress per investor.
func (s *adminService) PaymentsSummary(search string, page pagination.PageRequest) (*pagination.PageResponse[InvestorSummary], error) {
	investors, err := s.ListInvestors(search, page)
	if err != nil {
		return nil, err
	}

	summary := make([]InvestorSummary, 0, len(investors.Data))
	for _, inv := range investors.Data {
		summary = append(summary, InvestorSummary{
			ID:                inv.ID,
			Name:              fmt.Sprintf("%s %s", inv.FirstName, inv.Surname),
			Email:             inv.Email,
			InitialInvestment: inv.InitialInvestment,
			TotalInvestment:   inv.InvestmentBalance(),
			TotalPaid:         inv.TotalPaid,
			PaymentCounter:    inv.PaymentCounter,
			CurrentWeek:       inv.CurrentWeek,
			NextDueDate:       inv.NextDueDate,
		})
	}

	resp := pagination.NewPageResponse(summary, investors.Page, investors.PageSize, investors.TotalItems)
	return &resp, nil
}

// MissedPaymentsSummary lists every investor with outstanding missed weekly
// payments. Per-investor calculation failures are logged and skipped so one
// corrupt record does not hide the rest of the report.
func (s *adminService) MissedPaymentsSummary() ([]MissedPaymentEntry, error) {
	var investors []models.Investor
	if err := s.db.Where("investment_ended = ?", false).Find(&investors).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	entries := []MissedPaymentEntry{}
	for _, inv := range investors {
		result, err := s.accrual.CalculateMissedPayments(inv.ID)
		if err != nil {
			logger.Get().Warnw("Missed-payments calculation skipped",
				"investor_id", inv.ID, "error", err)
			continue
		}
		if result.Missed <= 0 {
			continue
		}
		entries = append(entries, MissedPaymentEntry{
			InvestorID:      inv.ID,
			Name:            fmt.Sprintf("%s %s", inv.FirstName, inv.Surname),
			Email:           inv.Email,
			MissedPayments:  result.Missed,
			WeeksElapsed:    result.WeeksElapsed,
			PaymentCounter:  result.PaymentCounter,
			TotalInvestment: inv.InvestmentBalance(),
		})
	}
	return entries, nil
}
