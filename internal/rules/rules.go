// Package rules is the portfolio rules provider: given a portfolio type and
// an investment type it yields the weekly interest rate and the investment
// duration used to derive the expiry date from a start date.
package rules

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "vestra/internal/errors"
)

// Provider resolves investment rules for a (portfolio_type, investment_type)
// pair. Implementations must be safe for concurrent use.
type Provider interface {
	// WeeklyRate returns the weekly interest rate as a percentage
	// (e.g. 5 means 5% per week).
	WeeklyRate(portfolioType, investmentType string) (decimal.Decimal, error)
	// ExpiryDate computes when an investment started at start stops
	// accruing interest.
	ExpiryDate(portfolioType, investmentType string, start time.Time) (time.Time, error)
}

// Rule describes one investment plan.
type Rule struct {
	WeeklyRatePercent decimal.Decimal
	Duration          time.Duration
}

type planKey struct {
	portfolio  string
	investment string
}

// staticProvider serves rules from an in-memory table.
type staticProvider struct {
	plans map[planKey]Rule
}

// NewStaticProvider creates a Provider backed by the built-in plan table.
func NewStaticProvider() Provider {
	week := 7 * 24 * time.Hour
	return &staticProvider{
		plans: map[planKey]Rule{
			{"standard", "starter"}: {WeeklyRatePercent: decimal.NewFromFloat(2.5), Duration: 12 * week},
			{"standard", "growth"}:  {WeeklyRatePercent: decimal.NewFromInt(4), Duration: 26 * week},
			{"premium", "growth"}:   {WeeklyRatePercent: decimal.NewFromFloat(4.5), Duration: 26 * week},
			{"premium", "elite"}:    {WeeklyRatePercent: decimal.NewFromInt(5), Duration: 52 * week},
			{"gold", "elite"}:       {WeeklyRatePercent: decimal.NewFromInt(5), Duration: 52 * week},
		},
	}
}

// NewProviderFromTable creates a Provider from an explicit plan table,
// used by tests and by deployments that load rules from configuration.
func NewProviderFromTable(plans map[[2]string]Rule) Provider {
	p := &staticProvider{plans: make(map[planKey]Rule, len(plans))}
	for k, v := range plans {
		p.plans[planKey{k[0], k[1]}] = v
	}
	return p
}

func (p *staticProvider) lookup(portfolioType, investmentType string) (Rule, error) {
	rule, ok := p.plans[planKey{portfolioType, investmentType}]
	if !ok {
		return Rule{}, apperrors.ErrUnknownPlan
	}
	return rule, nil
}

func (p *staticProvider) WeeklyRate(portfolioType, investmentType string) (decimal.Decimal, error) {
	rule, err := p.lookup(portfolioType, investmentType)
	if err != nil {
		return decimal.Zero, err
	}
	return rule.WeeklyRatePercent, nil
}

func (p *staticProvider) ExpiryDate(portfolioType, investmentType string, start time.Time) (time.Time, error) {
	rule, err := p.lookup(portfolioType, investmentType)
	if err != nil {
		return time.Time{}, err
	}
	return start.UTC().Add(rule.Duration), nil
}
