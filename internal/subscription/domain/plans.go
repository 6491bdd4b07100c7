package domain

// FeatureBundle is the per-tier feature/limit set frozen onto a
// subscription at activation.
type FeatureBundle struct {
	MaxProducts       int     `json:"max_products"`
	CommissionPercent float64 `json:"commission_percent"`
	Analytics         bool    `json:"analytics"`
	PrioritySupport   bool    `json:"priority_support"`
	CustomStorefront  bool    `json:"custom_storefront"`
}

// Plan describes a tier's catalog entry. MonthlyAmount is in minor
// currency units; quarterly and yearly amounts are always derived from
// it at read time, never persisted.
type Plan struct {
	Tier          Tier
	MonthlyAmount int64
	Currency      string
	Features      FeatureBundle
}

const (
	quarterlyDiscountPercent = 10
	yearlyDiscountPercent    = 20
)

var plans = map[Tier]Plan{
	TierFree: {
		Tier:          TierFree,
		MonthlyAmount: 0,
		Currency:      "INR",
		Features: FeatureBundle{
			MaxProducts:       10,
			CommissionPercent: 15,
		},
	},
	TierStarter: {
		Tier:          TierStarter,
		MonthlyAmount: 99900,
		Currency:      "INR",
		Features: FeatureBundle{
			MaxProducts:       100,
			CommissionPercent: 10,
			Analytics:         true,
		},
	},
	TierProfessional: {
		Tier:          TierProfessional,
		MonthlyAmount: 249900,
		Currency:      "INR",
		Features: FeatureBundle{
			MaxProducts:       1000,
			CommissionPercent: 7,
			Analytics:         true,
			PrioritySupport:   true,
		},
	},
	TierEnterprise: {
		Tier:          TierEnterprise,
		MonthlyAmount: 499900,
		Currency:      "INR",
		Features: FeatureBundle{
			MaxProducts:       -1, // unlimited
			CommissionPercent: 5,
			Analytics:         true,
			PrioritySupport:   true,
			CustomStorefront:  true,
		},
	},
}

// PlanFor resolves the catalog entry for a tier.
func PlanFor(tier Tier) (Plan, bool) {
	plan, ok := plans[tier]
	return plan, ok
}

// AmountFor derives the charge for a tier and interval from the monthly
// base price and the interval discount.
func AmountFor(tier Tier, interval BillingInterval) (int64, bool) {
	plan, ok := plans[tier]
	if !ok {
		return 0, false
	}
	switch interval {
	case IntervalMonthly:
		return plan.MonthlyAmount, true
	case IntervalQuarterly:
		return plan.MonthlyAmount * 3 * (100 - quarterlyDiscountPercent) / 100, true
	case IntervalYearly:
		return plan.MonthlyAmount * 12 * (100 - yearlyDiscountPercent) / 100, true
	default:
		return 0, false
	}
}

func IsValidTier(tier Tier) bool {
	_, ok := plans[tier]
	return ok
}

func IsValidInterval(interval BillingInterval) bool {
	switch interval {
	case IntervalMonthly, IntervalQuarterly, IntervalYearly:
		return true
	default:
		return false
	}
}
