package entitlements

import "strings"

type Plan string

const (
	PlanFree       Plan = "free"
	PlanPremium    Plan = "premium"
	PlanPremiumMax Plan = "premium_max"
)

// MonthlyGrant returns the AI tokens granted at the start of each billing
// month for a plan. Free users buy packs instead of receiving a grant.
func MonthlyGrant(plan Plan) int64 {
	switch plan {
	case PlanPremiumMax:
		return 20000
	case PlanPremium:
		return 6000
	default:
		return 0
	}
}

// NormalizePlan maps arbitrary plan strings to a known Plan, defaulting
// to free.
func NormalizePlan(raw string) Plan {
	switch Plan(strings.ToLower(strings.TrimSpace(raw))) {
	case PlanPremium:
		return PlanPremium
	case PlanPremiumMax:
		return PlanPremiumMax
	default:
		return PlanFree
	}
}

// PlanRank orders plans for comparisons; higher wins.
func PlanRank(plan Plan) int {
	switch plan {
	case PlanPremiumMax:
		return 2
	case PlanPremium:
		return 1
	default:
		return 0
	}
}
