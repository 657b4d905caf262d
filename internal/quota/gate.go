// Package quota decides whether a tenant is close enough to its completed
// ticket limit that archival should run.
package quota

import (
	tenantdomain "github.com/bomizzel/helpdesk/internal/tenant/domain"
	"github.com/bomizzel/helpdesk/internal/usagestats"
)

// DefaultThresholdPercent is the usage percentage that counts as
// approaching the limit.
const DefaultThresholdPercent = 80.0

// Decision is the outcome of a quota evaluation.
type Decision struct {
	ShouldArchive bool
	UsagePercent  float64
}

// Evaluate compares completed usage against the plan's completed ticket
// limit. Unlimited plans never trigger archival. A limit of zero counts as
// immediately over quota. Pure.
func Evaluate(usage usagestats.Snapshot, limits tenantdomain.PlanLimits, thresholdPercent float64) Decision {
	if thresholdPercent <= 0 {
		thresholdPercent = DefaultThresholdPercent
	}
	limit := limits.CompletedTicketLimit
	if limit == tenantdomain.Unlimited {
		return Decision{}
	}
	if limit <= 0 {
		return Decision{ShouldArchive: true, UsagePercent: 100}
	}

	percent := float64(usage.CompletedCount) / float64(limit) * 100
	return Decision{
		ShouldArchive: percent >= thresholdPercent,
		UsagePercent:  percent,
	}
}
