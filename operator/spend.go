package operator

import (
	"time"

	"github.com/eventsandbox/safe/dce"
)

// LeaseSpend sums the cost of usage records belonging to a lease: records
// whose principal and account both match and whose reporting range lies
// inside the lease window, compared at day granularity. A usage record on
// the lease's first or last day counts; anything outside does not.
func LeaseSpend(lease dce.Lease, usage []dce.UsageRecord) float64 {
	sum := 0.0
	for _, record := range usage {
		if record.PrincipalID != lease.PrincipalID || record.AccountID != lease.AccountID {
			continue
		}
		if inLeaseWindow(record.StartDate, record.EndDate, lease.CreatedOn, lease.ExpiresOn) {
			sum += record.CostAmount
		}
	}
	return sum
}

// inLeaseWindow reports whether [usageStart, usageEnd] falls inside
// [leaseStart, leaseEnd] with all four timestamps truncated to UTC days.
func inLeaseWindow(usageStart, usageEnd, leaseStart, leaseEnd int64) bool {
	us, ue := day(usageStart), day(usageEnd)
	ls, le := day(leaseStart), day(leaseEnd)
	return !us.Before(ls) && !ue.After(le)
}

// day truncates an epoch-second timestamp to its UTC calendar day.
func day(ts int64) time.Time {
	t := time.Unix(ts, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
