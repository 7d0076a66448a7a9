// engine/stats.go
package engine

import (
	"time"

	"github.com/agentgate/agentgate/model"
)

// ComputeStatistics aggregates the given request snapshots at the supplied
// instant. Counts use the effective status, so an overdue pending request is
// counted as expired even before the sweeper has flipped it, and the
// wall-clock-derived fields are always computed fresh.
func ComputeStatistics(requests []model.ApprovalRequest, now time.Time) model.ApprovalStatistics {
	stats := model.ApprovalStatistics{TotalRequests: len(requests)}

	var decided int
	var totalLatency time.Duration

	for i := range requests {
		req := &requests[i]
		switch req.EffectiveStatus(now) {
		case model.StatusPending:
			stats.PendingRequests++
			if req.Priority.High() {
				stats.HighPriorityCount++
			}
			if req.ExpiresAt != nil {
				until := req.ExpiresAt.Sub(now)
				if until > 0 && until < time.Hour {
					stats.ExpiringWithin1Hour++
				}
			}
		case model.StatusApproved:
			stats.ApprovedRequests++
		case model.StatusRejected:
			stats.RejectedRequests++
		case model.StatusExpired:
			stats.ExpiredRequests++
		case model.StatusCancelled:
			stats.CancelledRequests++
		}

		// Decision latency only covers requests a human actually resolved.
		if (req.Status == model.StatusApproved || req.Status == model.StatusRejected) && req.ResolvedAt != nil {
			decided++
			totalLatency += req.ResolvedAt.Sub(req.CreatedAt)
		}
	}

	if decided > 0 {
		stats.AverageApprovalTime = totalLatency / time.Duration(decided)
	}
	return stats
}
