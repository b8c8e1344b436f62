// Package allocator implements the signup-position computation: a single
// ordered pass that places every active signup of an event into its quota,
// the shared open quota, or the wait-queue.
package allocator

import "eventsignup/internal/model"

// Item is one active signup as seen by the allocator. Items must be supplied
// in (createdAt, id) ascending order; the allocator never reorders them.
type Item struct {
	SignupID string
	QuotaID  string
	// QuotaSize is the capacity of the signup's quota; nil means unlimited.
	QuotaSize *int
	// PrevStatus is the currently persisted status, used only to count how
	// many signups a recomputation would newly move into the queue.
	PrevStatus model.SignupStatus
}

// Result is the full outcome of one allocation pass.
type Result struct {
	Assignments []model.SignupPosition
	// MovedToQueue counts signups assigned in-queue whose previous persisted
	// status was anything else.
	MovedToQueue int
}

// Assign computes a status and 1-based position for every item.
//
// Fill is first-come-first-served and non-decreasing: each item's placement
// depends only on items strictly before it in the input order, so replaying
// the same snapshot always yields the same assignments.
func Assign(items []Item, openQuotaSize int) Result {
	quotaFill := make(map[string]int, 8)
	inOpen := 0
	inQueue := 0

	res := Result{Assignments: make([]model.SignupPosition, 0, len(items))}
	for _, it := range items {
		var status model.SignupStatus
		var position int

		inQuota := quotaFill[it.QuotaID]
		switch {
		case it.QuotaSize == nil || inQuota < *it.QuotaSize:
			inQuota++
			quotaFill[it.QuotaID] = inQuota
			status = model.StatusInQuota
			position = inQuota
		case inOpen < openQuotaSize:
			inOpen++
			status = model.StatusInOpen
			position = inOpen
		default:
			inQueue++
			status = model.StatusInQueue
			position = inQueue
			if it.PrevStatus != model.StatusInQueue {
				res.MovedToQueue++
			}
		}

		res.Assignments = append(res.Assignments, model.SignupPosition{
			SignupID: it.SignupID,
			Status:   status,
			Position: position,
		})
	}
	return res
}
