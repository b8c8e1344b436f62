package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsignup/internal/model"
)

func intPtr(v int) *int { return &v }

func item(id, quotaID string, size *int, prev model.SignupStatus) Item {
	return Item{SignupID: id, QuotaID: quotaID, QuotaSize: size, PrevStatus: prev}
}

func TestAssignQuotaOverflowAndQueue(t *testing.T) {
	// Quota of 2 plus one open slot: S1, S2 in quota, S3 in open, S4 queued.
	items := []Item{
		item("s1", "q1", intPtr(2), model.StatusUnset),
		item("s2", "q1", intPtr(2), model.StatusUnset),
		item("s3", "q1", intPtr(2), model.StatusUnset),
		item("s4", "q1", intPtr(2), model.StatusUnset),
	}

	res := Assign(items, 1)

	require.Len(t, res.Assignments, 4)
	assert.Equal(t, model.SignupPosition{SignupID: "s1", Status: model.StatusInQuota, Position: 1}, res.Assignments[0])
	assert.Equal(t, model.SignupPosition{SignupID: "s2", Status: model.StatusInQuota, Position: 2}, res.Assignments[1])
	assert.Equal(t, model.SignupPosition{SignupID: "s3", Status: model.StatusInOpen, Position: 1}, res.Assignments[2])
	assert.Equal(t, model.SignupPosition{SignupID: "s4", Status: model.StatusInQueue, Position: 1}, res.Assignments[3])
	assert.Equal(t, 1, res.MovedToQueue)
}

func TestAssignAdvancesQueueAfterDeparture(t *testing.T) {
	// Same event as above after S1 left: everyone shifts up one tier.
	items := []Item{
		item("s2", "q1", intPtr(2), model.StatusInQuota),
		item("s3", "q1", intPtr(2), model.StatusInOpen),
		item("s4", "q1", intPtr(2), model.StatusInQueue),
	}

	res := Assign(items, 1)

	assert.Equal(t, model.SignupPosition{SignupID: "s2", Status: model.StatusInQuota, Position: 1}, res.Assignments[0])
	assert.Equal(t, model.SignupPosition{SignupID: "s3", Status: model.StatusInQuota, Position: 2}, res.Assignments[1])
	assert.Equal(t, model.SignupPosition{SignupID: "s4", Status: model.StatusInOpen, Position: 1}, res.Assignments[2])
	assert.Equal(t, 0, res.MovedToQueue)
}

func TestAssignCountsDemotions(t *testing.T) {
	// Quota shrunk to 0 with no open slots: both previously placed signups
	// would be newly queued.
	items := []Item{
		item("s1", "q1", intPtr(0), model.StatusInQuota),
		item("s2", "q1", intPtr(0), model.StatusInQuota),
	}

	res := Assign(items, 0)

	assert.Equal(t, model.StatusInQueue, res.Assignments[0].Status)
	assert.Equal(t, model.StatusInQueue, res.Assignments[1].Status)
	assert.Equal(t, 2, res.MovedToQueue)
}

func TestAssignUnlimitedQuota(t *testing.T) {
	items := []Item{
		item("s1", "q1", nil, model.StatusUnset),
		item("s2", "q1", nil, model.StatusInQueue),
		item("s3", "q1", nil, model.StatusUnset),
	}

	res := Assign(items, 0)

	for i, a := range res.Assignments {
		assert.Equal(t, model.StatusInQuota, a.Status)
		assert.Equal(t, i+1, a.Position)
	}
	assert.Equal(t, 0, res.MovedToQueue)
}

func TestAssignZeroSizeQuotaAlwaysOverflows(t *testing.T) {
	items := []Item{
		item("s1", "q1", intPtr(0), model.StatusUnset),
		item("s2", "q1", intPtr(0), model.StatusUnset),
	}

	res := Assign(items, 1)

	assert.Equal(t, model.StatusInOpen, res.Assignments[0].Status)
	assert.Equal(t, model.StatusInQueue, res.Assignments[1].Status)
}

func TestAssignOpenQuotaSharedAcrossQuotas(t *testing.T) {
	// Two full quotas compete for a single shared open slot; arrival order
	// decides who gets it.
	items := []Item{
		item("a1", "qa", intPtr(1), model.StatusUnset),
		item("b1", "qb", intPtr(1), model.StatusUnset),
		item("a2", "qa", intPtr(1), model.StatusUnset),
		item("b2", "qb", intPtr(1), model.StatusUnset),
	}

	res := Assign(items, 1)

	assert.Equal(t, model.StatusInQuota, res.Assignments[0].Status)
	assert.Equal(t, model.StatusInQuota, res.Assignments[1].Status)
	assert.Equal(t, model.StatusInOpen, res.Assignments[2].Status)
	assert.Equal(t, model.StatusInQueue, res.Assignments[3].Status)
	assert.Equal(t, 1, res.Assignments[3].Position)
}

func TestAssignIsDeterministic(t *testing.T) {
	items := []Item{
		item("s1", "q1", intPtr(1), model.StatusUnset),
		item("s2", "q2", intPtr(2), model.StatusInOpen),
		item("s3", "q1", intPtr(1), model.StatusInQueue),
		item("s4", "q2", intPtr(2), model.StatusUnset),
		item("s5", "q1", intPtr(1), model.StatusInQuota),
	}

	first := Assign(items, 1)
	second := Assign(items, 1)

	assert.Equal(t, first, second)
}

func TestAssignMonotonicFill(t *testing.T) {
	// Appending a later signup never changes the placement of earlier ones.
	base := []Item{
		item("s1", "q1", intPtr(1), model.StatusUnset),
		item("s2", "q1", intPtr(1), model.StatusUnset),
	}
	extended := append(append([]Item{}, base...), item("s3", "q1", intPtr(1), model.StatusUnset))

	before := Assign(base, 1)
	after := Assign(extended, 1)

	assert.Equal(t, before.Assignments, after.Assignments[:len(base)])
}

func TestAssignCapacityBoundsHold(t *testing.T) {
	// Property: per status category the counts never exceed the configured
	// capacities, whatever the mix of quotas.
	sizes := map[string]*int{"q1": intPtr(2), "q2": intPtr(1), "q3": nil}
	var items []Item
	for i := 0; i < 20; i++ {
		q := []string{"q1", "q2", "q3"}[i%3]
		items = append(items, item(string(rune('a'+i)), q, sizes[q], model.StatusUnset))
	}
	openQuotaSize := 3

	res := Assign(items, openQuotaSize)

	inQuota := map[string]int{}
	inOpen, inQueue := 0, 0
	for i, it := range items {
		a := res.Assignments[i]
		switch a.Status {
		case model.StatusInQuota:
			inQuota[it.QuotaID]++
		case model.StatusInOpen:
			inOpen++
		case model.StatusInQueue:
			inQueue++
		}
	}
	for q, size := range sizes {
		if size != nil {
			assert.LessOrEqual(t, inQuota[q], *size, "quota %s overfilled", q)
		}
	}
	assert.LessOrEqual(t, inOpen, openQuotaSize)
	assert.Equal(t, len(items), inQuota["q1"]+inQuota["q2"]+inQuota["q3"]+inOpen+inQueue)
}

func TestAssignEmptyInput(t *testing.T) {
	res := Assign(nil, 5)
	assert.Empty(t, res.Assignments)
	assert.Equal(t, 0, res.MovedToQueue)
}
