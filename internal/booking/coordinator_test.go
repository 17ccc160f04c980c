package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoordinator_LatestMatchingResultApplies(t *testing.T) {
	var c Coordinator
	key := FetchKey{Department: "cardiology"}
	tok := c.Issue(FetchRequest{Kind: FetchDoctors, Key: key})

	assert.True(t, c.Pending(FetchDoctors))
	assert.True(t, c.Accept(tok, key))
	assert.False(t, c.Pending(FetchDoctors))
	assert.False(t, c.Accept(tok, key), "a generation applies at most once")
}

func TestCoordinator_ReissueSupersedes(t *testing.T) {
	var c Coordinator
	cardio := FetchKey{Department: "cardiology"}
	neuro := FetchKey{Department: "neurology"}

	first := c.Issue(FetchRequest{Kind: FetchDoctors, Key: cardio})
	second := c.Issue(FetchRequest{Kind: FetchDoctors, Key: neuro})

	// Out-of-order completion: the older query finishes last.
	assert.True(t, c.Accept(second, neuro))
	assert.False(t, c.Accept(first, neuro))
	assert.False(t, c.Pending(FetchDoctors))
}

func TestCoordinator_OlderResultDoesNotClearLoading(t *testing.T) {
	var c Coordinator
	first := c.Issue(FetchRequest{Kind: FetchSlots, Key: FetchKey{DoctorID: "d1"}})
	c.Issue(FetchRequest{Kind: FetchSlots, Key: FetchKey{DoctorID: "d2"}})

	assert.False(t, c.Accept(first, FetchKey{DoctorID: "d2"}))
	assert.True(t, c.Pending(FetchSlots))
}

func TestCoordinator_SupersedeWithoutReissue(t *testing.T) {
	var c Coordinator
	key := FetchKey{DoctorID: "d1", Date: testDay}
	tok := c.Issue(FetchRequest{Kind: FetchSlots, Key: key})

	// The doctor was cleared; nothing replaces the query.
	c.Supersede(FetchSlots)
	assert.False(t, c.Pending(FetchSlots))
	assert.False(t, c.Accept(tok, key))
}

func TestCoordinator_KeyMismatchRejected(t *testing.T) {
	var c Coordinator
	tok := c.Issue(FetchRequest{Kind: FetchDoctors, Key: FetchKey{Department: "cardiology"}})
	assert.False(t, c.Accept(tok, FetchKey{Department: "neurology"}))
}

func TestCoordinator_KindsAreIndependent(t *testing.T) {
	var c Coordinator
	doctors := c.Issue(FetchRequest{Kind: FetchDoctors, Key: FetchKey{Department: "cardiology"}})
	c.Issue(FetchRequest{Kind: FetchSlots, Key: FetchKey{DoctorID: "d1", Date: testDay}})

	assert.True(t, c.Accept(doctors, FetchKey{Department: "cardiology"}))
	assert.True(t, c.Pending(FetchSlots))
}
