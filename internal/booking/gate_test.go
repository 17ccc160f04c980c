package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate(t *testing.T) {
	var g Gate
	assert.Equal(t, GateIdle, g.State())

	require.NoError(t, g.Begin())
	assert.Equal(t, GateSubmitting, g.State())
	assert.ErrorIs(t, g.Begin(), ErrSubmissionInProgress)

	g.Fail()
	assert.Equal(t, GateIdle, g.State())

	require.NoError(t, g.Begin())
	g.Succeed()
	assert.Equal(t, GateSucceeded, g.State())
	assert.ErrorIs(t, g.Begin(), ErrSessionClosed)

	g.Fail()
	assert.Equal(t, GateSucceeded, g.State(), "success is terminal")
}
