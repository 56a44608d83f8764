package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidPhaseInput(t *testing.T) {
	t.Parallel()
	assert.True(t, ValidPhaseInput("p00"))
	assert.True(t, ValidPhaseInput("P03"))
	assert.False(t, ValidPhaseInput("p3"))
	assert.False(t, ValidPhaseInput("phase03"))
}

func TestCanonicalPhase(t *testing.T) {
	t.Parallel()
	got, err := CanonicalPhase("P03")
	require.NoError(t, err)
	assert.Equal(t, "p03", got)

	_, err = CanonicalPhase("bogus")
	assert.Error(t, err)
}

func TestParsePhaseDir(t *testing.T) {
	t.Parallel()
	num, slug, ok := ParsePhaseDir("P03-auth-hardening")
	require.True(t, ok)
	assert.Equal(t, "03", num)
	assert.Equal(t, "auth-hardening", slug)

	_, _, ok = ParsePhaseDir("not-a-phase-dir")
	assert.False(t, ok)
}

func TestPhaseMetadata_Validate(t *testing.T) {
	t.Parallel()
	m := &PhaseMetadata{PhaseNumber: 3, PhaseName: "Auth hardening"}
	require.NoError(t, m.Validate())

	bad := &PhaseMetadata{PhaseNumber: -1, PhaseName: "x"}
	assert.Error(t, bad.Validate())

	noName := &PhaseMetadata{PhaseNumber: 0}
	assert.Error(t, noName.Validate())
}

func TestPhaseMetadata_EntryByID(t *testing.T) {
	t.Parallel()
	m := &PhaseMetadata{Tasks: []PhaseTaskEntry{{ID: "T03-001"}, {ID: "T03-002"}}}
	e, ok := m.EntryByID("T03-002")
	require.True(t, ok)
	assert.Equal(t, "T03-002", e.ID)

	_, ok = m.EntryByID("T03-999")
	assert.False(t, ok)
}

func TestFormatAndParsePhaseNumber(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "03", FormatPhaseNumber(3))
	n, err := ParsePhaseNumber("03")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = ParsePhaseNumber("bogus")
	assert.Error(t, err)
}
