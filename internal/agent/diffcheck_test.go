package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareFileLists_NoDiscrepancy(t *testing.T) {
	t.Parallel()
	d := CompareFileLists([]string{"a.go", "b.go"}, []string{"b.go", "a.go"})
	assert.False(t, d.HasDiscrepancy())
}

func TestCompareFileLists_BothDirections(t *testing.T) {
	t.Parallel()
	d := CompareFileLists([]string{"a.go", "claimed_only.go"}, []string{"a.go", "actual_only.go"})
	require := assert.New(t)
	require.True(d.HasDiscrepancy())
	require.Equal([]string{"claimed_only.go"}, d.ReportedOnly)
	require.Equal([]string{"actual_only.go"}, d.ActualOnly)
}
