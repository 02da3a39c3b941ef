package buildinfo

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintBuildData(t *testing.T) {
	origV, origC, origD := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = origV, origC, origD })

	Version, Commit, Date = "v0.3.1", "abc123", "2025-03-01"
	var buf bytes.Buffer
	PrintBuildData(&buf)

	assert.Equal(t, "Build version: v0.3.1\nBuild date: 2025-03-01\nBuild commit: abc123\n", buf.String())
}

func TestPrintBuildData_Defaults(t *testing.T) {
	var buf bytes.Buffer
	PrintBuildData(&buf)
	assert.Contains(t, buf.String(), "Build version: N/A")
}
