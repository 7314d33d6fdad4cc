package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaintainabilityIndex(t *testing.T) {
	// 100 - (10/100)*25 + (20/100)*15 - ln(100)*10
	want := 100 - 2.5 + 3 - math.Log(100)*10
	got := MaintainabilityIndex(100, 20, 10)
	assert.InDelta(t, want, got, 1e-9)
}

func TestMaintainabilityIndex_ZeroLines(t *testing.T) {
	assert.Equal(t, 0.0, MaintainabilityIndex(0, 0, 0))
}

func TestMaintainabilityIndex_ClampsLow(t *testing.T) {
	// Heavy complexity on a big file drives the raw index negative.
	got := MaintainabilityIndex(10000, 0, 100000)
	assert.Equal(t, 0.0, got)
}

func TestMaintainabilityIndex_ClampsHigh(t *testing.T) {
	// A single fully-commented line has a raw index above 100.
	got := MaintainabilityIndex(1, 1, 0)
	assert.Equal(t, 100.0, got)
}
