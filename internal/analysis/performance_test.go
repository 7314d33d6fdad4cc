package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/cq/internal/models"
)

func perfScan(t *testing.T, src string) []models.PerformanceMetric {
	t.Helper()
	parsed, err := Parse("src.go", src)
	require.NoError(t, err)
	return ScanPerformance(parsed)
}

func TestScanPerformance_NestedLoops(t *testing.T) {
	findings := perfScan(t, `package demo

func pairs(xs []int) int {
	count := 0
	for i := range xs {
		for j := range xs {
			if i != j {
				count++
			}
		}
	}
	return count
}
`)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, "algorithm", f.Category)
	assert.Equal(t, models.MetricStatusWarning, f.Status)
	assert.Equal(t, 2.0, f.Value)
	assert.Equal(t, "nested_loops", f.Unit)
	assert.Contains(t, f.Location, "src.go:")
}

func TestScanPerformance_SequentialLoopsNotFlagged(t *testing.T) {
	findings := perfScan(t, `package demo

func sums(xs, ys []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	for _, y := range ys {
		total += y
	}
	return total
}
`)
	assert.Empty(t, findings)
}

func TestScanPerformance_QueryInLoop(t *testing.T) {
	findings := perfScan(t, `package demo

func load(db queryer, ids []string) {
	for _, id := range ids {
		db.QueryRow("SELECT name FROM users WHERE id = ?", id)
	}
}
`)
	require.Len(t, findings, 1)
	assert.Equal(t, "database", findings[0].Category)
	assert.Equal(t, "query_in_loop", findings[0].Unit)
	assert.Equal(t, models.MetricStatusWarning, findings[0].Status)
}

func TestScanPerformance_QueryOutsideLoopNotFlagged(t *testing.T) {
	findings := perfScan(t, `package demo

func load(db queryer) {
	db.Query("SELECT name FROM users")
}
`)
	assert.Empty(t, findings)
}

func TestScanPerformance_DeferInLoop(t *testing.T) {
	findings := perfScan(t, `package demo

import "os"

func readAll(paths []string) {
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		defer f.Close()
	}
}
`)
	require.Len(t, findings, 1)
	assert.Equal(t, "resources", findings[0].Category)
	assert.Equal(t, models.MetricStatusInfo, findings[0].Status)
}

func TestScanPerformance_LargeLiteral(t *testing.T) {
	src := "package demo\n\nvar table = []int{" + strings.Repeat("1,", 1001) + "}\n"
	findings := perfScan(t, src)

	require.Len(t, findings, 1)
	assert.Equal(t, "memory", findings[0].Category)
	assert.Equal(t, 1001.0, findings[0].Value)
	assert.Equal(t, float64(largeLiteralThreshold), findings[0].Threshold)
}

func TestScanPerformance_SmallLiteralNotFlagged(t *testing.T) {
	findings := perfScan(t, `package demo

var primes = []int{2, 3, 5, 7, 11}
`)
	assert.Empty(t, findings)
}

func TestPerformanceScore(t *testing.T) {
	assert.Equal(t, 100.0, PerformanceScore(nil))

	findings := []models.PerformanceMetric{
		{Status: models.MetricStatusWarning},
		{Status: models.MetricStatusWarning},
		{Status: models.MetricStatusInfo},
	}
	assert.Equal(t, 88.0, PerformanceScore(findings))

	var many []models.PerformanceMetric
	for i := 0; i < 10; i++ {
		many = append(many, models.PerformanceMetric{Status: models.MetricStatusCritical})
	}
	assert.Equal(t, 0.0, PerformanceScore(many))
}
