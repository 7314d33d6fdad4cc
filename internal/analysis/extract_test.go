package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const extractSrc = `package demo

import (
	"fmt"
	"strings"
)

// Greet builds a greeting.
func Greet(name string) string {
	if name == "" {
		return "hello"
	}
	return fmt.Sprintf("hello %s", strings.TrimSpace(name))
}

type Counter struct{ n int }

func (c *Counter) Add(vals []int) {
	for _, v := range vals {
		if v > 0 && v < 100 {
			c.n += v
		}
	}
}
`

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("bad.go", "package demo\nfunc {")
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "bad.go", perr.File)
	assert.Contains(t, perr.Error(), "bad.go")
}

func TestExtract_Counts(t *testing.T) {
	src, err := Parse("demo.go", extractSrc)
	require.NoError(t, err)

	m := Extract(src)

	assert.Equal(t, 24, m.LinesOfCode)
	assert.Equal(t, 1, m.CommentLines)
	assert.Equal(t, []string{"fmt", "strings"}, m.Dependencies)
}

func TestExtract_Complexity(t *testing.T) {
	src, err := Parse("demo.go", extractSrc)
	require.NoError(t, err)

	m := Extract(src)

	// Greet: base 1 + one if.
	assert.Equal(t, 2, m.Complexity["Greet"])
	// Add: base 1 + range + if + one short-circuit operator.
	assert.Equal(t, 4, m.Complexity["Counter.Add"])
	assert.Equal(t, 6, m.TotalComplexity())
}

func TestExtract_NoFunctions(t *testing.T) {
	src, err := Parse("decl.go", "package demo\n\nvar answer = 42\n")
	require.NoError(t, err)

	m := Extract(src)
	assert.Empty(t, m.Complexity)
	assert.Equal(t, 0, m.TotalComplexity())
	assert.Empty(t, m.Dependencies)
}

func TestExtract_DuplicateImports(t *testing.T) {
	src, err := Parse("imp.go", `package demo

import (
	"fmt"
	f "fmt"
)

var _ = fmt.Sprint
var _ = f.Sprint
`)
	require.NoError(t, err)

	m := Extract(src)
	assert.Equal(t, []string{"fmt"}, m.Dependencies)
}
