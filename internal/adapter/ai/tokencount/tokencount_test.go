package tokencount

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounter_Count_NonEmpty(t *testing.T) {
	t.Parallel()

	c := NewCounter()
	n := c.Count("gpt-4o-mini", "func main() { fmt.Println(42) }")
	assert.Greater(t, n, 0)
}

func TestCounter_Count_EmptyText(t *testing.T) {
	t.Parallel()

	c := NewCounter()
	assert.Equal(t, 0, c.Count("gpt-4o-mini", ""))
}

func TestCounter_Count_StableAcrossCalls(t *testing.T) {
	t.Parallel()

	c := NewCounter()
	a := c.Count("gpt-4o-mini", "the same text")
	b := c.Count("gpt-4o-mini", "the same text")
	assert.Equal(t, a, b)
}

func TestNormalizeModel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "gpt-4o-mini", normalizeModel("openai/gpt-4o-mini"))
	assert.Equal(t, "gpt-4o-mini", normalizeModel("gpt-4o-mini"))
}
