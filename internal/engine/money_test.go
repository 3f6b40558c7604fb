package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	zero, err := parseAmount("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	d, err := parseAmount("160.00")
	require.NoError(t, err)
	assert.Equal(t, "160.00", formatAmount(d))

	_, err = parseAmount("12.3.4")
	assert.ErrorIs(t, err, ErrTotalsInvariant)
}
