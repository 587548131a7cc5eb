package units

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polypredict/dashd/internal/domain"
)

func TestProbability_Endpoints(t *testing.T) {
	assert.Equal(t, 0.0, Probability(0))
	assert.Equal(t, 100.0, Probability(domain.MaxPrice))
}

func TestProbability_Midpoint(t *testing.T) {
	assert.InDelta(t, 50.0, Probability(domain.MaxPrice/2), 0.001)
}

func TestProbability_ClampsAboveMax(t *testing.T) {
	assert.Equal(t, 100.0, Probability(domain.MaxPrice*3))
}

func TestProbability_Monotonic(t *testing.T) {
	prev := Probability(0)
	for p := uint64(0); p <= domain.MaxPrice; p += 50_000 {
		cur := Probability(p)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestFormatProbability(t *testing.T) {
	assert.Equal(t, "50.0", FormatProbability(500_000))
	assert.Equal(t, "0.0", FormatProbability(0))
	assert.Equal(t, "100.0", FormatProbability(domain.MaxPrice))
}

func TestFormatEther(t *testing.T) {
	wei, ok := new(big.Int).SetString("1500000000000000000", 10)
	require.True(t, ok)
	assert.Equal(t, "1.5", FormatEther(wei))

	assert.Equal(t, "0", FormatEther(big.NewInt(0)))
	assert.Equal(t, "0.000000000000000001", FormatEther(big.NewInt(1)))
	assert.Equal(t, "0", FormatEther(nil))
}

func TestParseEther_Whole(t *testing.T) {
	wei, err := ParseEther("2")
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000", wei.String())
}

func TestParseEther_Fraction(t *testing.T) {
	wei, err := ParseEther("0.001")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000", wei.String())
}

func TestParseEther_RoundTrip(t *testing.T) {
	wei, err := ParseEther("1.5")
	require.NoError(t, err)
	assert.Equal(t, "1.5", FormatEther(wei))
}

func TestParseEther_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "-1", "1.2.3", "0.0000000000000000001"} {
		_, err := ParseEther(in)
		assert.Error(t, err, "input %q", in)
	}
}
