// Package units provides pure conversion helpers between base-unit integers
// (wei), display ether amounts, and the exchange's fixed-point price scale.
// All functions are side-effect free.
package units

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"

	"github.com/polypredict/dashd/internal/domain"
)

// Probability maps a fixed-point price onto its implied probability in
// percent: clamp(price / MaxPrice * 100, 0, 100). It is non-decreasing in
// price, with Probability(0) == 0 and Probability(MaxPrice) == 100.
func Probability(price uint64) float64 {
	p := float64(price) * 100 / float64(domain.MaxPrice)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// FormatProbability renders a price's implied probability with one decimal,
// e.g. "50.0".
func FormatProbability(price uint64) string {
	return fmt.Sprintf("%.1f", Probability(price))
}

// FormatEther renders a wei amount as a decimal ether string with trailing
// zeros trimmed, e.g. 1500000000000000000 -> "1.5".
func FormatEther(wei *big.Int) string {
	return formatUnits(wei, big.NewInt(params.Ether))
}

// ParseEther parses a decimal ether string ("0.001", "2", "1.5") into wei.
// It rejects empty input, malformed numbers, negative amounts, and more than
// 18 fractional digits.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("units: empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("units: negative amount %q", s)
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 18 {
		return nil, fmt.Errorf("units: amount %q has more than 18 decimal places", s)
	}

	wholeInt, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return nil, fmt.Errorf("units: invalid amount %q", s)
	}

	wei := new(big.Int).Mul(wholeInt, big.NewInt(params.Ether))
	if frac != "" {
		fracInt, ok := new(big.Int).SetString(frac, 10)
		if !ok {
			return nil, fmt.Errorf("units: invalid amount %q", s)
		}
		// Scale the fraction up to 18 digits.
		for i := len(frac); i < 18; i++ {
			fracInt.Mul(fracInt, big.NewInt(10))
		}
		wei.Add(wei, fracInt)
	}
	return wei, nil
}

// formatUnits divides wei by the given unit and renders the quotient as a
// decimal string, trimming trailing fractional zeros. A nil amount renders as
// "0".
func formatUnits(wei *big.Int, unit *big.Int) string {
	if wei == nil {
		return "0"
	}
	neg := wei.Sign() < 0
	abs := new(big.Int).Abs(wei)

	quo, rem := new(big.Int).QuoRem(abs, unit, new(big.Int))
	out := quo.String()
	if rem.Sign() != 0 {
		digits := len(unit.String()) - 1 // unit is a power of ten
		frac := fmt.Sprintf("%0*s", digits, rem.String())
		frac = strings.TrimRight(frac, "0")
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
