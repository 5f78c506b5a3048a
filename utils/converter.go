package utils

import (
	"fmt"
	"math/big"
	"strings"
)

const ETHDecimals = 18

// WeiToETH renders wei as a decimal ether string without float rounding.
// Trailing zeros are trimmed: 1500000000000000000 -> "1.5".
func WeiToETH(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return formatWithDecimals(wei, ETHDecimals)
}

// ETHToWei parses a decimal ether string into wei. Digits beyond 18
// decimal places are rejected rather than truncated.
func ETHToWei(eth string) (*big.Int, error) {
	return parseWithDecimals(eth, ETHDecimals)
}

func formatWithDecimals(value *big.Int, decimals int) string {
	neg := value.Sign() < 0
	s := new(big.Int).Abs(value).String()
	for len(s) <= decimals {
		s = "0" + s
	}
	pos := len(s) - decimals
	whole, frac := s[:pos], strings.TrimRight(s[pos:], "0")
	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

func parseWithDecimals(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid decimal format %q", s)
	}
	whole, frac := parts[0], ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("too many decimal places in %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	frac += strings.Repeat("0", decimals-len(frac))
	out, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok || out.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return out, nil
}
