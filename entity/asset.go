package entity

import "math/big"

type Asset struct {
	Chain   string
	Symbol  string   // ETH / MATIC …
	Balance *big.Int // smallest unit
	Address string
}
