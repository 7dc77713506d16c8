package starknet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

var mask250 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 250), big.NewInt(1))

// Selector returns starknet_keccak(name): Keccak-256 of the name masked to 250 bits, as minimal hex
func Selector(name string) string {
	h := new(big.Int).SetBytes(crypto.Keccak256([]byte(name)))
	h.And(h, mask250)
	return "0x" + h.Text(16)
}

// Event and entry point selectors, computed once
var (
	SelectorOrderCreated   = Selector("OrderCreated")
	SelectorOrderFulfilled = Selector("OrderFulfilled")
	SelectorOrderCancelled = Selector("OrderCancelled")
	SelectorTransfer       = Selector("Transfer")

	selectorGetOrderDetails = Selector("get_order_details")
	selectorNonces          = Selector("nonces")
	selectorTokenURI        = Selector("token_uri")
	selectorTokenURICamel   = Selector("tokenURI")
)
