package blockchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var erc20ABI = mustParseABI(`[
	{"inputs":[{"internalType":"address","name":"spender","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"approve","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"symbol","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`)

// ERC20Contract encodes calls against the lending desk's payment token
type ERC20Contract struct {
	address common.Address
}

// NewERC20Contract creates an encoder bound to the configured token address
func NewERC20Contract(address string) (*ERC20Contract, error) {
	addr, err := parseContractAddress("erc20", address)
	if err != nil {
		return nil, err
	}
	return &ERC20Contract{address: addr}, nil
}

// Address returns the configured contract address
func (c *ERC20Contract) Address() common.Address {
	return c.address
}

// Call builds a descriptor for an arbitrary function of the token contract
func (c *ERC20Contract) Call(method string, args ...interface{}) CallDescriptor {
	return CallDescriptor{
		To:     c.address,
		ABI:    erc20ABI,
		Method: method,
		Args:   args,
	}
}

// ApproveCall builds the allowance call that must precede any call spending
// the token within the same bundle
func (c *ERC20Contract) ApproveCall(spender common.Address, amount *big.Int) CallDescriptor {
	return c.Call("approve", spender, amount)
}
