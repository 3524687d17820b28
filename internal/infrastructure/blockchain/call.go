package blockchain

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// CallDescriptor describes a single contract call inside a sponsored user
// operation bundle. It is purely descriptive: the calldata is only produced
// when the bundle is assembled, never executed on its own.
type CallDescriptor struct {
	To     common.Address
	ABI    *abi.ABI
	Method string
	Args   []interface{}
}

// CallData encodes the described call into ABI calldata
func (c CallDescriptor) CallData() ([]byte, error) {
	data, err := c.ABI.Pack(c.Method, c.Args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", c.Method, err)
	}
	return data, nil
}

func mustParseABI(raw string) *abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader([]byte(raw)))
	if err != nil {
		panic(fmt.Sprintf("invalid static ABI: %v", err))
	}
	return &parsed
}

func parseContractAddress(kind, address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("invalid %s contract address %q", kind, address)
	}
	return common.HexToAddress(address), nil
}
