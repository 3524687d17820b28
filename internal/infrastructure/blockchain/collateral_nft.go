package blockchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var collateralNFTABI = mustParseABI(`[
	{"inputs":[{"internalType":"address","name":"to","type":"address"}],"name":"mint","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"tokenId","type":"uint256"}],"name":"approve","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"sbtId","type":"uint256"}],"name":"collateralBySBT","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"from","type":"address"},{"indexed":true,"internalType":"address","name":"to","type":"address"},{"indexed":true,"internalType":"uint256","name":"tokenId","type":"uint256"}],"name":"Transfer","type":"event"}
]`)

// CollateralNFTContract encodes calls against the collateral NFT contract
// and decodes its emitted events.
type CollateralNFTContract struct {
	address common.Address
}

// NewCollateralNFTContract creates an encoder bound to the configured
// collateral collection address
func NewCollateralNFTContract(address string) (*CollateralNFTContract, error) {
	addr, err := parseContractAddress("collateral nft", address)
	if err != nil {
		return nil, err
	}
	return &CollateralNFTContract{address: addr}, nil
}

// Address returns the configured contract address
func (c *CollateralNFTContract) Address() common.Address {
	return c.address
}

// Call builds a descriptor for an arbitrary function of the NFT contract
func (c *CollateralNFTContract) Call(method string, args ...interface{}) CallDescriptor {
	return CallDescriptor{
		To:     c.address,
		ABI:    collateralNFTABI,
		Method: method,
		Args:   args,
	}
}

// MintCall builds the collateral mint call
func (c *CollateralNFTContract) MintCall(to common.Address) CallDescriptor {
	return c.Call("mint", to)
}

// ApproveCall builds the custody approval that must precede the loan
// initialization consuming the collateral within the same bundle
func (c *CollateralNFTContract) ApproveCall(to common.Address, tokenID *big.Int) CallDescriptor {
	return c.Call("approve", to, tokenID)
}

// TokenIDFromLogs extracts the minted token id from a receipt's logs.
// First matching Transfer only; zero sentinel when absent.
func (c *CollateralNFTContract) TokenIDFromLogs(logs []*types.Log) *big.Int {
	return transferTokenID(c.address, logs)
}
