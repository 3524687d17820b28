package blockchain

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var sbtABI = mustParseABI(`[
	{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"string","name":"data","type":"string"}],"name":"mint","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"tokenByAccount","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"from","type":"address"},{"indexed":true,"internalType":"address","name":"to","type":"address"},{"indexed":true,"internalType":"uint256","name":"tokenId","type":"uint256"}],"name":"Transfer","type":"event"}
]`)

// IdentityProof is the verified World ID proof carried on-chain inside the
// SBT mint calldata, serialized as JSON together with the signal.
type IdentityProof struct {
	Proof             string `json:"proof"`
	MerkleRoot        string `json:"merkle_root"`
	NullifierHash     string `json:"nullifier_hash"`
	VerificationLevel string `json:"verification_level"`
}

// SBTContract encodes calls against the identity soul-bound token contract
// and decodes its emitted events.
type SBTContract struct {
	address common.Address
}

// NewSBTContract creates an encoder bound to the configured SBT address
func NewSBTContract(address string) (*SBTContract, error) {
	addr, err := parseContractAddress("sbt", address)
	if err != nil {
		return nil, err
	}
	return &SBTContract{address: addr}, nil
}

// Address returns the configured contract address
func (c *SBTContract) Address() common.Address {
	return c.address
}

// Call builds a descriptor for an arbitrary function of the SBT contract
func (c *SBTContract) Call(method string, args ...interface{}) CallDescriptor {
	return CallDescriptor{
		To:     c.address,
		ABI:    sbtABI,
		Method: method,
		Args:   args,
	}
}

// MintCall builds the identity mint call. The proof and signal travel as an
// opaque JSON string; the contract stores it alongside the minted token.
func (c *SBTContract) MintCall(to common.Address, proof IdentityProof, signal string) (CallDescriptor, error) {
	payload, err := json.Marshal(struct {
		Proof  IdentityProof `json:"proof"`
		Signal string        `json:"signal"`
	}{Proof: proof, Signal: signal})
	if err != nil {
		return CallDescriptor{}, fmt.Errorf("marshal proof payload: %w", err)
	}
	return c.Call("mint", to, string(payload)), nil
}

// TokenIDFromLogs extracts the minted token id from a receipt's logs.
//
// Only the first log emitted by this contract with a Transfer topic is
// honored; a bundle mints at most one identity token. When no log matches
// the zero token id is returned as a sentinel, never an error.
func (c *SBTContract) TokenIDFromLogs(logs []*types.Log) *big.Int {
	return transferTokenID(c.address, logs)
}

// transferTokenID implements the shared Transfer(tokenId indexed) extraction
// used by both token contracts.
func transferTokenID(contract common.Address, logs []*types.Log) *big.Int {
	eventID := sbtABI.Events["Transfer"].ID
	for _, l := range logs {
		if l.Address != contract || len(l.Topics) != 4 || l.Topics[0] != eventID {
			continue
		}
		return new(big.Int).SetBytes(l.Topics[3].Bytes())
	}
	return big.NewInt(0)
}
