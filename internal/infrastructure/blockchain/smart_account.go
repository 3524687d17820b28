package blockchain

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var accountFactoryABI = mustParseABI(`[
	{"inputs":[{"internalType":"bytes[]","name":"owners","type":"bytes[]"},{"internalType":"uint256","name":"nonce","type":"uint256"}],"name":"createAccount","outputs":[{"internalType":"address","name":"account","type":"address"}],"stateMutability":"payable","type":"function"}
]`)

var smartAccountABI = mustParseABI(`[
	{"inputs":[{"components":[{"internalType":"address","name":"target","type":"address"},{"internalType":"uint256","name":"value","type":"uint256"},{"internalType":"bytes","name":"data","type":"bytes"}],"internalType":"struct CoinbaseSmartWallet.Call[]","name":"calls","type":"tuple[]"}],"name":"executeBatch","outputs":[],"stateMutability":"payable","type":"function"}
]`)

var (
	bytesArrayType, _ = abi.NewType("bytes[]", "", nil)
	bytesType, _      = abi.NewType("bytes", "", nil)
	uint8Type, _      = abi.NewType("uint8", "", nil)
	uint256Type, _    = abi.NewType("uint256", "", nil)

	ownersSaltArgs       = abi.Arguments{{Type: bytesArrayType}, {Type: uint256Type}}
	signatureWrapperArgs = abi.Arguments{{Type: uint8Type}, {Type: bytesType}}
)

// AccountParams pin down the deterministic account derivation: the factory
// that deploys account proxies and the hash of the proxy creation code.
type AccountParams struct {
	Factory      common.Address
	InitCodeHash common.Hash
}

// SmartAccount is a contract wallet controlled by a single signing key. The
// address is derived deterministically from the key, so the same key always
// yields the same account. Not persisted here; callers own the record.
type SmartAccount struct {
	Address  common.Address
	params   AccountParams
	ownerKey *ecdsa.PrivateKey
}

// NewSmartAccount derives the smart account controlled by the given private
// key hex
func NewSmartAccount(privateKeyHex string, params AccountParams) (*SmartAccount, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid owner private key: %w", err)
	}

	owner := crypto.PubkeyToAddress(key.PublicKey)
	salt, err := ownersSalt(owner)
	if err != nil {
		return nil, err
	}

	return &SmartAccount{
		Address:  crypto.CreateAddress2(params.Factory, salt, params.InitCodeHash.Bytes()),
		params:   params,
		ownerKey: key,
	}, nil
}

// ownersSalt mirrors the factory's CREATE2 salt: the ABI encoding of the
// owner set and a zero deployment nonce.
func ownersSalt(owner common.Address) ([32]byte, error) {
	encoded, err := ownersSaltArgs.Pack(encodeOwners(owner), big.NewInt(0))
	if err != nil {
		return [32]byte{}, fmt.Errorf("encode owners salt: %w", err)
	}
	var salt [32]byte
	copy(salt[:], crypto.Keccak256(encoded))
	return salt, nil
}

func encodeOwners(owner common.Address) [][]byte {
	return [][]byte{common.LeftPadBytes(owner.Bytes(), 32)}
}

// Owner returns the EOA controlling this account
func (a *SmartAccount) Owner() common.Address {
	return crypto.PubkeyToAddress(a.ownerKey.PublicKey)
}

// InitCode returns the factory calldata that deploys this account, prefixed
// with the factory address, for inclusion in a user operation when the
// account has no code yet
func (a *SmartAccount) InitCode() ([]byte, error) {
	callData, err := accountFactoryABI.Pack("createAccount", encodeOwners(a.Owner()), big.NewInt(0))
	if err != nil {
		return nil, fmt.Errorf("pack createAccount: %w", err)
	}
	return append(a.params.Factory.Bytes(), callData...), nil
}

// ExecuteBatchCallData packs an ordered bundle of calls into the account's
// atomic executeBatch entry point. Ordering is preserved: approvals must
// come before the calls consuming them.
func (a *SmartAccount) ExecuteBatchCallData(calls []CallDescriptor) ([]byte, error) {
	type accountCall struct {
		Target common.Address
		Value  *big.Int
		Data   []byte
	}

	batch := make([]accountCall, 0, len(calls))
	for _, call := range calls {
		data, err := call.CallData()
		if err != nil {
			return nil, err
		}
		batch = append(batch, accountCall{
			Target: call.To,
			Value:  big.NewInt(0),
			Data:   data,
		})
	}

	return smartAccountABI.Pack("executeBatch", batch)
}

// SignUserOpHash produces the account's signature over a user operation
// hash: an EIP-191 personal signature by the owner key, wrapped with the
// owner index the account's validation expects.
func (a *SmartAccount) SignUserOpHash(hash common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(hash.Bytes()), a.ownerKey)
	if err != nil {
		return nil, fmt.Errorf("sign user operation: %w", err)
	}
	sig[64] += 27

	return signatureWrapperArgs.Pack(uint8(0), sig)
}

// StubSignature returns a well-formed placeholder signature used during gas
// estimation, before the real signature exists
func (a *SmartAccount) StubSignature() ([]byte, error) {
	stub := make([]byte, 65)
	for i := range stub {
		stub[i] = 0x01
	}
	return signatureWrapperArgs.Pack(uint8(0), stub)
}
