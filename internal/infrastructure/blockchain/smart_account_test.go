package blockchain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const testOwnerKey = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

func testAccountParams() AccountParams {
	return AccountParams{
		Factory:      common.HexToAddress("0x0BA5ED0c6AA8c49038F819E587E2633c4A9F428a"),
		InitCodeHash: crypto.Keccak256Hash([]byte("proxy creation code")),
	}
}

func TestNewSmartAccount_Deterministic(t *testing.T) {
	params := testAccountParams()

	a, err := NewSmartAccount(testOwnerKey, params)
	require.NoError(t, err)
	b, err := NewSmartAccount(testOwnerKey, params)
	require.NoError(t, err)
	require.Equal(t, a.Address, b.Address)

	// 0x prefix is accepted and changes nothing
	c, err := NewSmartAccount("0x"+testOwnerKey, params)
	require.NoError(t, err)
	require.Equal(t, a.Address, c.Address)

	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	d, err := NewSmartAccount(common.Bytes2Hex(crypto.FromECDSA(otherKey)), params)
	require.NoError(t, err)
	require.NotEqual(t, a.Address, d.Address)
}

func TestNewSmartAccount_InvalidKey(t *testing.T) {
	_, err := NewSmartAccount("not-a-key", testAccountParams())
	require.Error(t, err)
}

func TestInitCode_FactoryPrefix(t *testing.T) {
	params := testAccountParams()
	account, err := NewSmartAccount(testOwnerKey, params)
	require.NoError(t, err)

	initCode, err := account.InitCode()
	require.NoError(t, err)
	require.Equal(t, params.Factory.Bytes(), initCode[:20])

	// factory calldata follows: createAccount selector
	selector := accountFactoryABI.Methods["createAccount"].ID
	require.Equal(t, selector, initCode[20:24])
}

func TestExecuteBatchCallData(t *testing.T) {
	account, err := NewSmartAccount(testOwnerKey, testAccountParams())
	require.NoError(t, err)

	erc20, err := NewERC20Contract("0x4444444444444444444444444444444444444444")
	require.NoError(t, err)
	spender := common.HexToAddress("0x5555555555555555555555555555555555555555")

	callData, err := account.ExecuteBatchCallData([]CallDescriptor{
		erc20.ApproveCall(spender, big.NewInt(1000)),
	})
	require.NoError(t, err)
	require.Equal(t, smartAccountABI.Methods["executeBatch"].ID, callData[:4])

	values, err := smartAccountABI.Methods["executeBatch"].Inputs.Unpack(callData[4:])
	require.NoError(t, err)
	require.Len(t, values, 1)
}

func TestSignUserOpHash_RecoversOwner(t *testing.T) {
	account, err := NewSmartAccount(testOwnerKey, testAccountParams())
	require.NoError(t, err)

	hash := crypto.Keccak256Hash([]byte("user operation"))
	wrapped, err := account.SignUserOpHash(hash)
	require.NoError(t, err)

	values, err := signatureWrapperArgs.Unpack(wrapped)
	require.NoError(t, err)
	require.Equal(t, uint8(0), values[0].(uint8))

	sig := values[1].([]byte)
	require.Len(t, sig, 65)
	require.GreaterOrEqual(t, sig[64], byte(27))

	recoverable := make([]byte, 65)
	copy(recoverable, sig)
	recoverable[64] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash(hash.Bytes()), recoverable)
	require.NoError(t, err)
	require.Equal(t, account.Owner(), crypto.PubkeyToAddress(*pub))
}

func TestStubSignature_WellFormed(t *testing.T) {
	account, err := NewSmartAccount(testOwnerKey, testAccountParams())
	require.NoError(t, err)

	stub, err := account.StubSignature()
	require.NoError(t, err)

	values, err := signatureWrapperArgs.Unpack(stub)
	require.NoError(t, err)
	require.Len(t, values[1].([]byte), 65)
}
