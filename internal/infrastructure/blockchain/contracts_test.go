package blockchain

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

var (
	sbtAddr        = "0x1000000000000000000000000000000000000001"
	collateralAddr = "0x1000000000000000000000000000000000000002"
	deskAddr       = "0x1000000000000000000000000000000000000003"
	erc20Addr      = "0x1000000000000000000000000000000000000004"
)

func testContracts(t *testing.T) (*SBTContract, *CollateralNFTContract, *LendingDeskContract, *ERC20Contract) {
	t.Helper()
	sbt, err := NewSBTContract(sbtAddr)
	require.NoError(t, err)
	collateral, err := NewCollateralNFTContract(collateralAddr)
	require.NoError(t, err)
	erc20, err := NewERC20Contract(erc20Addr)
	require.NoError(t, err)
	desk, err := NewLendingDeskContract(deskAddr, collateral, erc20)
	require.NoError(t, err)
	return sbt, collateral, desk, erc20
}

func transferLog(contract common.Address, tokenID int64) *types.Log {
	return &types.Log{
		Address: contract,
		Topics: []common.Hash{
			sbtABI.Events["Transfer"].ID,
			{},
			common.HexToHash("0x000000000000000000000000000000000000000000000000000000000000dead"),
			common.BigToHash(big.NewInt(tokenID)),
		},
	}
}

func TestContractAddressValidation(t *testing.T) {
	_, err := NewSBTContract("")
	require.Error(t, err)
	_, err = NewSBTContract("nonsense")
	require.Error(t, err)
}

func TestSBTMintCall_PayloadRoundTrip(t *testing.T) {
	sbt, _, _, _ := testContracts(t)
	to := common.HexToAddress("0x00000000000000000000000000000000000000AA")
	proof := IdentityProof{
		Proof:             "0xproof",
		MerkleRoot:        "0xroot",
		NullifierHash:     "0xnullifier",
		VerificationLevel: "orb",
	}

	call, err := sbt.MintCall(to, proof, "12345")
	require.NoError(t, err)
	require.Equal(t, sbt.Address(), call.To)

	data, err := call.CallData()
	require.NoError(t, err)
	require.Equal(t, sbtABI.Methods["mint"].ID, data[:4])

	values, err := sbtABI.Methods["mint"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Equal(t, to, values[0].(common.Address))

	var payload struct {
		Proof  IdentityProof `json:"proof"`
		Signal string        `json:"signal"`
	}
	require.NoError(t, json.Unmarshal([]byte(values[1].(string)), &payload))
	require.Equal(t, proof, payload.Proof)
	require.Equal(t, "12345", payload.Signal)
}

func TestTokenIDFromLogs(t *testing.T) {
	sbt, collateral, _, _ := testContracts(t)

	logs := []*types.Log{
		transferLog(collateral.Address(), 7), // wrong contract for the SBT decode
		transferLog(sbt.Address(), 42),
		transferLog(sbt.Address(), 43), // later match is ignored
	}

	require.Equal(t, int64(42), sbt.TokenIDFromLogs(logs).Int64())
	require.Equal(t, int64(7), collateral.TokenIDFromLogs(logs).Int64())
}

func TestTokenIDFromLogs_NoMatchReturnsZero(t *testing.T) {
	sbt, _, _, _ := testContracts(t)

	require.Equal(t, int64(0), sbt.TokenIDFromLogs(nil).Int64())

	// right contract, wrong topic count
	short := &types.Log{
		Address: sbt.Address(),
		Topics:  []common.Hash{sbtABI.Events["Transfer"].ID},
	}
	require.Equal(t, int64(0), sbt.TokenIDFromLogs([]*types.Log{short}).Int64())
}

func TestInitializeNewLoanCalls(t *testing.T) {
	_, collateral, desk, _ := testContracts(t)

	calls := desk.InitializeNewLoanCalls(InitializeNewLoanParams{
		LendingDeskID:      3,
		NFTID:              11,
		Duration:           336,
		Amount:             big.NewInt(10_000_000),
		MaxInterestAllowed: 1158,
	})
	require.Len(t, calls, 2)

	// approval precedes the desk call and targets the collateral contract
	require.Equal(t, collateral.Address(), calls[0].To)
	approveData, err := calls[0].CallData()
	require.NoError(t, err)
	approveValues, err := collateralNFTABI.Methods["approve"].Inputs.Unpack(approveData[4:])
	require.NoError(t, err)
	require.Equal(t, desk.Address(), approveValues[0].(common.Address))
	require.Equal(t, int64(11), approveValues[1].(*big.Int).Int64())

	require.Equal(t, desk.Address(), calls[1].To)
	initData, err := calls[1].CallData()
	require.NoError(t, err)
	initValues, err := lendingDeskABI.Methods["initializeNewLoan"].Inputs.Unpack(initData[4:])
	require.NoError(t, err)
	require.Equal(t, uint64(3), initValues[0].(uint64))
	require.Equal(t, collateral.Address(), initValues[1].(common.Address))
	require.Equal(t, uint64(11), initValues[2].(uint64))
	require.Equal(t, uint32(336), initValues[3].(uint32))
	require.Equal(t, int64(10_000_000), initValues[4].(*big.Int).Int64())
	require.Equal(t, uint32(1158), initValues[5].(uint32))
}

func TestMakeLoanPaymentCalls_Partial(t *testing.T) {
	_, _, desk, erc20 := testContracts(t)

	calls := desk.MakeLoanPaymentCalls(big.NewInt(17), big.NewInt(500), nil, false)
	require.Len(t, calls, 2)

	require.Equal(t, erc20.Address(), calls[0].To)
	approveData, err := calls[0].CallData()
	require.NoError(t, err)
	approveValues, err := erc20ABI.Methods["approve"].Inputs.Unpack(approveData[4:])
	require.NoError(t, err)
	require.Equal(t, int64(500), approveValues[1].(*big.Int).Int64())

	payData, err := calls[1].CallData()
	require.NoError(t, err)
	payValues, err := lendingDeskABI.Methods["makeLoanPayment"].Inputs.Unpack(payData[4:])
	require.NoError(t, err)
	require.Equal(t, int64(17), payValues[0].(*big.Int).Int64())
	require.Equal(t, int64(500), payValues[1].(*big.Int).Int64())
	require.False(t, payValues[2].(bool))
}

func TestMakeLoanPaymentCalls_Resolve(t *testing.T) {
	_, _, desk, _ := testContracts(t)

	// full payoff: the approval covers the on-chain amount due, not the
	// caller's amount, and the paid amount is zeroed
	calls := desk.MakeLoanPaymentCalls(big.NewInt(17), big.NewInt(500), big.NewInt(10_050_000), true)

	approveData, err := calls[0].CallData()
	require.NoError(t, err)
	approveValues, err := erc20ABI.Methods["approve"].Inputs.Unpack(approveData[4:])
	require.NoError(t, err)
	require.Equal(t, int64(10_050_000), approveValues[1].(*big.Int).Int64())

	payData, err := calls[1].CallData()
	require.NoError(t, err)
	payValues, err := lendingDeskABI.Methods["makeLoanPayment"].Inputs.Unpack(payData[4:])
	require.NoError(t, err)
	require.Equal(t, int64(0), payValues[1].(*big.Int).Int64())
	require.True(t, payValues[2].(bool))
}

func TestInitializedLoanFromLogs_RoundTrip(t *testing.T) {
	_, collateral, desk, _ := testContracts(t)

	borrower := common.HexToAddress("0x00000000000000000000000000000000000000BB")
	data, err := lendingDeskABI.Events["NewLoanInitialized"].Inputs.NonIndexed().Pack(
		collateral.Address(),
		big.NewInt(11),
		big.NewInt(10_000_000),
		big.NewInt(336),
		big.NewInt(1158),
		big.NewInt(20_000),
	)
	require.NoError(t, err)

	logs := []*types.Log{
		transferLog(collateral.Address(), 11), // unrelated log is skipped
		{
			Address: desk.Address(),
			Topics: []common.Hash{
				lendingDeskABI.Events["NewLoanInitialized"].ID,
				common.BigToHash(big.NewInt(3)),
				common.BigToHash(big.NewInt(17)),
				common.BytesToHash(borrower.Bytes()),
			},
			Data: data,
		},
	}

	loan, err := desk.InitializedLoanFromLogs(logs)
	require.NoError(t, err)
	require.NotNil(t, loan)
	require.Equal(t, int64(3), loan.LendingDeskID.Int64())
	require.Equal(t, int64(17), loan.LoanID.Int64())
	require.Equal(t, borrower, loan.Borrower)
	require.Equal(t, collateral.Address(), loan.NFTCollection)
	require.Equal(t, int64(11), loan.NFTID.Int64())
	require.Equal(t, int64(10_000_000), loan.Amount.Int64())
	require.Equal(t, int64(336), loan.Duration.Int64())
	require.Equal(t, int64(1158), loan.Interest.Int64())
	require.Equal(t, int64(20_000), loan.PlatformFee.Int64())
}

func TestInitializedLoanFromLogs_NoMatch(t *testing.T) {
	_, collateral, desk, _ := testContracts(t)

	loan, err := desk.InitializedLoanFromLogs([]*types.Log{transferLog(collateral.Address(), 1)})
	require.NoError(t, err)
	require.Nil(t, loan)
}
