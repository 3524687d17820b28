package blockchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChainReader performs stateless read-only queries against the deployed
// contracts. No query has side effects and none retries on its own; retry
// policy belongs to the caller.
type ChainReader struct {
	evm        *EVMClient
	sbt        *SBTContract
	collateral *CollateralNFTContract
	desk       *LendingDeskContract
	erc20      *ERC20Contract
}

// NewChainReader creates a reader over the given client and encoders
func NewChainReader(evm *EVMClient, sbt *SBTContract, collateral *CollateralNFTContract, desk *LendingDeskContract, erc20 *ERC20Contract) *ChainReader {
	return &ChainReader{
		evm:        evm,
		sbt:        sbt,
		collateral: collateral,
		desk:       desk,
		erc20:      erc20,
	}
}

func (r *ChainReader) view(ctx context.Context, call CallDescriptor) ([]interface{}, error) {
	data, err := call.CallData()
	if err != nil {
		return nil, err
	}
	ret, err := r.evm.CallView(ctx, call.To, data)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", call.Method, err)
	}
	values, err := call.ABI.Unpack(call.Method, ret)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", call.Method, err)
	}
	return values, nil
}

// LoanDeskConfig reads the loan bounds of one lending desk, keyed by desk id
// and collateral collection address
func (r *ChainReader) LoanDeskConfig(ctx context.Context, lendingDeskID uint64) (*LoanDeskConfig, error) {
	values, err := r.view(ctx, r.desk.Call("lendingDeskLoanConfigs",
		new(big.Int).SetUint64(lendingDeskID), r.collateral.Address()))
	if err != nil {
		return nil, err
	}
	if len(values) != 8 {
		return nil, fmt.Errorf("lendingDeskLoanConfigs: expected 8 values, got %d", len(values))
	}

	return &LoanDeskConfig{
		NFTCollection:          values[0].(common.Address),
		NFTCollectionIsErc1155: values[1].(bool),
		MinAmount:              values[2].(*big.Int),
		MaxAmount:              values[3].(*big.Int),
		MinInterest:            values[4].(uint32),
		MaxInterest:            values[5].(uint32),
		MinDuration:            values[6].(uint32),
		MaxDuration:            values[7].(uint32),
	}, nil
}

// Loan reads a single on-chain loan record by id
func (r *ChainReader) Loan(ctx context.Context, loanID *big.Int) (*Loan, error) {
	values, err := r.view(ctx, r.desk.Call("loans", loanID))
	if err != nil {
		return nil, err
	}
	if len(values) != 10 {
		return nil, fmt.Errorf("loans: expected 10 values, got %d", len(values))
	}

	return &Loan{
		Amount:                 values[0].(*big.Int),
		AmountPaidBack:         values[1].(*big.Int),
		NFTCollection:          values[2].(common.Address),
		StartTime:              values[3].(uint64),
		NFTID:                  values[4].(uint64),
		LendingDeskID:          values[5].(uint64),
		Duration:               values[6].(uint32),
		Interest:               values[7].(uint32),
		Status:                 values[8].(uint8),
		NFTCollectionIsErc1155: values[9].(bool),
	}, nil
}

// LoanAmountDue reads the current total owed on a loan
func (r *ChainReader) LoanAmountDue(ctx context.Context, loanID *big.Int) (*big.Int, error) {
	values, err := r.view(ctx, r.desk.Call("getLoanAmountDue", loanID))
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

// ERC20Balance reads the payment-token balance of an address
func (r *ChainReader) ERC20Balance(ctx context.Context, owner common.Address) (*big.Int, error) {
	values, err := r.view(ctx, r.erc20.Call("balanceOf", owner))
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

// ERC20Symbol reads the payment-token symbol
func (r *ChainReader) ERC20Symbol(ctx context.Context) (string, error) {
	values, err := r.view(ctx, r.erc20.Call("symbol"))
	if err != nil {
		return "", err
	}
	return values[0].(string), nil
}

// ERC20Decimals reads the payment-token decimals
func (r *ChainReader) ERC20Decimals(ctx context.Context) (uint8, error) {
	values, err := r.view(ctx, r.erc20.Call("decimals"))
	if err != nil {
		return 0, err
	}
	return values[0].(uint8), nil
}

// SBTTokenID reads the identity token id held by an account
func (r *ChainReader) SBTTokenID(ctx context.Context, owner common.Address) (*big.Int, error) {
	values, err := r.view(ctx, r.sbt.Call("tokenByAccount", owner))
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

// CollateralBySBT reads the collateral token paired with an identity token
func (r *ChainReader) CollateralBySBT(ctx context.Context, sbtID *big.Int) (*big.Int, error) {
	values, err := r.view(ctx, r.collateral.Call("collateralBySBT", sbtID))
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}
