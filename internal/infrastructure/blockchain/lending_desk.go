package blockchain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var lendingDeskABI = mustParseABI(`[
	{"inputs":[{"internalType":"uint64","name":"lendingDeskId","type":"uint64"},{"internalType":"address","name":"nftCollection","type":"address"},{"internalType":"uint64","name":"nftId","type":"uint64"},{"internalType":"uint32","name":"duration","type":"uint32"},{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"uint32","name":"maxInterestAllowed","type":"uint32"}],"name":"initializeNewLoan","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"loanId","type":"uint256"},{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"bool","name":"resolve","type":"bool"}],"name":"makeLoanPayment","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"loanId","type":"uint256"}],"name":"loans","outputs":[{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"uint256","name":"amountPaidBack","type":"uint256"},{"internalType":"address","name":"nftCollection","type":"address"},{"internalType":"uint64","name":"startTime","type":"uint64"},{"internalType":"uint64","name":"nftId","type":"uint64"},{"internalType":"uint64","name":"lendingDeskId","type":"uint64"},{"internalType":"uint32","name":"duration","type":"uint32"},{"internalType":"uint32","name":"interest","type":"uint32"},{"internalType":"uint8","name":"status","type":"uint8"},{"internalType":"bool","name":"nftCollectionIsErc1155","type":"bool"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"lendingDeskId","type":"uint256"},{"internalType":"address","name":"nftCollection","type":"address"}],"name":"lendingDeskLoanConfigs","outputs":[{"internalType":"address","name":"nftCollection","type":"address"},{"internalType":"bool","name":"nftCollectionIsErc1155","type":"bool"},{"internalType":"uint256","name":"minAmount","type":"uint256"},{"internalType":"uint256","name":"maxAmount","type":"uint256"},{"internalType":"uint32","name":"minInterest","type":"uint32"},{"internalType":"uint32","name":"maxInterest","type":"uint32"},{"internalType":"uint32","name":"minDuration","type":"uint32"},{"internalType":"uint32","name":"maxDuration","type":"uint32"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"loanId","type":"uint256"}],"name":"getLoanAmountDue","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"internalType":"uint256","name":"lendingDeskId","type":"uint256"},{"indexed":true,"internalType":"uint256","name":"loanId","type":"uint256"},{"indexed":true,"internalType":"address","name":"borrower","type":"address"},{"indexed":false,"internalType":"address","name":"nftCollection","type":"address"},{"indexed":false,"internalType":"uint256","name":"nftId","type":"uint256"},{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"},{"indexed":false,"internalType":"uint256","name":"duration","type":"uint256"},{"indexed":false,"internalType":"uint256","name":"interest","type":"uint256"},{"indexed":false,"internalType":"uint256","name":"platformFee","type":"uint256"}],"name":"NewLoanInitialized","type":"event"}
]`)

// Loan status values as stored on-chain
const (
	LoanStatusActive    uint8 = 0
	LoanStatusResolved  uint8 = 1
	LoanStatusDefaulted uint8 = 2
)

// LoanDeskConfig holds the bounds for loans drawn against one lending desk.
// Read from chain, never cached, never mutated here.
type LoanDeskConfig struct {
	NFTCollection          common.Address
	NFTCollectionIsErc1155 bool
	MinAmount              *big.Int
	MaxAmount              *big.Int
	MinInterest            uint32
	MaxInterest            uint32
	MinDuration            uint32
	MaxDuration            uint32
}

// Loan is the on-chain loan record, read-only to this service
type Loan struct {
	Amount                 *big.Int
	AmountPaidBack         *big.Int
	NFTCollection          common.Address
	StartTime              uint64
	NFTID                  uint64
	LendingDeskID          uint64
	Duration               uint32
	Interest               uint32
	Status                 uint8
	NFTCollectionIsErc1155 bool
}

// InitializedLoan carries the fields of the NewLoanInitialized event. The
// loan id is contract-assigned and only ever reaches callers through this
// event, never as a return value.
type InitializedLoan struct {
	LendingDeskID *big.Int
	LoanID        *big.Int
	Borrower      common.Address
	NFTCollection common.Address
	NFTID         *big.Int
	Amount        *big.Int
	Duration      *big.Int
	Interest      *big.Int
	PlatformFee   *big.Int
}

// InitializeNewLoanParams are the caller-supplied loan terms
type InitializeNewLoanParams struct {
	LendingDeskID      uint64
	NFTID              uint64
	Duration           uint32
	Amount             *big.Int
	MaxInterestAllowed uint32
}

// LendingDeskContract encodes calls against the lending desk contract and
// decodes its emitted events.
type LendingDeskContract struct {
	address    common.Address
	collateral *CollateralNFTContract
	erc20      *ERC20Contract
}

// NewLendingDeskContract creates an encoder bound to the configured desk
// address and its cooperating collateral and payment-token encoders
func NewLendingDeskContract(address string, collateral *CollateralNFTContract, erc20 *ERC20Contract) (*LendingDeskContract, error) {
	addr, err := parseContractAddress("lending desk", address)
	if err != nil {
		return nil, err
	}
	return &LendingDeskContract{
		address:    addr,
		collateral: collateral,
		erc20:      erc20,
	}, nil
}

// Address returns the configured contract address
func (c *LendingDeskContract) Address() common.Address {
	return c.address
}

// Call builds a descriptor for an arbitrary function of the desk contract
func (c *LendingDeskContract) Call(method string, args ...interface{}) CallDescriptor {
	return CallDescriptor{
		To:     c.address,
		ABI:    lendingDeskABI,
		Method: method,
		Args:   args,
	}
}

// InitializeNewLoanCalls builds the ordered pair of calls that draws a loan:
// the collateral approval first, then the desk call consuming it. The pair
// must stay within one bundle.
func (c *LendingDeskContract) InitializeNewLoanCalls(params InitializeNewLoanParams) []CallDescriptor {
	return []CallDescriptor{
		c.collateral.ApproveCall(c.address, new(big.Int).SetUint64(params.NFTID)),
		c.Call("initializeNewLoan",
			params.LendingDeskID,
			c.collateral.Address(),
			params.NFTID,
			params.Duration,
			params.Amount,
			params.MaxInterestAllowed,
		),
	}
}

// MakeLoanPaymentCalls builds the ordered pair of calls for a repayment:
// a token allowance, then the payment itself. When resolve is set the
// approval covers amountDue (the current on-chain total) and the payment
// amount is zeroed, matching the desk's full-payoff convention.
func (c *LendingDeskContract) MakeLoanPaymentCalls(loanID, amount, amountDue *big.Int, resolve bool) []CallDescriptor {
	approved := amount
	paid := amount
	if resolve {
		approved = amountDue
		paid = big.NewInt(0)
	}
	return []CallDescriptor{
		c.erc20.ApproveCall(c.address, approved),
		c.Call("makeLoanPayment", loanID, paid, resolve),
	}
}

// InitializedLoanFromLogs extracts the NewLoanInitialized event from a
// receipt's logs. Only the first log emitted by this contract with a
// matching topic is honored; a bundle initializes at most one loan. Returns
// nil when no log matches.
func (c *LendingDeskContract) InitializedLoanFromLogs(logs []*types.Log) (*InitializedLoan, error) {
	eventID := lendingDeskABI.Events["NewLoanInitialized"].ID
	for _, l := range logs {
		if l.Address != c.address || len(l.Topics) != 4 || l.Topics[0] != eventID {
			continue
		}

		var data struct {
			NftCollection common.Address
			NftId         *big.Int
			Amount        *big.Int
			Duration      *big.Int
			Interest      *big.Int
			PlatformFee   *big.Int
		}
		if err := lendingDeskABI.UnpackIntoInterface(&data, "NewLoanInitialized", l.Data); err != nil {
			return nil, fmt.Errorf("decode NewLoanInitialized: %w", err)
		}

		return &InitializedLoan{
			LendingDeskID: new(big.Int).SetBytes(l.Topics[1].Bytes()),
			LoanID:        new(big.Int).SetBytes(l.Topics[2].Bytes()),
			Borrower:      common.BytesToAddress(l.Topics[3].Bytes()),
			NFTCollection: data.NftCollection,
			NFTID:         data.NftId,
			Amount:        data.Amount,
			Duration:      data.Duration,
			Interest:      data.Interest,
			PlatformFee:   data.PlatformFee,
		}, nil
	}
	return nil, nil
}
