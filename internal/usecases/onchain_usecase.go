package usecases

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"magnify-lend.backend/internal/infrastructure/blockchain"
	"magnify-lend.backend/pkg/logger"
	"magnify-lend.backend/pkg/metrics"
)

// MintResult carries the confirmed identity/collateral mint outcome. Both
// token ids are recovered from the receipt logs; zero means the expected
// event was absent.
type MintResult struct {
	TxHash          common.Hash
	SBTID           *big.Int
	CollateralNFTID *big.Int
}

// InitializeLoanResult carries the confirmed loan initialization outcome
type InitializeLoanResult struct {
	TxHash common.Hash
	Loan   *blockchain.InitializedLoan
}

// MakeLoanPaymentParams are the caller-supplied repayment terms. When
// Resolve is set the loan is paid off in full at the current on-chain
// amount due and Amount is ignored.
type MakeLoanPaymentParams struct {
	LoanID  *big.Int
	Amount  *big.Int
	Resolve bool
}

// PaymentResult carries the confirmed repayment outcome
type PaymentResult struct {
	TxHash common.Hash
}

// OnchainUsecase orchestrates sponsored transactions against the lending
// protocol: it encodes calls, submits them as single user operation
// bundles, and decodes the resulting receipts.
//
// Invocations with different smart accounts are fully independent. Writes
// from the same account are not serialized here; callers avoid nonce
// collisions by not submitting concurrently for one account.
type OnchainUsecase struct {
	bundler       *blockchain.BundlerClient
	reader        *blockchain.ChainReader
	sbt           *blockchain.SBTContract
	collateral    *blockchain.CollateralNFTContract
	desk          *blockchain.LendingDeskContract
	accountParams blockchain.AccountParams
	lendingDeskID uint64
}

// NewOnchainUsecase creates a new on-chain orchestration usecase
func NewOnchainUsecase(
	bundler *blockchain.BundlerClient,
	reader *blockchain.ChainReader,
	sbt *blockchain.SBTContract,
	collateral *blockchain.CollateralNFTContract,
	desk *blockchain.LendingDeskContract,
	accountParams blockchain.AccountParams,
	lendingDeskID uint64,
) *OnchainUsecase {
	return &OnchainUsecase{
		bundler:       bundler,
		reader:        reader,
		sbt:           sbt,
		collateral:    collateral,
		desk:          desk,
		accountParams: accountParams,
		lendingDeskID: lendingDeskID,
	}
}

// SmartAccount derives the smart account controlled by a private key
func (u *OnchainUsecase) SmartAccount(privateKeyHex string) (*blockchain.SmartAccount, error) {
	return blockchain.NewSmartAccount(privateKeyHex, u.accountParams)
}

// LendingDeskID returns the configured desk this service lends against
func (u *OnchainUsecase) LendingDeskID() uint64 {
	return u.lendingDeskID
}

// MintIdentityAndCollateral bundles the identity SBT mint and the
// collateral NFT mint into one sponsored transaction and decodes both
// token ids from the receipt logs.
func (u *OnchainUsecase) MintIdentityAndCollateral(ctx context.Context, account *blockchain.SmartAccount, to common.Address, proof blockchain.IdentityProof, signal string) (*MintResult, error) {
	mintCall, err := u.sbt.MintCall(to, proof, signal)
	if err != nil {
		return nil, err
	}
	calls := []blockchain.CallDescriptor{
		mintCall,
		u.collateral.MintCall(to),
	}

	receipt, err := u.submit(ctx, "mint_identity_and_collateral", account, calls, map[string]interface{}{
		"to":     to.Hex(),
		"signal": signal,
	})
	if err != nil {
		return nil, err
	}

	// Token ids come from the Transfer logs; a decode miss is a zero
	// sentinel, resolved here by a fresh read instead of guessing.
	sbtID := u.sbt.TokenIDFromLogs(receipt.Logs)
	if sbtID.Sign() == 0 {
		if sbtID, err = u.reader.SBTTokenID(ctx, to); err != nil {
			return nil, err
		}
	}
	collateralID := u.collateral.TokenIDFromLogs(receipt.Logs)
	if collateralID.Sign() == 0 && sbtID.Sign() != 0 {
		if collateralID, err = u.reader.CollateralBySBT(ctx, sbtID); err != nil {
			return nil, err
		}
	}

	return &MintResult{
		TxHash:          receipt.TxHash,
		SBTID:           sbtID,
		CollateralNFTID: collateralID,
	}, nil
}

// InitializeNewLoan draws a loan against the configured desk: collateral
// approval and loan initialization in one bundle, with the contract-assigned
// loan record decoded from the receipt logs.
func (u *OnchainUsecase) InitializeNewLoan(ctx context.Context, account *blockchain.SmartAccount, params blockchain.InitializeNewLoanParams) (*InitializeLoanResult, error) {
	calls := u.desk.InitializeNewLoanCalls(params)

	receipt, err := u.submit(ctx, "initialize_new_loan", account, calls, map[string]interface{}{
		"lendingDeskId":      params.LendingDeskID,
		"nftId":              params.NFTID,
		"duration":           params.Duration,
		"amount":             params.Amount.String(),
		"maxInterestAllowed": params.MaxInterestAllowed,
	})
	if err != nil {
		return nil, err
	}

	loan, err := u.desk.InitializedLoanFromLogs(receipt.Logs)
	if err != nil {
		return nil, err
	}

	return &InitializeLoanResult{
		TxHash: receipt.TxHash,
		Loan:   loan,
	}, nil
}

// MakeLoanPayment repays part or all of a loan. A full payoff approves the
// current on-chain amount due, read fresh before the bundle is built.
func (u *OnchainUsecase) MakeLoanPayment(ctx context.Context, account *blockchain.SmartAccount, params MakeLoanPaymentParams) (*PaymentResult, error) {
	var amountDue *big.Int
	if params.Resolve {
		var err error
		if amountDue, err = u.reader.LoanAmountDue(ctx, params.LoanID); err != nil {
			return nil, err
		}
	}
	calls := u.desk.MakeLoanPaymentCalls(params.LoanID, params.Amount, amountDue, params.Resolve)

	receipt, err := u.submit(ctx, "make_loan_payment", account, calls, map[string]interface{}{
		"loanId":  params.LoanID.String(),
		"amount":  params.Amount.String(),
		"resolve": params.Resolve,
	})
	if err != nil {
		return nil, err
	}

	return &PaymentResult{TxHash: receipt.TxHash}, nil
}

// submit runs one sponsored bundle and logs enough context to replay the
// operation manually on failure. Errors propagate unmodified.
func (u *OnchainUsecase) submit(ctx context.Context, operation string, account *blockchain.SmartAccount, calls []blockchain.CallDescriptor, params map[string]interface{}) (*blockchain.Receipt, error) {
	serialized, _ := json.Marshal(params)

	logger.Debug(ctx, "submitting user operation",
		zap.String("operation", operation),
		zap.String("account", account.Address.Hex()),
		zap.ByteString("params", serialized),
	)

	receipt, err := u.bundler.SubmitBundle(ctx, account, calls)
	if err != nil {
		metrics.UserOpsFailed.WithLabelValues(operation).Inc()
		logger.Error(ctx, "user operation failed",
			zap.String("operation", operation),
			zap.String("account", account.Address.Hex()),
			zap.ByteString("params", serialized),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.UserOpsSubmitted.WithLabelValues(operation).Inc()
	logger.Info(ctx, "user operation confirmed",
		zap.String("operation", operation),
		zap.String("account", account.Address.Hex()),
		zap.String("tx_hash", receipt.TxHash.Hex()),
	)
	return receipt, nil
}

// GetLoanConfig reads the configured desk's loan bounds
func (u *OnchainUsecase) GetLoanConfig(ctx context.Context) (*blockchain.LoanDeskConfig, error) {
	return u.reader.LoanDeskConfig(ctx, u.lendingDeskID)
}

// GetBalance reads the payment-token balance of an address
func (u *OnchainUsecase) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	return u.reader.ERC20Balance(ctx, address)
}

// LoanInfo reads a single on-chain loan record
func (u *OnchainUsecase) LoanInfo(ctx context.Context, loanID *big.Int) (*blockchain.Loan, error) {
	return u.reader.Loan(ctx, loanID)
}

// GetLoanAmountDue reads the current total owed on a loan
func (u *OnchainUsecase) GetLoanAmountDue(ctx context.Context, loanID *big.Int) (*big.Int, error) {
	return u.reader.LoanAmountDue(ctx, loanID)
}
