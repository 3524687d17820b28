package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	domainerrors "magnify-lend.backend/internal/domain/errors"
)

// preVerificationGasMultiplier is the fixed safety margin applied to the
// bundler's preVerificationGas estimate before submission. Unconditional;
// bundler underestimation otherwise gets the operation rejected on-chain.
const preVerificationGasMultiplier = 2

var entryPointABI = mustParseABI(`[
	{"inputs":[{"internalType":"address","name":"sender","type":"address"},{"internalType":"uint192","name":"key","type":"uint192"}],"name":"getNonce","outputs":[{"internalType":"uint256","name":"nonce","type":"uint256"}],"stateMutability":"view","type":"function"}
]`)

var dialBundlerRPC = rpc.DialContext

// BundlerClient submits sponsored user operation bundles through an
// account-abstraction bundler co-located with the chain RPC endpoint.
type BundlerClient struct {
	rpc          *rpc.Client
	evm          *EVMClient
	entryPoint   common.Address
	pollInterval time.Duration
}

// NewBundlerClient dials the bundler endpoint
func NewBundlerClient(rpcURL string, evm *EVMClient, entryPoint common.Address, pollInterval time.Duration) (*BundlerClient, error) {
	client, err := dialBundlerRPC(context.Background(), rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial bundler: %w", err)
	}
	return &BundlerClient{
		rpc:          client,
		evm:          evm,
		entryPoint:   entryPoint,
		pollInterval: pollInterval,
	}, nil
}

// NewBundlerClientWithRPC wraps an existing RPC client. Used by tests and
// the client factory.
func NewBundlerClientWithRPC(client *rpc.Client, evm *EVMClient, entryPoint common.Address, pollInterval time.Duration) *BundlerClient {
	return &BundlerClient{
		rpc:          client,
		evm:          evm,
		entryPoint:   entryPoint,
		pollInterval: pollInterval,
	}
}

// EstimateUserOperationGas asks the bundler to estimate gas for a pending
// user operation
func (b *BundlerClient) EstimateUserOperationGas(ctx context.Context, op *UserOperation) (*GasEstimate, error) {
	var estimate GasEstimate
	if err := b.rpc.CallContext(ctx, &estimate, "eth_estimateUserOperationGas", op, b.entryPoint); err != nil {
		return nil, fmt.Errorf("estimate user operation gas: %w", err)
	}
	return &estimate, nil
}

// SponsorUserOperation asks the paymaster to sponsor the operation so the
// account pays no gas
func (b *BundlerClient) SponsorUserOperation(ctx context.Context, op *UserOperation) (*SponsorResult, error) {
	var result SponsorResult
	if err := b.rpc.CallContext(ctx, &result, "pm_sponsorUserOperation", op, b.entryPoint); err != nil {
		return nil, fmt.Errorf("sponsor user operation: %w", err)
	}
	return &result, nil
}

// SendUserOperation submits the signed operation and returns its hash
func (b *BundlerClient) SendUserOperation(ctx context.Context, op *UserOperation) (common.Hash, error) {
	var userOpHash common.Hash
	if err := b.rpc.CallContext(ctx, &userOpHash, "eth_sendUserOperation", op, b.entryPoint); err != nil {
		return common.Hash{}, fmt.Errorf("send user operation: %w", err)
	}
	return userOpHash, nil
}

// WaitForUserOperationReceipt polls the bundler until the operation is
// mined or ctx is cancelled. There is no timeout here; callers impose their
// own deadline through ctx. A cancelled wait does not mean the operation
// never landed on-chain.
func (b *BundlerClient) WaitForUserOperationReceipt(ctx context.Context, userOpHash common.Hash) (*Receipt, error) {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		var receipt *userOperationReceipt
		if err := b.rpc.CallContext(ctx, &receipt, "eth_getUserOperationReceipt", userOpHash); err != nil {
			return nil, fmt.Errorf("get user operation receipt: %w", err)
		}
		if receipt != nil {
			if !receipt.Success {
				return nil, fmt.Errorf("user operation %s reverted: %w", userOpHash, domainerrors.ErrUserOperationFailed)
			}
			return &Receipt{
				TxHash: receipt.Receipt.TransactionHash,
				Logs:   receipt.Receipt.Logs,
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// GetNonce reads the account's next user operation nonce from the entry
// point
func (b *BundlerClient) GetNonce(ctx context.Context, sender common.Address) (*big.Int, error) {
	data, err := entryPointABI.Pack("getNonce", sender, big.NewInt(0))
	if err != nil {
		return nil, fmt.Errorf("pack getNonce: %w", err)
	}
	ret, err := b.evm.CallView(ctx, b.entryPoint, data)
	if err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	values, err := entryPointABI.Unpack("getNonce", ret)
	if err != nil {
		return nil, fmt.Errorf("unpack getNonce: %w", err)
	}
	return values[0].(*big.Int), nil
}

// SubmitBundle submits an ordered sequence of calls as one sponsored user
// operation under the given account and blocks until it is mined.
//
// All calls succeed or the whole bundle fails on-chain; there are no
// partial-bundle semantics. Failures during estimation, sponsorship,
// submission or the receipt wait propagate unmodified — the only local
// policy is the fixed preVerificationGas padding.
func (b *BundlerClient) SubmitBundle(ctx context.Context, account *SmartAccount, calls []CallDescriptor) (*Receipt, error) {
	if len(calls) == 0 {
		return nil, fmt.Errorf("empty call bundle: %w", domainerrors.ErrInvalidInput)
	}

	callData, err := account.ExecuteBatchCallData(calls)
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}

	nonce, err := b.GetNonce(ctx, account.Address)
	if err != nil {
		return nil, err
	}

	initCode := []byte{}
	code, err := b.evm.CodeAt(ctx, account.Address)
	if err != nil {
		return nil, fmt.Errorf("check account deployment: %w", err)
	}
	if len(code) == 0 {
		if initCode, err = account.InitCode(); err != nil {
			return nil, err
		}
	}

	maxFee, err := b.evm.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}
	maxPriority, err := b.evm.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas tip: %w", err)
	}

	stubSig, err := account.StubSignature()
	if err != nil {
		return nil, err
	}

	op := &UserOperation{
		Sender:               account.Address,
		Nonce:                (*hexutil.Big)(nonce),
		InitCode:             initCode,
		CallData:             callData,
		CallGasLimit:         (*hexutil.Big)(big.NewInt(0)),
		VerificationGasLimit: (*hexutil.Big)(big.NewInt(0)),
		PreVerificationGas:   (*hexutil.Big)(big.NewInt(0)),
		MaxFeePerGas:         (*hexutil.Big)(maxFee),
		MaxPriorityFeePerGas: (*hexutil.Big)(maxPriority),
		PaymasterAndData:     []byte{},
		Signature:            stubSig,
	}

	estimate, err := b.EstimateUserOperationGas(ctx, op)
	if err != nil {
		return nil, err
	}
	op.CallGasLimit = estimate.CallGasLimit
	op.VerificationGasLimit = estimate.VerificationGasLimit
	op.PreVerificationGas = (*hexutil.Big)(new(big.Int).Mul(
		estimate.PreVerificationGas.ToInt(),
		big.NewInt(preVerificationGasMultiplier),
	))

	sponsor, err := b.SponsorUserOperation(ctx, op)
	if err != nil {
		return nil, err
	}
	op.PaymasterAndData = sponsor.PaymasterAndData

	opHash, err := op.Hash(b.entryPoint, b.evm.ChainID())
	if err != nil {
		return nil, err
	}
	if op.Signature, err = account.SignUserOpHash(opHash); err != nil {
		return nil, err
	}

	userOpHash, err := b.SendUserOperation(ctx, op)
	if err != nil {
		return nil, err
	}

	return b.WaitForUserOperationReceipt(ctx, userOpHash)
}

// Close closes the underlying RPC connection
func (b *BundlerClient) Close() {
	if b.rpc != nil {
		b.rpc.Close()
	}
}
