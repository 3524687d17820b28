package usecases

import (
	"context"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"magnify-lend.backend/internal/domain/entities"
	domainerrors "magnify-lend.backend/internal/domain/errors"
	"magnify-lend.backend/internal/domain/repositories"
	"magnify-lend.backend/internal/infrastructure/blockchain"
	"magnify-lend.backend/pkg/logger"
)

// ProofVerifier checks a zero-knowledge identity proof against an external
// verification service.
type ProofVerifier interface {
	VerifyProof(ctx context.Context, proof blockchain.IdentityProof, signal string) (bool, error)
}

// VerificationNotifier tells the user how their verification attempt went
type VerificationNotifier interface {
	NotifyVerification(ctx context.Context, chatID int64, success bool) error
}

// VerifyPage is what the verification web app needs to start a session
type VerifyPage struct {
	AppID  string `json:"appId"`
	Action string `json:"action"`
}

// VerificationUsecase runs the identity verification flow: proof checks,
// one-time nullifier enforcement, and the on-chain identity/collateral
// mint that a successful verification triggers.
type VerificationUsecase struct {
	verifier      ProofVerifier
	notifier      VerificationNotifier
	users         repositories.UserRepository
	wallets       repositories.WalletRepository
	verifications repositories.VerificationRepository
	onchain       *OnchainUsecase
	appID         string
	action        string
}

// NewVerificationUsecase creates a new verification usecase
func NewVerificationUsecase(
	verifier ProofVerifier,
	notifier VerificationNotifier,
	users repositories.UserRepository,
	wallets repositories.WalletRepository,
	verifications repositories.VerificationRepository,
	onchain *OnchainUsecase,
	appID, action string,
) *VerificationUsecase {
	return &VerificationUsecase{
		verifier:      verifier,
		notifier:      notifier,
		users:         users,
		wallets:       wallets,
		verifications: verifications,
		onchain:       onchain,
		appID:         appID,
		action:        action,
	}
}

// RenderVerifyPage returns the widget parameters for the verify web app
func (u *VerificationUsecase) RenderVerifyPage() VerifyPage {
	return VerifyPage{AppID: u.appID, Action: u.action}
}

// VerifyProof validates a submitted proof and, when it holds, mints the
// identity SBT and collateral NFT to the user's smart account. The signal
// binds the proof to the submitting chat; a nullifier can only ever verify
// one account.
func (u *VerificationUsecase) VerifyProof(ctx context.Context, chatID int64, proof blockchain.IdentityProof, signal string) error {
	if strconv.FormatInt(chatID, 10) != signal {
		return domainerrors.ErrInvalidSignal
	}

	user, err := u.users.GetByChatID(ctx, chatID)
	if err != nil {
		return err
	}
	if user.Verified() {
		u.notify(ctx, chatID, false)
		return domainerrors.ErrAlreadyVerified
	}

	if _, err := u.users.GetByNullifierHash(ctx, proof.NullifierHash); err == nil {
		u.notify(ctx, chatID, false)
		return domainerrors.ErrNullifierReused
	} else if !isNotFound(err) {
		return err
	}

	ok, err := u.verifier.VerifyProof(ctx, proof, signal)
	if err != nil {
		return err
	}
	if !ok {
		logger.Error(ctx, "cloud proof verification failed",
			zap.Int64("chat_id", chatID),
			zap.String("nullifier_hash", proof.NullifierHash),
		)
		u.notify(ctx, chatID, false)
		return domainerrors.ErrProofRejected
	}

	wallet, err := u.wallets.GetByUserChatID(ctx, chatID)
	if err != nil {
		return err
	}

	account, err := u.onchain.SmartAccount(wallet.PrivateKeyHex)
	if err != nil {
		return err
	}

	mint, err := u.onchain.MintIdentityAndCollateral(ctx, account, common.HexToAddress(wallet.SmartAccountAddress), proof, signal)
	if err != nil {
		return err
	}

	now := time.Now()
	verification := &entities.Verification{
		ID:                uuid.New(),
		UserChatID:        chatID,
		NullifierHash:     proof.NullifierHash,
		MerkleRoot:        proof.MerkleRoot,
		Proof:             proof.Proof,
		VerificationLevel: proof.VerificationLevel,
		Signal:            signal,
		MintTxHash:        null.StringFrom(mint.TxHash.Hex()),
		SBTID:             null.StringFrom(mint.SBTID.String()),
		CollateralNFTID:   null.StringFrom(mint.CollateralNFTID.String()),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := u.verifications.Create(ctx, verification); err != nil {
		return err
	}
	if err := u.users.SetNullifierHash(ctx, chatID, proof.NullifierHash); err != nil {
		return err
	}

	u.notify(ctx, chatID, true)
	return nil
}

func (u *VerificationUsecase) notify(ctx context.Context, chatID int64, success bool) {
	if err := u.notifier.NotifyVerification(ctx, chatID, success); err != nil {
		logger.Warn(ctx, "verification notification failed",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
