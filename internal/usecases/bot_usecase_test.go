package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"magnify-lend.backend/internal/domain/entities"
	domainerrors "magnify-lend.backend/internal/domain/errors"
	"magnify-lend.backend/internal/infrastructure/blockchain"
	"magnify-lend.backend/internal/infrastructure/telegram"
)

type fakeWalletRepo struct {
	byChatID map[int64]*entities.Wallet
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{byChatID: map[int64]*entities.Wallet{}}
}

func (r *fakeWalletRepo) Create(ctx context.Context, wallet *entities.Wallet) error {
	r.byChatID[wallet.UserChatID] = wallet
	return nil
}

func (r *fakeWalletRepo) GetByUserChatID(ctx context.Context, chatID int64) (*entities.Wallet, error) {
	wallet, ok := r.byChatID[chatID]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return wallet, nil
}

func (r *fakeWalletRepo) GetBySmartAccountAddress(ctx context.Context, address string) (*entities.Wallet, error) {
	for _, wallet := range r.byChatID {
		if wallet.SmartAccountAddress == address {
			return wallet, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

type fakeVerificationRepo struct {
	byChatID map[int64]*entities.Verification
}

func newFakeVerificationRepo() *fakeVerificationRepo {
	return &fakeVerificationRepo{byChatID: map[int64]*entities.Verification{}}
}

func (r *fakeVerificationRepo) Create(ctx context.Context, verification *entities.Verification) error {
	r.byChatID[verification.UserChatID] = verification
	return nil
}

func (r *fakeVerificationRepo) GetByNullifierHash(ctx context.Context, nullifierHash string) (*entities.Verification, error) {
	for _, v := range r.byChatID {
		if v.NullifierHash == nullifierHash {
			return v, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (r *fakeVerificationRepo) GetByUserChatID(ctx context.Context, chatID int64) (*entities.Verification, error) {
	v, ok := r.byChatID[chatID]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return v, nil
}

type fakeLoanRepo struct {
	byID          map[uuid.UUID]*entities.Loan
	statusUpdates []entities.LoanStatus
}

func newFakeLoanRepo() *fakeLoanRepo {
	return &fakeLoanRepo{byID: map[uuid.UUID]*entities.Loan{}}
}

func (r *fakeLoanRepo) Create(ctx context.Context, loan *entities.Loan) error {
	r.byID[loan.ID] = loan
	return nil
}

func (r *fakeLoanRepo) GetActiveByUserChatID(ctx context.Context, chatID int64) (*entities.Loan, error) {
	for _, loan := range r.byID {
		if loan.UserChatID == chatID && loan.Status == entities.LoanStatusActive {
			return loan, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (r *fakeLoanRepo) GetByOnchainLoanID(ctx context.Context, onchainLoanID string) (*entities.Loan, error) {
	for _, loan := range r.byID {
		if loan.OnchainLoanID == onchainLoanID {
			return loan, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (r *fakeLoanRepo) ListByUserChatID(ctx context.Context, chatID int64) ([]*entities.Loan, error) {
	var out []*entities.Loan
	for _, loan := range r.byID {
		if loan.UserChatID == chatID {
			out = append(out, loan)
		}
	}
	return out, nil
}

func (r *fakeLoanRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.LoanStatus, paymentTx string) error {
	loan, ok := r.byID[id]
	if !ok {
		return domainerrors.ErrNotFound
	}
	loan.Status = status
	r.statusUpdates = append(r.statusUpdates, status)
	return nil
}

// sentMessage is one Telegram Bot API call captured by the fake server
type sentMessage struct {
	Method string
	Body   string
}

type botFixture struct {
	usecase       *BotUsecase
	users         *fakeUserRepo
	wallets       *fakeWalletRepo
	verifications *fakeVerificationRepo
	loans         *fakeLoanRepo
	mu            sync.Mutex
	sent          []sentMessage
	loanStatus    uint8
}

func word(n int64) []byte {
	return common.BigToHash(big.NewInt(n)).Bytes()
}

func addressWord(addr common.Address) []byte {
	return common.BytesToHash(addr.Bytes()).Bytes()
}

func selector(sig string) string {
	return common.Bytes2Hex(crypto.Keccak256([]byte(sig))[:4])
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()

	f := &botFixture{
		users:         newFakeUserRepo(),
		wallets:       newFakeWalletRepo(),
		verifications: newFakeVerificationRepo(),
		loans:         newFakeLoanRepo(),
		loanStatus:    blockchain.LoanStatusActive,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		parts := strings.Split(r.URL.Path, "/")
		f.mu.Lock()
		f.sent = append(f.sent, sentMessage{Method: parts[len(parts)-1], Body: string(raw)})
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":     true,
			"result": map[string]interface{}{"message_id": 1},
		})
	}))
	t.Cleanup(srv.Close)

	sbt, err := blockchain.NewSBTContract("0x1000000000000000000000000000000000000001")
	require.NoError(t, err)
	collateral, err := blockchain.NewCollateralNFTContract("0x1000000000000000000000000000000000000002")
	require.NoError(t, err)
	erc20, err := blockchain.NewERC20Contract("0x1000000000000000000000000000000000000004")
	require.NoError(t, err)
	desk, err := blockchain.NewLendingDeskContract("0x1000000000000000000000000000000000000003", collateral, erc20)
	require.NoError(t, err)

	evm := blockchain.NewEVMClientWithCallView(big.NewInt(84532), func(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
		switch common.Bytes2Hex(data[:4]) {
		case selector("balanceOf(address)"):
			return word(42_000_000), nil
		case selector("lendingDeskLoanConfigs(uint256,address)"):
			var ret []byte
			ret = append(ret, addressWord(collateral.Address())...)
			ret = append(ret, word(0)...) // not erc1155
			ret = append(ret, word(5_000_000)...)
			ret = append(ret, word(15_000_000)...)
			ret = append(ret, word(1000)...)
			ret = append(ret, word(1500)...)
			ret = append(ret, word(168)...)
			ret = append(ret, word(1440)...)
			return ret, nil
		case selector("loans(uint256)"):
			var ret []byte
			ret = append(ret, word(10_000_000)...) // amount
			ret = append(ret, word(0)...)          // paid back
			ret = append(ret, addressWord(collateral.Address())...)
			ret = append(ret, word(1_700_000_000)...) // start time
			ret = append(ret, word(11)...)            // nft id
			ret = append(ret, word(3)...)             // desk id
			ret = append(ret, word(336)...)           // duration
			ret = append(ret, word(1158)...)          // interest
			ret = append(ret, word(int64(f.loanStatus))...)
			ret = append(ret, word(0)...)
			return ret, nil
		case selector("getLoanAmountDue(uint256)"):
			return word(10_050_000), nil
		}
		return nil, fmt.Errorf("unexpected call %x", data[:4])
	})
	reader := blockchain.NewChainReader(evm, sbt, collateral, desk, erc20)

	params := blockchain.AccountParams{
		Factory:      common.HexToAddress("0x0BA5ED0c6AA8c49038F819E587E2633c4A9F428a"),
		InitCodeHash: crypto.Keccak256Hash([]byte("proxy creation code")),
	}
	onchain := NewOnchainUsecase(nil, reader, sbt, collateral, desk, params, 3)

	bot := telegram.NewClient(srv.URL, "test-token")
	f.usecase = NewBotUsecase(bot, f.users, f.wallets, f.verifications, f.loans,
		onchain, "https://bot.example", 6)
	return f
}

func (f *botFixture) lastMessage(t *testing.T, method string) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].Method == method {
			return f.sent[i]
		}
	}
	t.Fatalf("no %s call captured", method)
	return sentMessage{}
}

func (f *botFixture) seedVerifiedUser(chatID int64) {
	now := time.Now()
	f.users.byChatID[chatID] = &entities.User{
		ChatID:        chatID,
		NullifierHash: null.StringFrom("0xnullifier"),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.wallets.byChatID[chatID] = &entities.Wallet{
		ID:                  uuid.New(),
		UserChatID:          chatID,
		OwnerAddress:        "0x00000000000000000000000000000000000000AA",
		SmartAccountAddress: "0x00000000000000000000000000000000000000BB",
		PrivateKeyHex:       "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d",
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	f.verifications.byChatID[chatID] = &entities.Verification{
		ID:              uuid.New(),
		UserChatID:      chatID,
		NullifierHash:   "0xnullifier",
		CollateralNFTID: null.StringFrom("11"),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func startUpdate(chatID int64) *telegram.Update {
	return &telegram.Update{
		UpdateID: 1,
		Message: &telegram.Message{
			MessageID: 10,
			Chat:      telegram.Chat{ID: chatID},
			From:      &telegram.From{ID: chatID, Username: "ada", FirstName: "Ada"},
			Text:      "/start",
		},
	}
}

func TestHandleStartProvisionsWallet(t *testing.T) {
	f := newBotFixture(t)

	f.usecase.HandleUpdate(context.Background(), startUpdate(42))

	user, err := f.users.GetByChatID(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, "Ada", user.FirstName)
	require.Equal(t, "ada", user.Username.String)

	wallet, err := f.wallets.GetByUserChatID(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, wallet.PrivateKeyHex, 64)
	require.True(t, common.IsHexAddress(wallet.OwnerAddress))
	require.True(t, common.IsHexAddress(wallet.SmartAccountAddress))
	require.NotEqual(t, wallet.OwnerAddress, wallet.SmartAccountAddress)

	msg := f.lastMessage(t, "sendMessage")
	require.Contains(t, msg.Body, "Your Smart Wallet is ready")
	require.Contains(t, msg.Body, wallet.SmartAccountAddress)
	require.Contains(t, msg.Body, "hideCredentials")
}

func TestHandleStartExistingUser(t *testing.T) {
	f := newBotFixture(t)
	f.seedVerifiedUser(42)

	f.usecase.HandleUpdate(context.Background(), startUpdate(42))

	// credentials are shown once; a second /start only confirms the wallet
	msg := f.lastMessage(t, "sendMessage")
	require.Contains(t, msg.Body, "Your wallet is ready to use")
	require.NotContains(t, msg.Body, "Private Key")
}

func TestHandleWalletShowsBalance(t *testing.T) {
	f := newBotFixture(t)
	f.seedVerifiedUser(42)

	f.usecase.HandleUpdate(context.Background(), &telegram.Update{
		UpdateID: 2,
		Message: &telegram.Message{
			MessageID: 11,
			Chat:      telegram.Chat{ID: 42},
			Text:      "/wallet",
		},
	})

	msg := f.lastMessage(t, "sendMessage")
	require.Contains(t, msg.Body, "42.0000")
	require.Contains(t, msg.Body, "✅ Verified")
}

func callbackUpdate(chatID int64, data string) *telegram.Update {
	return &telegram.Update{
		UpdateID: 3,
		CallbackQuery: &telegram.CallbackQuery{
			ID:   "cb-1",
			From: telegram.From{ID: chatID},
			Message: &telegram.Message{
				MessageID: 12,
				Chat:      telegram.Chat{ID: chatID},
			},
			Data: data,
		},
	}
}

func TestGetLoanShowsOptions(t *testing.T) {
	f := newBotFixture(t)
	f.seedVerifiedUser(42)

	f.usecase.HandleUpdate(context.Background(), callbackUpdate(42, "getLoan"))

	msg := f.lastMessage(t, "sendMessage")
	require.Contains(t, msg.Body, "Available Loan Options")
	require.Contains(t, msg.Body, "selectLoanAmount;10;12.5")
}

func TestGetLoanUnverifiedUser(t *testing.T) {
	f := newBotFixture(t)
	f.seedVerifiedUser(42)
	f.users.byChatID[42].NullifierHash = null.String{}

	f.usecase.HandleUpdate(context.Background(), callbackUpdate(42, "getLoan"))

	msg := f.lastMessage(t, "sendMessage")
	require.Contains(t, msg.Body, "Complete identity verification")
}

func TestGetLoanBlockedByActiveLoan(t *testing.T) {
	f := newBotFixture(t)
	f.seedVerifiedUser(42)
	require.NoError(t, f.loans.Create(context.Background(), &entities.Loan{
		ID:            uuid.New(),
		OnchainLoanID: "17",
		UserChatID:    42,
		Status:        entities.LoanStatusActive,
		DurationHours: 336,
		CreatedAt:     time.Now(),
	}))

	f.usecase.HandleUpdate(context.Background(), callbackUpdate(42, "getLoan"))

	msg := f.lastMessage(t, "sendMessage")
	require.Contains(t, msg.Body, "already have an active loan")
	require.Empty(t, f.loans.statusUpdates)
}

// A stored ACTIVE loan whose on-chain record has closed is reconciled
// before the menu renders. An on-chain RESOLVED status marks the stored
// record DEFAULTED.
func TestGetLoanSyncsStaleLoan(t *testing.T) {
	f := newBotFixture(t)
	f.seedVerifiedUser(42)
	f.loanStatus = blockchain.LoanStatusResolved
	require.NoError(t, f.loans.Create(context.Background(), &entities.Loan{
		ID:            uuid.New(),
		OnchainLoanID: "17",
		UserChatID:    42,
		Status:        entities.LoanStatusActive,
		DurationHours: 336,
		CreatedAt:     time.Now(),
	}))

	f.usecase.HandleUpdate(context.Background(), callbackUpdate(42, "getLoan"))

	require.Equal(t, []entities.LoanStatus{entities.LoanStatusDefaulted}, f.loans.statusUpdates)
	msg := f.lastMessage(t, "sendMessage")
	require.Contains(t, msg.Body, "Available Loan Options")
}

func TestSelectLoanAmountKeyboard(t *testing.T) {
	f := newBotFixture(t)
	f.seedVerifiedUser(42)

	f.usecase.HandleUpdate(context.Background(), callbackUpdate(42, "selectLoanAmount;10;12.5"))

	msg := f.lastMessage(t, "sendMessage")
	require.Contains(t, msg.Body, "Select Loan Duration")
	for _, d := range []string{"7", "14", "30", "45", "60"} {
		require.Contains(t, msg.Body, "selectLoanDuration;"+d+";10;12.5")
	}
}

func TestViewActiveLoan(t *testing.T) {
	f := newBotFixture(t)
	f.seedVerifiedUser(42)
	require.NoError(t, f.loans.Create(context.Background(), &entities.Loan{
		ID:            uuid.New(),
		OnchainLoanID: "17",
		UserChatID:    42,
		Status:        entities.LoanStatusActive,
		DurationHours: 336,
		CreatedAt:     time.Now(),
	}))

	f.usecase.HandleUpdate(context.Background(), callbackUpdate(42, "viewActiveLoan"))

	msg := f.lastMessage(t, "sendMessage")
	require.Contains(t, msg.Body, "Active Loan Details")
	require.Contains(t, msg.Body, "10.0000") // principal
	require.Contains(t, msg.Body, "10.0500") // amount due
}

func TestCallbackWithoutMessageIgnored(t *testing.T) {
	f := newBotFixture(t)

	f.usecase.HandleUpdate(context.Background(), &telegram.Update{
		UpdateID:      4,
		CallbackQuery: &telegram.CallbackQuery{ID: "cb-2", Data: "getLoan"},
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Empty(t, f.sent)
}
