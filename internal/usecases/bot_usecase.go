package usecases

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"magnify-lend.backend/internal/domain/entities"
	domainerrors "magnify-lend.backend/internal/domain/errors"
	"magnify-lend.backend/internal/domain/repositories"
	"magnify-lend.backend/internal/infrastructure/blockchain"
	"magnify-lend.backend/internal/infrastructure/telegram"
	"magnify-lend.backend/pkg/logger"
)

// BotUsecase drives the Telegram bot: it routes incoming updates to
// command handlers and renders the lending flows as inline keyboards.
// Handlers are stateless; multi-step flows carry their parameters in
// callback data (e.g. "selectLoanDuration;14;5;12.5").
type BotUsecase struct {
	bot           *telegram.Client
	users         repositories.UserRepository
	wallets       repositories.WalletRepository
	verifications repositories.VerificationRepository
	loans         repositories.LoanRepository
	onchain       *OnchainUsecase
	botDomain     string
	erc20Decimals int
}

// NewBotUsecase creates a new bot usecase
func NewBotUsecase(
	bot *telegram.Client,
	users repositories.UserRepository,
	wallets repositories.WalletRepository,
	verifications repositories.VerificationRepository,
	loans repositories.LoanRepository,
	onchain *OnchainUsecase,
	botDomain string,
	erc20Decimals int,
) *BotUsecase {
	return &BotUsecase{
		bot:           bot,
		users:         users,
		wallets:       wallets,
		verifications: verifications,
		loans:         loans,
		onchain:       onchain,
		botDomain:     botDomain,
		erc20Decimals: erc20Decimals,
	}
}

// HandleUpdate routes one webhook update. Handler errors are logged, not
// returned: Telegram retries failed webhooks and a retry of an on-chain
// action must not double-submit.
func (u *BotUsecase) HandleUpdate(ctx context.Context, update *telegram.Update) {
	var err error
	switch {
	case update.Message != nil:
		err = u.handleCommand(ctx, update.Message)
	case update.CallbackQuery != nil:
		err = u.handleCallback(ctx, update.CallbackQuery)
	}
	if err != nil {
		logger.Error(ctx, "bot update handling failed",
			zap.Int64("update_id", update.UpdateID),
			zap.Error(err),
		)
	}
}

func (u *BotUsecase) handleCommand(ctx context.Context, msg *telegram.Message) error {
	switch {
	case strings.HasPrefix(msg.Text, "/start"):
		return u.handleStart(ctx, msg)
	case strings.HasPrefix(msg.Text, "/verify"):
		return u.handleVerify(ctx, msg.Chat.ID)
	case strings.HasPrefix(msg.Text, "/getloan"):
		return u.handleGetLoan(ctx, msg.Chat.ID)
	case strings.HasPrefix(msg.Text, "/wallet"):
		return u.handleWallet(ctx, msg.Chat.ID)
	case strings.HasPrefix(msg.Text, "/help"):
		return u.handleHelp(ctx, msg.Chat.ID)
	}
	return nil
}

func (u *BotUsecase) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) error {
	if cb.Message == nil {
		return nil
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	if err := u.bot.AnswerCallbackQuery(ctx, cb.ID); err != nil {
		logger.Warn(ctx, "answer callback failed", zap.Error(err))
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, "hideCredentials"):
		return u.handleHideCredentials(ctx, chatID, messageID)
	case strings.HasPrefix(data, "verify"):
		_ = u.bot.DeleteMessage(ctx, chatID, messageID)
		return u.handleVerify(ctx, chatID)
	case strings.HasPrefix(data, "helpMenu"), data == "help":
		return u.handleHelp(ctx, chatID)
	case strings.HasPrefix(data, "handleWallet"):
		_ = u.bot.DeleteMessage(ctx, chatID, messageID)
		return u.handleWallet(ctx, chatID)
	case strings.HasPrefix(data, "cancelVerification"):
		_ = u.bot.DeleteMessage(ctx, chatID, messageID)
		return u.sendWalletReady(ctx, chatID)
	case strings.HasPrefix(data, "getLoan"):
		_ = u.bot.DeleteMessage(ctx, chatID, messageID)
		return u.handleGetLoan(ctx, chatID)
	case strings.HasPrefix(data, "comingSoon"):
		return nil
	case strings.HasPrefix(data, "viewActiveLoan"):
		_ = u.bot.DeleteMessage(ctx, chatID, messageID)
		return u.handleViewActiveLoan(ctx, chatID)
	case strings.HasPrefix(data, "repayLoan"):
		return u.handleRepayLoan(ctx, chatID)
	case strings.HasPrefix(data, "selectLoanAmount"):
		parts := strings.Split(data, ";")
		if len(parts) < 3 {
			return nil
		}
		_ = u.bot.DeleteMessage(ctx, chatID, messageID)
		return u.handleSelectLoanAmount(ctx, chatID, parts[1], parts[2])
	case strings.HasPrefix(data, "selectLoanDuration"):
		parts := strings.Split(data, ";")
		if len(parts) < 3 {
			return nil
		}
		return u.handleSelectLoanDuration(ctx, chatID, parts[1], parts[2])
	}
	return nil
}

// handleStart provisions a custodial wallet on first contact: a fresh
// signer key and the smart account it will own, both persisted before the
// credentials are shown once.
func (u *BotUsecase) handleStart(ctx context.Context, msg *telegram.Message) error {
	chatID := msg.Chat.ID

	if _, err := u.users.GetByChatID(ctx, chatID); err == nil {
		return u.sendWalletReady(ctx, chatID)
	} else if !isNotFound(err) {
		return err
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	privateKeyHex := fmt.Sprintf("%x", crypto.FromECDSA(key))
	ownerAddress := crypto.PubkeyToAddress(key.PublicKey)

	account, err := u.onchain.SmartAccount(privateKeyHex)
	if err != nil {
		return err
	}

	now := time.Now()
	user := &entities.User{
		ChatID:    chatID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if msg.From != nil {
		user.FirstName = msg.From.FirstName
		if msg.From.Username != "" {
			user.Username = null.StringFrom(msg.From.Username)
		}
	}
	if err := u.users.Create(ctx, user); err != nil {
		return err
	}

	wallet := &entities.Wallet{
		ID:                  uuid.New(),
		UserChatID:          chatID,
		OwnerAddress:        ownerAddress.Hex(),
		SmartAccountAddress: account.Address.Hex(),
		PrivateKeyHex:       privateKeyHex,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := u.wallets.Create(ctx, wallet); err != nil {
		return err
	}

	logger.Info(ctx, "wallet provisioned",
		zap.Int64("chat_id", chatID),
		zap.String("smart_account", account.Address.Hex()),
	)

	text := fmt.Sprintf(`✅ Your Smart Wallet is ready!

Address (EOA): %s
Address (Smart Wallet): %s
Private Key: 0x%s

⚠️ IMPORTANT: Save these credentials securely!
• Never share your private key
• Delete this message after saving`, ownerAddress.Hex(), account.Address.Hex(), privateKeyHex)

	_, err = u.bot.SendMessage(ctx, chatID, text, &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: "✅ I've Saved My Credentials", CallbackData: "hideCredentials"}},
			{{Text: "❓ Help", CallbackData: "help"}},
		},
	})
	return err
}

func (u *BotUsecase) handleHideCredentials(ctx context.Context, chatID, messageID int64) error {
	if err := u.bot.DeleteMessage(ctx, chatID, messageID); err != nil {
		return err
	}
	return u.sendWalletReady(ctx, chatID)
}

func (u *BotUsecase) sendWalletReady(ctx context.Context, chatID int64) error {
	_, err := u.bot.SendMessage(ctx, chatID, `✅ Great! Your wallet is ready to use.

Next step: Complete identity verification to access lending services.`, &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: "✅ Complete Verification", CallbackData: "verify"}},
			{{Text: "💼 View Wallet", CallbackData: "handleWallet"}},
			{{Text: "❓ Help", CallbackData: "help"}},
		},
	})
	return err
}

func (u *BotUsecase) handleVerify(ctx context.Context, chatID int64) error {
	user, err := u.users.GetByChatID(ctx, chatID)
	if err != nil && !isNotFound(err) {
		return err
	}

	if user == nil || !user.Verified() {
		_, err := u.bot.SendMessage(ctx, chatID, `🔐 Identity Verification

Please, choose a verification method:

1️⃣ World ID - Verify with biometric proof`, &telegram.InlineKeyboardMarkup{
			InlineKeyboard: [][]telegram.InlineKeyboardButton{
				{{Text: "🌏 Verify with World ID", WebApp: &telegram.WebAppInfo{URL: u.botDomain + "/api/world-id/verify"}}},
				{{Text: "❌ Cancel", CallbackData: "cancelVerification"}},
			},
		})
		return err
	}

	return u.sendVerified(ctx, chatID)
}

func (u *BotUsecase) sendVerified(ctx context.Context, chatID int64) error {
	_, err := u.bot.SendMessage(ctx, chatID, `✅ Verification successful!
🎉 Your Identity SBT has been minted.

You now have access to lending services.

What would you like to do next?`, &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: "💰 Get a Loan", CallbackData: "getLoan"}},
			{{Text: "💼 View Wallet", CallbackData: "handleWallet"}},
			{{Text: "❓ Help", CallbackData: "help"}},
		},
	})
	return err
}

// NotifyVerification tells the user how their proof verification went.
// On failure the verification menu is shown again.
func (u *BotUsecase) NotifyVerification(ctx context.Context, chatID int64, success bool) error {
	if success {
		return u.sendVerified(ctx, chatID)
	}
	if _, err := u.bot.SendMessage(ctx, chatID, `⚠️ Verification failed!

Something went wrong. Please try again or contact support`, nil); err != nil {
		return err
	}
	return u.handleVerify(ctx, chatID)
}

func (u *BotUsecase) handleWallet(ctx context.Context, chatID int64) error {
	user, err := u.users.GetByChatID(ctx, chatID)
	if err != nil {
		return err
	}
	wallet, err := u.wallets.GetByUserChatID(ctx, chatID)
	if err != nil {
		return err
	}

	status := "❌ Not Verified"
	if user.Verified() {
		status = "✅ Verified"
	}

	balance, err := u.onchain.GetBalance(ctx, common.HexToAddress(wallet.SmartAccountAddress))
	if err != nil {
		return err
	}

	text := fmt.Sprintf(`💼 Your Wallet

Address: %s
Balance: %s

Status: %s

What would you like to do?`, wallet.SmartAccountAddress, formatAmount(balance, u.erc20Decimals), status)

	_, err = u.bot.SendMessage(ctx, chatID, text, &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: "💰 Get a Loan", CallbackData: "getLoan"}},
			{{Text: "✅ Complete Verification", CallbackData: "verify"}},
			{{Text: "🔄 Refresh", CallbackData: "handleWallet"}},
			{{Text: "❓ Help", CallbackData: "help"}},
		},
	})
	return err
}

// handleGetLoan shows the loan menu. A stale ACTIVE record whose on-chain
// loan has since closed is reconciled here before the menu renders.
func (u *BotUsecase) handleGetLoan(ctx context.Context, chatID int64) error {
	user, err := u.users.GetByChatID(ctx, chatID)
	if err != nil {
		return err
	}
	if !user.Verified() {
		return u.sendWalletReady(ctx, chatID)
	}

	loan, err := u.loans.GetActiveByUserChatID(ctx, chatID)
	if err != nil && !isNotFound(err) {
		return err
	}

	if loan == nil {
		_, err := u.bot.SendMessage(ctx, chatID, `💰 Available Loan Options

Choose your loan amount:`, &telegram.InlineKeyboardMarkup{
			InlineKeyboard: [][]telegram.InlineKeyboardButton{
				{{Text: "$5 (15.0% APR)", CallbackData: "selectLoanAmount;5;15"}},
				{{Text: "$10 (12.5% APR)", CallbackData: "selectLoanAmount;10;12.5"}},
				{{Text: "$15 (10.0% APR)", CallbackData: "selectLoanAmount;15;10"}},
				{{Text: "❌ Cancel", CallbackData: "handleWallet"}},
				{{Text: "❓ Help", CallbackData: "help"}},
			},
		})
		return err
	}

	onchainLoanID, ok := new(big.Int).SetString(loan.OnchainLoanID, 10)
	if !ok {
		return fmt.Errorf("invalid stored loan id %q", loan.OnchainLoanID)
	}
	info, err := u.onchain.LoanInfo(ctx, onchainLoanID)
	if err != nil {
		return err
	}

	if info.Status == blockchain.LoanStatusActive {
		_, err := u.bot.SendMessage(ctx, chatID, `⚠️ You already have an active loan!

Please repay your current loan before applying for a new one.`, &telegram.InlineKeyboardMarkup{
			InlineKeyboard: [][]telegram.InlineKeyboardButton{
				{{Text: "📊 View Active Loan", CallbackData: "viewActiveLoan"}},
				{{Text: "💼 Back to Wallet", CallbackData: "handleWallet"}},
			},
		})
		return err
	}

	status := entities.LoanStatusResolved
	if info.Status == blockchain.LoanStatusResolved {
		status = entities.LoanStatusDefaulted
	}
	if err := u.loans.UpdateStatus(ctx, loan.ID, status, ""); err != nil {
		return err
	}
	return u.handleGetLoan(ctx, chatID)
}

func (u *BotUsecase) handleSelectLoanAmount(ctx context.Context, chatID int64, amount, apr string) error {
	text := fmt.Sprintf(`📝 Select Loan Duration

Amount: %s
APR: %s%%

Choose your preferred duration:`, amount, apr)

	durations := []string{"7", "14", "30", "45", "60"}
	var rows [][]telegram.InlineKeyboardButton
	for _, d := range durations {
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text:         d + " Days",
			CallbackData: fmt.Sprintf("selectLoanDuration;%s;%s;%s", d, amount, apr),
		}})
	}
	rows = append(rows,
		[]telegram.InlineKeyboardButton{{Text: "❌ Cancel", CallbackData: "getLoan"}},
		[]telegram.InlineKeyboardButton{{Text: "❓ Help", CallbackData: "help"}},
	)

	_, err := u.bot.SendMessage(ctx, chatID, text, &telegram.InlineKeyboardMarkup{InlineKeyboard: rows})
	return err
}

// handleSelectLoanDuration draws the loan: terms are priced off the desk
// config, the collateral NFT from the user's verification backs the loan,
// and the contract-assigned loan record is persisted from the receipt.
func (u *BotUsecase) handleSelectLoanDuration(ctx context.Context, chatID int64, durationDays, amount string) error {
	wallet, err := u.wallets.GetByUserChatID(ctx, chatID)
	if err != nil {
		return err
	}
	verification, err := u.verifications.GetByUserChatID(ctx, chatID)
	if err != nil {
		return err
	}
	if !verification.CollateralNFTID.Valid {
		return domainerrors.ErrNotVerified
	}

	account, err := u.onchain.SmartAccount(wallet.PrivateKeyHex)
	if err != nil {
		return err
	}

	cfg, err := u.onchain.GetLoanConfig(ctx)
	if err != nil {
		return err
	}

	amountWei, err := ToWei(amount, u.erc20Decimals)
	if err != nil {
		return err
	}
	days, err := strconv.ParseFloat(durationDays, 64)
	if err != nil {
		return err
	}
	nftID, err := strconv.ParseUint(verification.CollateralNFTID.String, 10, 64)
	if err != nil {
		return err
	}

	rate := ComputeLoanInterest(cfg, amount, durationDays, u.erc20Decimals)
	params := blockchain.InitializeNewLoanParams{
		LendingDeskID:      u.onchain.LendingDeskID(),
		NFTID:              nftID,
		Duration:           uint32(math.Round(days * 24)),
		Amount:             amountWei,
		MaxInterestAllowed: uint32(math.Round(rate * 100)),
	}

	result, err := u.onchain.InitializeNewLoan(ctx, account, params)
	if err != nil {
		return err
	}
	if result.Loan == nil {
		return fmt.Errorf("loan initialized but event missing, tx %s", result.TxHash.Hex())
	}

	now := time.Now()
	loan := &entities.Loan{
		ID:            uuid.New(),
		OnchainLoanID: result.Loan.LoanID.String(),
		LendingDeskID: result.Loan.LendingDeskID.Uint64(),
		UserChatID:    chatID,
		Borrower:      result.Loan.Borrower.Hex(),
		NFTID:         result.Loan.NFTID.String(),
		Amount:        result.Loan.Amount.String(),
		DurationHours: uint32(result.Loan.Duration.Uint64()),
		Interest:      uint32(result.Loan.Interest.Uint64()),
		PlatformFee:   result.Loan.PlatformFee.String(),
		Status:        entities.LoanStatusActive,
		InitializeTx:  result.TxHash.Hex(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := u.loans.Create(ctx, loan); err != nil {
		return err
	}

	if _, err := u.bot.SendMessage(ctx, chatID, fmt.Sprintf(`✅ Successfully initialized loan

Transaction: %s`, result.TxHash.Hex()), nil); err != nil {
		return err
	}
	return u.handleWallet(ctx, chatID)
}

func (u *BotUsecase) handleRepayLoan(ctx context.Context, chatID int64) error {
	loan, err := u.loans.GetActiveByUserChatID(ctx, chatID)
	if err != nil {
		if isNotFound(err) {
			return domainerrors.ErrNoActiveLoan
		}
		return err
	}
	wallet, err := u.wallets.GetByUserChatID(ctx, chatID)
	if err != nil {
		return err
	}

	account, err := u.onchain.SmartAccount(wallet.PrivateKeyHex)
	if err != nil {
		return err
	}

	onchainLoanID, ok := new(big.Int).SetString(loan.OnchainLoanID, 10)
	if !ok {
		return fmt.Errorf("invalid stored loan id %q", loan.OnchainLoanID)
	}

	result, err := u.onchain.MakeLoanPayment(ctx, account, MakeLoanPaymentParams{
		LoanID:  onchainLoanID,
		Amount:  big.NewInt(0),
		Resolve: true,
	})
	if err != nil {
		return err
	}

	if err := u.loans.UpdateStatus(ctx, loan.ID, entities.LoanStatusResolved, result.TxHash.Hex()); err != nil {
		return err
	}

	if _, err := u.bot.SendMessage(ctx, chatID, fmt.Sprintf(`✅ Successfully repaid loan

Transaction: %s`, result.TxHash.Hex()), nil); err != nil {
		return err
	}
	return u.handleWallet(ctx, chatID)
}

func (u *BotUsecase) handleViewActiveLoan(ctx context.Context, chatID int64) error {
	loan, err := u.loans.GetActiveByUserChatID(ctx, chatID)
	if err != nil {
		if isNotFound(err) {
			return u.handleGetLoan(ctx, chatID)
		}
		return err
	}

	onchainLoanID, ok := new(big.Int).SetString(loan.OnchainLoanID, 10)
	if !ok {
		return fmt.Errorf("invalid stored loan id %q", loan.OnchainLoanID)
	}

	dueDate := loan.CreatedAt.UTC().Add(time.Duration(loan.DurationHours) * time.Hour)
	daysLeft := int(time.Until(dueDate).Hours() / 24)

	info, err := u.onchain.LoanInfo(ctx, onchainLoanID)
	if err != nil {
		return err
	}
	if info.Status != blockchain.LoanStatusActive {
		return u.handleGetLoan(ctx, chatID)
	}

	totalDue, err := u.onchain.GetLoanAmountDue(ctx, onchainLoanID)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(`📊 Active Loan Details

Amount: %s
Due Date: %s
Days Left: %d
Total Due: %s`,
		formatAmount(info.Amount, u.erc20Decimals),
		dueDate.Format("Mon Jan 02 2006"),
		daysLeft,
		formatAmount(totalDue, u.erc20Decimals),
	)

	_, err = u.bot.SendMessage(ctx, chatID, text, &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: "💰 Repay Loan", CallbackData: "repayLoan"}},
			{{Text: "💼 Back to Wallet", CallbackData: "handleWallet"}},
		},
	})
	return err
}

func (u *BotUsecase) handleHelp(ctx context.Context, chatID int64) error {
	_, err := u.bot.SendMessage(ctx, chatID, `Here's how it works:

1️⃣ Verify Identity: World ID biometric verification
2️⃣ Create Wallet: Automated setup with no gas fees
3️⃣ Get a Loan: Choose amount and duration
4️⃣ Receive Funds: Quick transfer to your wallet
5️⃣ Repay: Easy repayment through the bot

Available commands:
/start - Create wallet and begin
/verify - Complete verification
/wallet - View wallet details
/getloan - Get a Loan
/help - Show this message`, nil)
	return err
}

// formatAmount renders a wei amount with four decimal places for display
func formatAmount(value *big.Int, decimals int) string {
	if value == nil {
		return "0.0000"
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	out := new(big.Float).Quo(new(big.Float).SetInt(value), scale)
	return out.Text('f', 4)
}

func isNotFound(err error) bool {
	return errors.Is(err, domainerrors.ErrNotFound)
}
