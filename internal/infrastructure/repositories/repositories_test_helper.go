package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createUserTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE users (
		chat_id INTEGER PRIMARY KEY,
		username TEXT,
		first_name TEXT,
		nullifier_hash TEXT UNIQUE,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createWalletTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE wallets (
		id TEXT PRIMARY KEY,
		user_chat_id INTEGER NOT NULL UNIQUE,
		owner_address TEXT NOT NULL,
		smart_account_address TEXT NOT NULL UNIQUE,
		private_key_hex TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createVerificationTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE verifications (
		id TEXT PRIMARY KEY,
		user_chat_id INTEGER NOT NULL,
		nullifier_hash TEXT NOT NULL UNIQUE,
		merkle_root TEXT NOT NULL,
		proof TEXT NOT NULL,
		verification_level TEXT NOT NULL,
		signal TEXT NOT NULL,
		mint_tx_hash TEXT,
		sbt_id TEXT,
		collateral_nft_id TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createLoanTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE loans (
		id TEXT PRIMARY KEY,
		onchain_loan_id TEXT NOT NULL UNIQUE,
		lending_desk_id INTEGER NOT NULL,
		user_chat_id INTEGER NOT NULL,
		borrower TEXT NOT NULL,
		nft_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		duration_hours INTEGER NOT NULL,
		interest INTEGER NOT NULL,
		platform_fee TEXT NOT NULL,
		status TEXT NOT NULL,
		initialize_tx TEXT NOT NULL,
		last_payment_tx TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}
