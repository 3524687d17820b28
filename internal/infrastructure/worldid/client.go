package worldid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"magnify-lend.backend/internal/infrastructure/blockchain"
	"magnify-lend.backend/pkg/logger"
)

// Client verifies World ID proofs against the developer portal's cloud
// verification endpoint.
type Client struct {
	appID     string
	action    string
	verifyURL string
	http      *http.Client
}

// NewClient creates a new World ID verification client
func NewClient(appID, action, verifyURL string) *Client {
	return &Client{
		appID:     appID,
		action:    action,
		verifyURL: verifyURL,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

type verifyRequest struct {
	NullifierHash     string `json:"nullifier_hash"`
	MerkleRoot        string `json:"merkle_root"`
	Proof             string `json:"proof"`
	VerificationLevel string `json:"verification_level"`
	Action            string `json:"action"`
	SignalHash        string `json:"signal_hash"`
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Detail  string `json:"detail"`
}

// VerifyProof submits a zero-knowledge proof for cloud verification.
// It returns (false, nil) when the portal rejects the proof and an error
// only for transport or protocol failures.
func (c *Client) VerifyProof(ctx context.Context, proof blockchain.IdentityProof, signal string) (bool, error) {
	body, err := json.Marshal(verifyRequest{
		NullifierHash:     proof.NullifierHash,
		MerkleRoot:        proof.MerkleRoot,
		Proof:             proof.Proof,
		VerificationLevel: proof.VerificationLevel,
		Action:            c.action,
		SignalHash:        hashToField(signal),
	})
	if err != nil {
		return false, err
	}

	url := fmt.Sprintf("%s/%s", c.verifyURL, c.appID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("world id verify request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}

	var result verifyResponse
	if err := json.Unmarshal(payload, &result); err != nil {
		return false, fmt.Errorf("world id verify response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !result.Success {
		logger.Warn(ctx, "world id proof rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("code", result.Code),
			zap.String("detail", result.Detail),
		)
		return false, nil
	}
	return true, nil
}

// hashToField maps an arbitrary signal onto the proving field the same way
// the widget does: keccak256 of the raw bytes, shifted right by one byte.
func hashToField(signal string) string {
	hash := new(big.Int).SetBytes(crypto.Keccak256([]byte(signal)))
	hash.Rsh(hash, 8)
	return fmt.Sprintf("0x%064x", hash)
}
