package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainerrors "magnify-lend.backend/internal/domain/errors"
	"magnify-lend.backend/internal/infrastructure/blockchain"
	"magnify-lend.backend/internal/interfaces/http/middleware"
	"magnify-lend.backend/internal/interfaces/http/response"
	"magnify-lend.backend/internal/usecases"
)

// WorldIDHandler handles identity verification endpoints
type WorldIDHandler struct {
	verificationUsecase *usecases.VerificationUsecase
}

// NewWorldIDHandler creates a new World ID handler
func NewWorldIDHandler(verificationUsecase *usecases.VerificationUsecase) *WorldIDHandler {
	return &WorldIDHandler{verificationUsecase: verificationUsecase}
}

// VerifyPage returns the widget parameters for the verification web app
// GET /api/world-id/verify
func (h *WorldIDHandler) VerifyPage(c *gin.Context) {
	response.Success(c, http.StatusOK, h.verificationUsecase.RenderVerifyPage())
}

type verifyProofInput struct {
	Proof  blockchain.IdentityProof `json:"proof" binding:"required"`
	Signal string                   `json:"signal" binding:"required"`
}

// VerifyProof validates a submitted World ID proof for the authenticated
// web app user
// POST /api/world-id/verify-proof
func (h *WorldIDHandler) VerifyProof(c *gin.Context) {
	userValue, exists := c.Get(middleware.WebAppUserKey)
	if !exists {
		response.Error(c, domainerrors.Unauthorized("missing web app user"))
		return
	}
	user := userValue.(*middleware.WebAppUser)

	var input verifyProofInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	err := h.verificationUsecase.VerifyProof(c.Request.Context(), user.ID, input.Proof, input.Signal)
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, gin.H{"verified": true})
	case errors.Is(err, domainerrors.ErrInvalidSignal):
		response.Error(c, domainerrors.BadRequest("invalid signal"))
	case errors.Is(err, domainerrors.ErrAlreadyVerified):
		response.Error(c, domainerrors.BadRequest("account has already been verified"))
	case errors.Is(err, domainerrors.ErrNullifierReused):
		response.Error(c, domainerrors.BadRequest("orb cannot be used more than once"))
	case errors.Is(err, domainerrors.ErrProofRejected):
		response.Error(c, domainerrors.BadRequest("proof verification failed"))
	case errors.Is(err, domainerrors.ErrNotFound):
		response.Error(c, domainerrors.NotFound("user not found"))
	default:
		response.Error(c, err)
	}
}
