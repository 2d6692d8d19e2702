// This is the http surface of the mint server.
// It drives the mint manager and publishes asset state on the routes.

package reporter

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	logger "github.com/sirupsen/logrus"

	"github.com/hakulabs/mintd/mintmgr"
	"github.com/hakulabs/mintd/state"
)

const (
	ROUTE_HELLO       = "/hello"
	ROUTE_MINT        = "/mint"
	ROUTE_MINT_FAILED = "/mint/failed"
	ROUTE_MINT_STATUS = "/mint/status"
	ROUTE_MINTED      = "/minted"

	mintedPageSize = 10
)

type MintRequest struct {
	UserAddress string `json:"user_address" binding:"required"`
	NftID       string `json:"nft_id" binding:"required"`
}

type MintFailedRequest struct {
	UserAddress string `json:"user_address" binding:"required"`
	NftID       string `json:"nft_id" binding:"required"`
	Error       string `json:"error"`
}

type HttpReporter struct {
	serverIP   string // listen ip
	serverPort string // listen port

	// upstream
	mgr     *mintmgr.Manager
	statedb *state.StateDB
}

func NewHttpReporter(serverIP string, serverPort string, mgr *mintmgr.Manager, statedb *state.StateDB) *HttpReporter {
	return &HttpReporter{
		serverIP:   serverIP,
		serverPort: serverPort,
		mgr:        mgr,
		statedb:    statedb,
	}
}

// Hook up routes & handlers
func (h *HttpReporter) SetupRouter() *gin.Engine {
	router := gin.Default()

	router.GET(ROUTE_HELLO, Hello)
	router.POST(ROUTE_MINT, h.Mint)
	router.POST(ROUTE_MINT_FAILED, h.MintFailed)
	router.GET(ROUTE_MINT_STATUS, h.MintStatus)
	router.GET(ROUTE_MINTED, h.Minted)

	return router
}

// Hook up router & ip:port
func (h *HttpReporter) Run() {
	router := h.SetupRouter()
	address := h.serverIP + ":" + h.serverPort
	if err := router.Run(address); err != nil {
		panic(err)
	}
}

func Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "world",
	})
}

// Mint runs a server-paid mint for the asset. Gate and state rejections
// are normal negative outcomes, not http errors.
func (h *HttpReporter) Mint(c *gin.Context) {
	var req MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assetID, err := strconv.ParseUint(req.NftID, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid nft_id"})
		return
	}

	txHash, err := h.mgr.Apply(c.Request.Context(), assetID, req.UserAddress)
	if err != nil {
		message := mintRejectionMessage(req.NftID, err)
		if message == "" {
			logger.Errorf("mint apply failed: asset=%s err=%v", req.NftID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":      false,
			"message":      message,
			"nft_id":       req.NftID,
			"user_address": req.UserAddress,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Mint transaction submitted successfully",
		"tx_hash":      txHash.String(),
		"nft_id":       req.NftID,
		"user_address": req.UserAddress,
	})
}

// mintRejectionMessage maps the definitive and retryable apply failures
// to a user-facing message. Unknown errors map to "" and become a 500.
func mintRejectionMessage(nftID string, err error) string {
	switch {
	case errors.Is(err, state.ErrAlreadyApplying):
		return "NFT " + nftID + " is already being minted, please wait"
	case errors.Is(err, state.ErrAlreadyMinted):
		return "NFT " + nftID + " has already been minted"
	case errors.Is(err, state.ErrNotFound):
		return "NFT " + nftID + " not found"
	case errors.Is(err, mintmgr.ErrNotEligible):
		return "Cannot mint: NFT " + nftID + " either doesn't belong to you or its chips are incomplete"
	case errors.Is(err, mintmgr.ErrTransactionFailed):
		return "Failed to mint: transaction reverted"
	default:
		return ""
	}
}

// MintFailed is the frontend's notice that a self-paid mint did not go
// through; the asset record is rolled back. Rolling back an attempt that
// is already resolved is a soft failure.
func (h *HttpReporter) MintFailed(c *gin.Context) {
	var req MintFailedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assetID, err := strconv.ParseUint(req.NftID, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid nft_id"})
		return
	}

	logger.WithFields(logger.Fields{
		"asset": req.NftID,
		"owner": req.UserAddress,
		"cause": req.Error,
	}).Warn("mint failed notification")

	switch err := h.mgr.Machine().Rollback(assetID, req.UserAddress); {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Status rolled back successfully",
		})
	case errors.Is(err, state.ErrNotApplying), errors.Is(err, state.ErrNotFound):
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "Nothing to roll back",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// MintStatus publishes the asset's stage.
func (h *HttpReporter) MintStatus(c *gin.Context) {
	nftID := c.Query("nft_id")
	assetID, err := strconv.ParseUint(nftID, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid nft_id"})
		return
	}

	status, found, err := h.statedb.GetAssetStatus(assetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "No asset found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nft_id": nftID,
		"status": string(status),
	})
}

// Minted publishes the latest minted assets.
func (h *HttpReporter) Minted(c *gin.Context) {
	assets, err := h.statedb.GetMintedAssets(mintedPageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data := make([]gin.H, 0, len(assets))
	for _, a := range assets {
		data = append(data, gin.H{
			"nft_id":       a.ID,
			"user_address": a.Owner,
			"token_id":     a.TokenID,
			"block_number": a.BlockNumber,
			"token_url":    a.TokenURL,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": data})
}
