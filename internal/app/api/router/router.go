package router

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gumdrop/internal/db"
	"gumdrop/internal/domain/campaign"
	"gumdrop/internal/domain/drop"
	"gumdrop/internal/notify"
	"gumdrop/internal/observability/metrics"
)

// Closer closes drops and reports their history.
type Closer interface {
	CloseDrop(ctx context.Context, in campaign.CloseInput) (*campaign.CloseResult, error)
	CloseHistory(ctx context.Context, base string, limit int) ([]db.CloseAttempt, error)
}

// Batches accepts notify batches and serves exported wallet lists.
type Batches interface {
	Enqueue(ctx context.Context, req campaign.NotifyRequest) (string, error)
	WalletList(ctx context.Context, batchID string) ([]notify.WalletEntry, error)
}

// Dependencies enumerates services required by API handlers.
type Dependencies struct {
	Closer  Closer
	Batches Batches
	Cluster string
}

// New builds a gin.Engine with all routes registered.
func New(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), metrics.GinMiddleware())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h := &handler{closer: deps.Closer, batches: deps.Batches, cluster: deps.Cluster}

	router.POST("/drops/close", h.closeDrop)
	router.POST("/drops/notify", h.notifyClaimants)
	router.GET("/drops/:base/closes", h.closeHistory)
	router.GET("/batches/:id/wallets", h.walletList)

	return router
}

type handler struct {
	closer  Closer
	batches Batches
	cluster string
}

// closeDropRequest carries the base keypair as the 64-number JSON array solana-keygen writes.
type closeDropRequest struct {
	BaseSecret  []int  `json:"base_secret" binding:"required"`
	ClaimMethod string `json:"claim_method" binding:"required"`
	CandyConfig string `json:"candy_config"`
	CandyUUID   string `json:"candy_uuid"`
	MasterMint  string `json:"master_mint"`
}

type closeDropResponse struct {
	Status      string `json:"status"`
	TxID        string `json:"tx_id,omitempty"`
	ExplorerURL string `json:"explorer_url,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Attempts    int    `json:"attempts"`
}

type notifyRequest struct {
	Channel     string                `json:"channel" binding:"required"`
	Source      string                `json:"source"`
	Drop        notify.DropInfo       `json:"drop" binding:"required"`
	ClaimMethod string                `json:"claim_method"`
	Claimants   []notify.ClaimantInfo `json:"claimants" binding:"required"`
}

func (h *handler) closeDrop(c *gin.Context) {
	var req closeDropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	base, err := parseBaseSecret(req.BaseSecret)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	method, err := drop.ParseClaimMethod(req.ClaimMethod, drop.MethodParams{
		CandyConfig: req.CandyConfig,
		CandyUUID:   req.CandyUUID,
		MasterMint:  req.MasterMint,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.closer.CloseDrop(c.Request.Context(), campaign.CloseInput{Base: base, Method: method})
	if err != nil {
		var be *drop.BuildError
		switch {
		case errors.As(err, &be), errors.Is(err, campaign.ErrInvalidBase):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, campaign.ErrCloseInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	if result.Status == campaign.StatusAlreadyClosed {
		c.JSON(http.StatusOK, closeDropResponse{Status: result.Status, Reason: result.Reason})
		return
	}
	if result.Status != campaign.StatusSucceeded {
		c.JSON(http.StatusBadGateway, closeDropResponse{Status: result.Status, Reason: result.Reason, Attempts: result.Attempts})
		return
	}
	c.JSON(http.StatusOK, closeDropResponse{
		Status:      result.Status,
		TxID:        result.TxID,
		ExplorerURL: explorerURL(result.TxID, h.cluster),
		Attempts:    result.Attempts,
	})
}

func (h *handler) notifyClaimants(c *gin.Context) {
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in := campaign.NotifyRequest{
		Channel:   notify.ChannelKind(req.Channel),
		Source:    req.Source,
		Drop:      req.Drop,
		Claimants: req.Claimants,
	}
	if req.ClaimMethod != "" {
		method, err := drop.MethodKind(req.ClaimMethod)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		in.Method = method
	}

	id, err := h.batches.Enqueue(c.Request.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, notify.ErrUnknownChannel),
			errors.Is(err, notify.ErrUnknownDropType),
			errors.Is(err, notify.ErrDropTypeMismatch),
			errors.Is(err, campaign.ErrNoClaimants):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue batch"})
		}
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"batch_id": id})
}

func (h *handler) closeHistory(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	attempts, err := h.closer.CloseHistory(c.Request.Context(), c.Param("base"), limit)
	if err != nil {
		if errors.Is(err, campaign.ErrInvalidBase) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if attempts == nil {
		attempts = []db.CloseAttempt{}
	}
	c.JSON(http.StatusOK, gin.H{"base": c.Param("base"), "attempts": attempts})
}

func (h *handler) walletList(c *gin.Context) {
	id := c.Param("id")
	wallets, err := h.batches.WalletList(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, campaign.ErrInvalidBatchID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(wallets) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no wallet list for batch"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch_id": id, "wallets": wallets})
}

// parseBaseSecret accepts a 64-byte ed25519 secret key (seed followed by public key).
func parseBaseSecret(raw []int) (solana.PrivateKey, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("base_secret must hold %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	secret := make([]byte, len(raw))
	for i, v := range raw {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("base_secret[%d] out of byte range", i)
		}
		secret[i] = byte(v)
	}
	derived := ed25519.NewKeyFromSeed(secret[:ed25519.SeedSize])
	if !derived.Equal(ed25519.PrivateKey(secret)) {
		return nil, errors.New("base_secret public half does not match its seed")
	}
	return solana.PrivateKey(secret), nil
}

func explorerURL(sig, cluster string) string {
	return fmt.Sprintf("https://explorer.solana.com/tx/%s?cluster=%s", sig, cluster)
}
