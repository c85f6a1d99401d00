// Package http exposes the vault boundary operations over a JSON HTTP API.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	settler "github.com/mandala-foundation/settler/go"
)

// Server wraps a VaultService behind a gin router.
type Server struct {
	service *settler.VaultService
	engine  *gin.Engine
	logger  zerolog.Logger
}

// ServerOption configures the server
type ServerOption func(*Server)

// WithLogger sets the request logger
func WithLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer builds the router over a vault service.
func NewServer(service *settler.VaultService, opts ...ServerOption) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		service: service,
		engine:  gin.New(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

// Handler returns the underlying http.Handler for mounting.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	v1 := s.engine.Group("/v1")
	v1.POST("/vaults", s.initializeVault)
	v1.GET("/vaults/:id", s.getVault)
	v1.POST("/vaults/:id/deposits", s.addLiquidity)
	v1.POST("/vaults/:id/settlements", s.settleMicropayment)
	v1.POST("/vaults/:id/rebalances", s.rebalanceMandala)
	v1.PUT("/vaults/:id/config", s.updateVaultConfig)
	v1.POST("/vaults/:id/bridges", s.initiateBridge)
	v1.POST("/emergence", s.logEmergence)
}

type initializeVaultRequest struct {
	Owner      string `json:"owner" binding:"required"`
	DecayRatio uint64 `json:"decayRatio" binding:"required"`
	MaxDepth   int    `json:"maxDepth" binding:"required"`
	FeeSink    string `json:"feeSink"`
}

func (s *Server) initializeVault(c *gin.Context) {
	var req initializeVaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	id, err := s.service.InitializeVault(c.Request.Context(), settler.VaultConfig{
		Owner:      req.Owner,
		DecayRatio: req.DecayRatio,
		MaxDepth:   req.MaxDepth,
		FeeSink:    req.FeeSink,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"vaultId": string(id)})
}

func (s *Server) getVault(c *gin.Context) {
	vault, err := s.service.GetVault(c.Request.Context(), settler.VaultID(c.Param("id")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, vault)
}

type amountRequest struct {
	Amount uint64 `json:"amount" binding:"required"`
}

func (s *Server) addLiquidity(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	if err := s.service.AddLiquidity(c.Request.Context(), settler.VaultID(c.Param("id")), req.Amount); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type settleRequest struct {
	Amount     uint64 `json:"amount" binding:"required"`
	Recipient  string `json:"recipient" binding:"required"`
	PaymentRef string `json:"paymentRef" binding:"required"`
	Memo       string `json:"memo"`
	TimeoutMS  int64  `json:"timeoutMs"`
}

func (s *Server) settleMicropayment(c *gin.Context) {
	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	record, err := s.service.SettleMicropayment(c.Request.Context(), settler.VaultID(c.Param("id")), settler.SettleParams{
		Amount:     req.Amount,
		Recipient:  req.Recipient,
		PaymentRef: req.PaymentRef,
		Memo:       req.Memo,
		Timeout:    time.Duration(req.TimeoutMS) * time.Millisecond,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

type rebalanceRequest struct {
	FeeAmount uint64 `json:"feeAmount" binding:"required"`
}

func (s *Server) rebalanceMandala(c *gin.Context) {
	var req rebalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	allocations, err := s.service.RebalanceMandala(c.Request.Context(), settler.VaultID(c.Param("id")), req.FeeAmount)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allocations": allocations})
}

type updateConfigRequest struct {
	Caller   string `json:"caller" binding:"required"`
	NewRatio uint64 `json:"newRatio" binding:"required"`
	NewDepth int    `json:"newDepth" binding:"required"`
}

func (s *Server) updateVaultConfig(c *gin.Context) {
	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	err := s.service.UpdateVaultConfig(c.Request.Context(), settler.VaultID(c.Param("id")), req.Caller, req.NewRatio, req.NewDepth)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type bridgeRequest struct {
	Amount      uint64 `json:"amount" binding:"required"`
	TargetChain string `json:"targetChain" binding:"required"`
}

func (s *Server) initiateBridge(c *gin.Context) {
	var req bridgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	err := s.service.InitiateBridge(c.Request.Context(), settler.VaultID(c.Param("id")), req.Amount, req.TargetChain)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

type emergenceRequest struct {
	RecursionDepth int    `json:"recursionDepth"`
	NoveltyScore   uint64 `json:"noveltyScore"`
}

func (s *Server) logEmergence(c *gin.Context) {
	var req emergenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	if err := s.service.LogEmergence(c.Request.Context(), req.RecursionDepth, req.NoveltyScore); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"code": "bad_request", "message": err.Error()})
}

// writeError maps vault error codes onto HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	ve, ok := err.(*settler.VaultError)
	if !ok {
		s.logger.Error().Err(err).Msg("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "internal error"})
		return
	}
	c.JSON(statusForCode(ve.Code), ve)
}

func statusForCode(code string) int {
	switch code {
	case settler.ErrCodeInvalidRatio, settler.ErrCodeInvalidDepth, settler.ErrCodeInvalidAmount,
		settler.ErrCodeInvalidOwner:
		return http.StatusBadRequest
	case settler.ErrCodeVaultNotFound:
		return http.StatusNotFound
	case settler.ErrCodeAlreadyInitialized:
		return http.StatusConflict
	case settler.ErrCodeInsufficientLiquidity, settler.ErrCodeOverflow, settler.ErrCodeManifoldOverflow:
		return http.StatusUnprocessableEntity
	case settler.ErrCodeUnauthorized:
		return http.StatusForbidden
	case settler.ErrCodeExecutorFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
