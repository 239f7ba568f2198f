// Package api is the HTTP front door of the gasless server. It shapes request
// bodies, applies defaults, and maps mediator outcomes onto status codes.
package api

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ez-dapp/gasless-server/internal/auth"
	"github.com/ez-dapp/gasless-server/internal/voucher"
)

// Mediator is satisfied by *voucher.Mediator.
type Mediator interface {
	Issue(ctx context.Context, req voucher.IssueRequest) (voucher.ID, error)
	Status(ctx context.Context, id string) (*voucher.Status, error)
	StatusForProgram(ctx context.Context, account, program string) (*voucher.ProgramStatus, error)
	Prolong(ctx context.Context, req voucher.ProlongRequest) error
	Revoke(ctx context.Context, id, account string) error
}

// Settings carries the per-deployment values the routes need.
type Settings struct {
	ProgramID          string
	DefaultAmount      *big.Int
	DefaultDurationSec uint64
}

// Handler wires the voucher routes onto a Gin engine.
type Handler struct {
	med Mediator
	set Settings
	log *zap.Logger
}

func NewHandler(med Mediator, set Settings, log *zap.Logger) *Handler {
	if set.DefaultAmount == nil {
		set.DefaultAmount = big.NewInt(voucher.DefaultAmount)
	}
	if set.DefaultDurationSec == 0 {
		set.DefaultDurationSec = voucher.DefaultDurationSec
	}
	return &Handler{med: med, set: set, log: log}
}

// Register mounts all routes. When guard is non-nil the administrative routes
// require an operator signature.
//
// GET /gasless/voucher/:id/status serves two lookups: by voucher id, and by
// program when the account query parameter is present.
func (h *Handler) Register(r gin.IRouter, guard *auth.Guard) {
	r.GET("/gasless/voucher/:id/status", h.handleStatus)
	r.POST("/gasless/voucher/request", h.handleRequest)

	admin := func(action string, fn gin.HandlerFunc) []gin.HandlerFunc {
		if guard == nil {
			return []gin.HandlerFunc{fn}
		}
		return []gin.HandlerFunc{guard.Require(action), fn}
	}
	r.POST("/issue", admin("issue", h.handleIssue)...)
	r.POST("/prolong", admin("prolong", h.handleProlong)...)
	r.POST("/revoke", admin("revoke", h.handleRevoke)...)
}

// ── Status ───────────────────────────────────────────────────────────────────

func (h *Handler) handleStatus(c *gin.Context) {
	if account, ok := c.GetQuery("account"); ok {
		h.handleProgramStatus(c, c.Param("id"), account)
		return
	}

	// An unknown id answers 404 rather than a generic 500 so clients can
	// tell a missing voucher from a registry failure.
	st, err := h.med.Status(c.Request.Context(), c.Param("id"))
	observe("status", err)
	if err != nil {
		h.fail(c, "status", err, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) handleProgramStatus(c *gin.Context, program, account string) {
	if account == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid account"})
		return
	}
	st, err := h.med.StatusForProgram(c.Request.Context(), account, program)
	observe("status_for_program", err)
	if err != nil {
		h.fail(c, "status_for_program", err, "Internal error")
		return
	}
	c.JSON(http.StatusOK, st)
}

// ── Issue ────────────────────────────────────────────────────────────────────

// handleRequest is the self-service issue route: amount and duration are
// optional and default from Settings.
func (h *Handler) handleRequest(c *gin.Context) {
	id, err := h.issue(c, true)
	observe("request", err)
	if err != nil {
		h.log.Warn("voucher request failed", zap.Error(err))
		c.JSON(statusOf(err), gin.H{"error": "Failed to create voucher", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, voucherRequestResponse{VoucherID: id.Hex()})
}

func (h *Handler) handleIssue(c *gin.Context) {
	id, err := h.issue(c, false)
	observe("issue", err)
	if err != nil {
		h.fail(c, "issue", err, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, id.Hex())
}

func (h *Handler) issue(c *gin.Context, withDefaults bool) (voucher.ID, error) {
	var body issueBody
	if err := bindBody(c, &body); err != nil {
		return voucher.ID{}, err
	}

	var defAmount *big.Int
	var defDuration uint64
	if withDefaults {
		defAmount = new(big.Int).Set(h.set.DefaultAmount)
		defDuration = h.set.DefaultDurationSec
	}
	amount, err := bigField("amount", body.Amount, defAmount)
	if err != nil {
		return voucher.ID{}, err
	}
	duration, err := secondsField("durationInSec", body.DurationInSec, defDuration)
	if err != nil {
		return voucher.ID{}, err
	}

	return h.med.Issue(c.Request.Context(), voucher.IssueRequest{
		Account:     string(body.Account),
		Program:     h.set.ProgramID,
		Amount:      amount,
		DurationSec: duration,
	})
}

// ── Prolong / Revoke ─────────────────────────────────────────────────────────

func (h *Handler) handleProlong(c *gin.Context) {
	err := h.prolong(c)
	observe("prolong", err)
	if err != nil {
		h.fail(c, "prolong", err, "Internal server error")
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) prolong(c *gin.Context) error {
	var body prolongBody
	if err := bindBody(c, &body); err != nil {
		return err
	}
	balance, err := bigField("balance", body.Balance, nil)
	if err != nil {
		return err
	}
	duration, err := secondsField("durationInSec", body.DurationInSec, 0)
	if err != nil {
		return err
	}
	return h.med.Prolong(c.Request.Context(), voucher.ProlongRequest{
		VoucherID:   string(body.VoucherID),
		Account:     string(body.Account),
		Balance:     balance,
		DurationSec: duration,
	})
}

func (h *Handler) handleRevoke(c *gin.Context) {
	var body revokeBody
	err := bindBody(c, &body)
	if err == nil {
		err = h.med.Revoke(c.Request.Context(), string(body.VoucherID), string(body.Account))
	}
	observe("revoke", err)
	if err != nil {
		h.fail(c, "revoke", err, "Internal server error")
		return
	}
	c.Status(http.StatusOK)
}

// MaxBodyBytes caps request bodies on every voucher route.
const MaxBodyBytes = 64 << 10

func bindBody(c *gin.Context, v any) error {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
	if err := c.ShouldBindJSON(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return &voucher.InputError{Field: "body", Value: "too large", Reason: fmt.Sprintf("limit %d bytes", MaxBodyBytes)}
		}
		return &voucher.InputError{Field: "body", Value: err.Error()}
	}
	return nil
}

// ── Errors ───────────────────────────────────────────────────────────────────

func statusOf(err error) int {
	switch {
	case errors.Is(err, voucher.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, voucher.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, voucher.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err and writes the error response. Client errors carry the
// error message; registry failures carry generic plus the cause in details.
func (h *Handler) fail(c *gin.Context, op string, err error, generic string) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("op", op), zap.Error(err))
	} else {
		h.log.Info("request rejected", zap.String("op", op), zap.Error(err))
	}

	var regErr *voucher.RegistryError
	switch {
	case status < http.StatusInternalServerError:
		c.JSON(status, gin.H{"error": err.Error()})
	case errors.As(err, &regErr):
		c.JSON(status, gin.H{"error": generic, "details": regErr.Err.Error()})
	default:
		c.JSON(status, gin.H{"error": generic})
	}
}
