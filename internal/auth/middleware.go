// Package auth guards the state-changing voucher routes. Operators sign a
// short-lived request envelope with their wallet key (EIP-191); the guard
// checks the signer against the configured operator set, binds the envelope
// to the route and body, and burns the nonce in Redis.
package auth

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SignedRequest is the JSON payload inside X-Signed-Message (fields sorted).
// Payload, when present, must equal the request body.
type SignedRequest struct {
	Action    string          `json:"action"`
	ExpiresAt int64           `json:"expires_at"`
	Nonce     string          `json:"nonce"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	maxFutureWindow = 5 * time.Minute
	maxBodyBytes    = 64 << 10
	nonceKeyPrefix  = "gasless:nonce:"

	// ContextOperator is the gin context key holding the verified operator.
	ContextOperator = "operator_address"
)

// Guard verifies operator signatures.
type Guard struct {
	rdb       *redis.Client
	operators map[common.Address]struct{}
	now       func() time.Time
	log       *zap.Logger
}

func NewGuard(rdb *redis.Client, operators []common.Address, log *zap.Logger) *Guard {
	set := make(map[common.Address]struct{}, len(operators))
	for _, op := range operators {
		set[op] = struct{}{}
	}
	return &Guard{rdb: rdb, operators: set, now: time.Now, log: log}
}

// Require returns a Gin handler that admits only requests signed by an
// operator for the given action.
func (g *Guard) Require(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		walletAddr := c.GetHeader(HeaderAddress)
		signedMsgB64 := c.GetHeader(HeaderMessage)
		sigHex := c.GetHeader(HeaderSignature)

		if walletAddr == "" || signedMsgB64 == "" || sigHex == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing auth headers"})
			return
		}

		msgBytes, err := base64.StdEncoding.DecodeString(signedMsgB64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid X-Signed-Message encoding"})
			return
		}

		var req SignedRequest
		if err := json.Unmarshal(msgBytes, &req); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signed message JSON"})
			return
		}
		if req.Action != action {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "signed action does not match route"})
			return
		}
		if req.Nonce == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing nonce"})
			return
		}

		now := g.now().Unix()
		if req.ExpiresAt <= now {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "request expired"})
			return
		}
		if req.ExpiresAt > now+int64(maxFutureWindow.Seconds()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "expires_at too far in future"})
			return
		}

		if !strings.HasPrefix(sigHex, "0x") {
			sigHex = "0x" + sigHex
		}
		sig, err := hexutil.Decode(sigHex)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature hex"})
			return
		}
		recovered, err := Recover(msgBytes, sig)
		if err != nil || !strings.EqualFold(recovered.Hex(), walletAddr) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		if _, ok := g.operators[recovered]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "signer is not an operator"})
			return
		}

		if len(req.Payload) > 0 {
			body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
			if err != nil {
				var tooBig *http.MaxBytesError
				if errors.As(err, &tooBig) {
					c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
					return
				}
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
			if !sameJSON(req.Payload, body) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "signed payload does not match body"})
				return
			}
		}

		// Nonce dedup via Redis SET NX
		ttl := time.Duration(req.ExpiresAt-now) * time.Second
		set, err := g.rdb.SetNX(c.Request.Context(), nonceKeyPrefix+req.Nonce, recovered.Hex(), ttl).Result()
		if err != nil {
			g.log.Error("auth: nonce check failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !set {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "nonce already used"})
			return
		}

		c.Set(ContextOperator, recovered.Hex())
		c.Next()
	}
}

func sameJSON(a, b []byte) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}
