package auth

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ContextKeyPrincipal is the gin context key holding the authenticated
// caller address. The escrow core only ever compares this principal against
// pool admins and receipt owners; it never authenticates.
const ContextKeyPrincipal = "principal"

// messagePrefix is the domain separator clients sign over.
const messagePrefix = "SurgeFund Auth"

// Middleware resolves each request to an authenticated principal address
// from a signed token.
type Middleware struct {
	nonceMu     sync.Mutex
	nonceStore  map[string]time.Time
	nonceWindow time.Duration
}

// NewMiddleware creates the authentication middleware
func NewMiddleware() *Middleware {
	return &Middleware{
		nonceStore:  make(map[string]time.Time),
		nonceWindow: 5 * time.Minute,
	}
}

// RequireAuth rejects requests without a valid signature token and stores
// the recovered principal address in the context.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
				"code":  "AUTH_HEADER_MISSING",
			})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization format",
				"code":  "INVALID_AUTH_FORMAT",
			})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")

		principal, err := m.verifySignatureToken(token)
		if err != nil {
			logrus.WithError(err).Warn("Authentication failed")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication failed",
				"code":  "AUTH_FAILED",
			})
			c.Abort()
			return
		}

		c.Set(ContextKeyPrincipal, principal)
		c.Next()
	}
}

// Principal returns the authenticated caller address from the context.
func Principal(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextKeyPrincipal)
	if !ok {
		return "", false
	}
	addr, ok := v.(string)
	return addr, ok
}

// verifySignatureToken verifies a token of the form
// "signature:nonce:timestamp:address" and returns the proven address.
func (m *Middleware) verifySignatureToken(token string) (string, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 4 {
		return "", fmt.Errorf("invalid token format")
	}

	signature := parts[0]
	nonce := parts[1]
	timestampStr := parts[2]
	address := parts[3]

	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid address format")
	}

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid timestamp")
	}

	now := time.Now().Unix()
	if now-timestamp > 300 || timestamp > now+60 {
		return "", fmt.Errorf("timestamp out of valid range")
	}

	m.nonceMu.Lock()
	lastUsed, seen := m.nonceStore[nonce]
	if seen && time.Since(lastUsed) < m.nonceWindow {
		m.nonceMu.Unlock()
		return "", fmt.Errorf("nonce already used")
	}
	m.nonceStore[nonce] = time.Now()
	m.cleanupExpiredNoncesLocked()
	m.nonceMu.Unlock()

	message := fmt.Sprintf("%s:%s:%d", messagePrefix, nonce, timestamp)
	if err := verifyEthereumSignature(message, signature, address); err != nil {
		return "", fmt.Errorf("signature verification failed: %w", err)
	}

	return common.HexToAddress(address).Hex(), nil
}

// verifyEthereumSignature recovers the signer of an eth_sign style message
// and compares it to the expected address.
func verifyEthereumSignature(message, signature, expectedAddress string) error {
	signature = strings.TrimPrefix(signature, "0x")

	sigBytes, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("invalid signature encoding")
	}
	if len(sigBytes) != 65 {
		return fmt.Errorf("invalid signature length")
	}

	prefixedMessage := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256Hash([]byte(prefixedMessage))

	pubKey, err := crypto.SigToPub(hash.Bytes(), sigBytes)
	if err != nil {
		return fmt.Errorf("failed to recover public key")
	}

	recoveredAddress := crypto.PubkeyToAddress(*pubKey)
	if !strings.EqualFold(recoveredAddress.Hex(), expectedAddress) {
		return fmt.Errorf("signature address mismatch")
	}

	return nil
}

// SignToken builds an auth token for the given private key. Used by client
// tooling and tests.
func SignToken(privKeyHex, nonce string, timestamp int64) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privKeyHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid private key: %w", err)
	}

	message := fmt.Sprintf("%s:%s:%d", messagePrefix, nonce, timestamp)
	prefixedMessage := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256Hash([]byte(prefixedMessage))

	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return "", err
	}

	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	return fmt.Sprintf("0x%s:%s:%d:%s", hex.EncodeToString(sig), nonce, timestamp, address), nil
}

// cleanupExpiredNoncesLocked removes expired nonces; callers hold nonceMu.
func (m *Middleware) cleanupExpiredNoncesLocked() {
	now := time.Now()
	for nonce, timestamp := range m.nonceStore {
		if now.Sub(timestamp) > m.nonceWindow {
			delete(m.nonceStore, nonce)
		}
	}
}

// SecurityHeaders middleware adds security headers
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// SecureCORS middleware with an origin whitelist
func SecureCORS(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		for _, allowed := range allowedOrigins {
			if origin == allowed {
				c.Header("Access-Control-Allow-Origin", origin)
				break
			}
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
