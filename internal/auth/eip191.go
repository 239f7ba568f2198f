package auth

import (
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Request headers carrying an operator signature.
const (
	HeaderAddress   = "X-Wallet-Address"
	HeaderMessage   = "X-Signed-Message"
	HeaderSignature = "X-Wallet-Signature"
)

// HashMessage constructs the EIP-191 prefixed hash:
// keccak256("\x19Ethereum Signed Message:\n" + len(msg) + msg)
func HashMessage(msg []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(msg))
	return crypto.Keccak256([]byte(prefix), msg)
}

// Recover extracts the signer address from an EIP-191 signature.
// sig must be 65 bytes (R || S || V), with V in {0,1} or {27,28}.
func Recover(msg []byte, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, errors.New("invalid signature length")
	}
	sigCopy := make([]byte, crypto.SignatureLength)
	copy(sigCopy, sig)
	if sigCopy[crypto.RecoveryIDOffset] >= 27 {
		sigCopy[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(HashMessage(msg), sigCopy)
	if err != nil {
		return common.Address{}, fmt.Errorf("ecrecover: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Sign produces a 0x-hex EIP-191 signature with V in {27,28}.
func Sign(msg []byte, key *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(HashMessage(msg), key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// SetHeaders signs req with key and attaches the operator headers to h.
func SetHeaders(h http.Header, req SignedRequest, key *ecdsa.PrivateKey) error {
	msg, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal signed request: %w", err)
	}
	sig, err := Sign(msg, key)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	h.Set(HeaderAddress, crypto.PubkeyToAddress(key.PublicKey).Hex())
	h.Set(HeaderMessage, base64.StdEncoding.EncodeToString(msg))
	h.Set(HeaderSignature, sig)
	return nil
}
