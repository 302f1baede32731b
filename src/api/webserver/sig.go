package webserver

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
)

// normalizeAddress validates a 0x-prefixed 40-hex-digit wallet address and
// lowercases it. All member identities go through this.
func normalizeAddress(addr string) (string, error) {
	if !strings.HasPrefix(addr, "0x") || !common.IsHexAddress(addr) {
		return "", fmt.Errorf("invalid wallet address")
	}
	return strings.ToLower(addr), nil
}

// recoverAddress returns the lowercased address that personal-signed nonce.
func recoverAddress(nonce, sigHex string) (string, error) {
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return "", err
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("invalid signature length: %d", len(sig))
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	msg := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(nonce), nonce)
	hash := crypto.Keccak256Hash([]byte(msg))

	pub, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return "", err
	}
	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()), nil
}

func issueJWT(addr string, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"addr": addr,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	return token.SignedString(secret)
}
