package issuance

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

const (
	certNoPrefix   = "CERT-"
	certNoAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	certNoSuffix   = 8
	qrHashBytes    = 32
)

// NumberFunc produces a candidate certificate number for the issue year.
type NumberFunc func(issued time.Time) (string, error)

// HashFunc produces a candidate verification hash.
type HashFunc func() (string, error)

// NewCertificateNo returns CERT-<year><8 random [A-Z0-9]>.
func NewCertificateNo(issued time.Time) (string, error) {
	buf := make([]byte, certNoSuffix)
	max := big.NewInt(int64(len(certNoAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = certNoAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%s%d%s", certNoPrefix, issued.Year(), buf), nil
}

// NewQRHash returns 32 random bytes, hex encoded.
func NewQRHash() (string, error) {
	b := make([]byte, qrHashBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
