package usecase

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	signingLinkLength   = 32
	signingLinkAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// Largest multiple of len(alphabet) that fits in a byte; bytes at or
	// above it are discarded so every symbol is equally likely.
	signingLinkCutoff = 248
)

// NewSigningLink draws 32 symbols uniformly from [A-Za-z0-9].
func NewSigningLink() (string, error) {
	out := make([]byte, 0, signingLinkLength)
	buf := make([]byte, signingLinkLength)
	for len(out) < signingLinkLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		for _, b := range buf {
			if b >= signingLinkCutoff {
				continue
			}
			out = append(out, signingLinkAlphabet[int(b)%len(signingLinkAlphabet)])
			if len(out) == signingLinkLength {
				break
			}
		}
	}
	return string(out), nil
}

// NewContractNumber formats {code}-{year}-{suffix}. The first attempt uses
// the last six digits of the epoch milliseconds; retries use a random
// six-digit suffix.
func NewContractNumber(branchCode string, now time.Time, attempt int) (string, error) {
	var suffix int64
	if attempt == 0 {
		suffix = now.UnixMilli() % 1_000_000
	} else {
		n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		suffix = n.Int64()
	}
	return fmt.Sprintf("%s-%d-%06d", branchCode, now.UTC().Year(), suffix), nil
}
