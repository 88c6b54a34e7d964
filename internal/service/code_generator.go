package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	appErrors "github.com/edusetu/school-onboard-api/pkg/errors"
)

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
const codeLength = 6

// generateCode produces a random human-facing code: the prefix followed by
// six characters drawn from digits and uppercase letters.
func generateCode(prefix string) (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return prefix + string(buf), nil
}

// mintCode generates codes until one is not already taken, up to attempts
// tries. Random generation makes collisions rare; the verification read makes
// them survivable.
func mintCode(ctx context.Context, prefix string, attempts int, taken func(ctx context.Context, code string) (bool, error)) (string, error) {
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		code, err := generateCode(prefix)
		if err != nil {
			return "", err
		}
		exists, err := taken(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrInternal, "could not allocate a unique code")
}
