package room

import (
	"crypto/rand"
	"math/big"
)

const (
	CodeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxAttempts  = 100
)

// NewCode returns a fresh 6-character uppercase alphanumeric room code for
// which exists reports false.
func NewCode(exists func(string) bool) string {
	for i := 0; ; i++ {
		code := randomCode()
		if exists == nil || !exists(code) {
			return code
		}
		if i >= maxAttempts {
			// 36^6 codes; only a broken exists gets here.
			return code
		}
	}
}

func randomCode() string {
	b := make([]byte, CodeLength)
	n := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			panic(err)
		}
		b[i] = codeAlphabet[idx.Int64()]
	}
	return string(b)
}
