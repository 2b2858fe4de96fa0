package game

import (
	"crypto/rand"
	"math/big"
)

// Unambiguous alphabet: uppercase letters and digits only. Codes double as
// the transport-level channel key, so they must stay URL- and JSON-safe.
const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const codeLength = 6

// GenerateCode produces one candidate room code. Callers are responsible for
// collision-checking against the active room set and retrying.
func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := 0; i < codeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}
