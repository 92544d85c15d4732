package api

import (
	"crypto/rand"
	"math/big"
)

// cryptoRandIntn returns a uniformly distributed random int64 in [0, n).
func cryptoRandIntn(n int64) int64 {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		panic(err)
	}
	return v.Int64()
}
