package reward

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"
)

// Rand is the randomness the ledger and leaderboard consume. Tests
// inject fixed sequences; production uses MathRand.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Factory builds a Rand from a seed. Every draw site constructs a
// fresh source from (session key, call counter) so replaying the same
// call sequence reproduces the same draws.
type Factory func(seed int64) Rand

// MathRand is the production Factory.
func MathRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}

// Seed derives a deterministic seed from a session key and a
// per-session call counter (FNV-1a over both).
func Seed(sessionKey string, counter uint64) int64 {
	h := fnv.New64a()
	h.Write([]byte(sessionKey))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], counter)
	h.Write(buf[:])
	return int64(h.Sum64())
}
