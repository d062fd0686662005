package export

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/sourcegraph/conc/iter"
)

// HashTypeSHA256 is the only supported pseudonymization algorithm.
const HashTypeSHA256 = "sha256"

// HashID pseudonymizes a user ID with iterated salted SHA256.
func HashID(id, salt string, iterations uint32) string {
	if iterations == 0 {
		iterations = 1
	}

	hash := []byte(salt)

	h := sha256.New()
	for range iterations {
		h.Reset()
		h.Write([]byte(id))
		h.Write(hash)
		hash = h.Sum(nil)
	}

	return hex.EncodeToString(hash)
}

// hashIDs pseudonymizes distinct user IDs concurrently and returns a lookup.
func hashIDs(ids []string, salt string, iterations uint32, concurrency int) map[string]string {
	if concurrency < 1 {
		concurrency = 1
	}

	mapper := iter.Mapper[string, string]{MaxGoroutines: concurrency}
	hashes := mapper.Map(ids, func(id *string) string {
		return HashID(*id, salt, iterations)
	})

	lookup := make(map[string]string, len(ids))
	for i, id := range ids {
		lookup[id] = hashes[i]
	}
	return lookup
}
