package assignment

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
)

// Bucket maps (experimentID, subjectID) onto one of n buckets.
//
// The key "experimentID:subjectID" is hashed with SHA-1 and the first four
// bytes of the digest, read as a big-endian unsigned integer, are reduced
// modulo n. The result depends only on its inputs, so every process and
// every deploy agrees on the bucket for a subject.
func Bucket(experimentID, subjectID string, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("bucket count must be positive, got %d", n)
	}
	sum := sha1.Sum([]byte(experimentID + ":" + subjectID))
	return int(binary.BigEndian.Uint32(sum[:4]) % uint32(n)), nil
}
