// Package referralcode generates the short codes users share to invite
// others. Codes are plain alphanumeric strings so they survive being read
// aloud, typed on phones and pasted into URLs.
package referralcode

import (
	"crypto/rand"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// maxAccepted is the largest byte value used for sampling. Values above it
// are rejected so every alphabet character stays equally likely.
const maxAccepted = byte(len(alphabet) * (256 / len(alphabet))) // 248

// Generate returns a random string of exactly length characters drawn
// uniformly from [A-Za-z0-9]. It panics only if length is negative.
func Generate(length int) string {
	out := make([]byte, 0, length)
	buf := make([]byte, length)

	for len(out) < length {
		// crypto/rand.Read never fails since go 1.24, it crashes the
		// program instead
		_, _ = rand.Read(buf)

		for _, b := range buf {
			if b >= maxAccepted {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out)
}
