package sharecode

import "crypto/rand"

// Alphanumeric alphabet with confusable characters (0/O, 1/I/L) removed, so
// codes survive being read aloud in a hallway.
const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const Length = 6

// New generates a short public share code for a cleaning session.
func New() string {
	b := make([]byte, Length)
	rand.Read(b)
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b)
}
