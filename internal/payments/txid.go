package payments

import (
	"crypto/rand"
	"fmt"
	"time"
)

const txidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newTransactionID mints the session identifier carried through the QR bill
// number, provider metadata, and webhook payloads. Timestamp prefix keeps
// ids roughly sortable; the random suffix makes collisions implausible.
func newTransactionID() string {
	buf := make([]byte, 7)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken anyway; fall back
		// to a purely time-based suffix rather than panic mid-request.
		return fmt.Sprintf("TXN-%d-%07d", time.Now().UnixMilli(), time.Now().Nanosecond()%10000000)
	}
	for i, b := range buf {
		buf[i] = txidAlphabet[int(b)%len(txidAlphabet)]
	}
	return fmt.Sprintf("TXN-%d-%s", time.Now().UnixMilli(), buf)
}
