package khqr

import "fmt"

const (
	crcPolynomial = 0x1021
	crcInit       = 0xFFFF
)

// Checksum computes the CRC-16/CCITT-FALSE of data and returns it as four
// uppercase hex digits, the form the trailing integrity field carries.
// No reflection, no final XOR.
func Checksum(data []byte) string {
	reg := uint16(crcInit)
	for _, b := range data {
		reg ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if reg&0x8000 != 0 {
				reg = (reg << 1) ^ crcPolynomial
			} else {
				reg <<= 1
			}
		}
	}
	return fmt.Sprintf("%04X", reg)
}

// VerifyChecksum reports whether the four hex digits at the end of payload
// match the CRC computed over everything before them.
func VerifyChecksum(payload string) bool {
	if len(payload) < 4 {
		return false
	}
	body := payload[:len(payload)-4]
	return Checksum([]byte(body)) == payload[len(payload)-4:]
}
