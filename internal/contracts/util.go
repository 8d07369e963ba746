package contracts

import (
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"
)

// BytesToString converts opaque contract bytes to a UTF-8 string, rejecting
// invalid encodings rather than silently lossy-converting them — callers
// depend on exact byte-for-byte round-tripping (inline request payloads,
// comma-separated model lists).
func BytesToString(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", fmt.Errorf("bytes are not valid UTF-8")
	}
	return string(b), nil
}

// Bytes32ToString interprets a 32-byte protocol tag as UTF-8 text truncated
// at the first NUL byte, per the wire format in spec §6.
func Bytes32ToString(b [32]byte) (string, error) {
	n := len(b)
	for i, c := range b {
		if c == 0 {
			n = i
			break
		}
	}
	if !utf8.Valid(b[:n]) {
		return "", fmt.Errorf("protocol tag is not valid UTF-8")
	}
	return string(b[:n]), nil
}

// StringToBytes32 encodes a protocol string into the fixed 32-byte tag,
// failing if it (plus its implicit NUL terminator) cannot fit.
func StringToBytes32(s string) ([32]byte, error) {
	var out [32]byte
	if len(s) > 31 {
		return out, fmt.Errorf("protocol string %q exceeds 31 bytes", s)
	}
	copy(out[:], s)
	return out, nil
}

// ProtocolPrefix returns the post-processor selector: the text before the
// first '/' in a protocol tag of the form "<name>[/<semver>]".
func ProtocolPrefix(protocol string) string {
	if idx := strings.IndexByte(protocol, '/'); idx >= 0 {
		return protocol[:idx]
	}
	return protocol
}

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// FormatEther renders a wei amount with up to 18 decimal digits, trimming
// trailing zeros, for human-readable error messages and CLI output.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	neg := wei.Sign() < 0
	abs := new(big.Int).Abs(wei)

	quotient, remainder := new(big.Int).QuoRem(abs, weiPerEther, new(big.Int))
	frac := fmt.Sprintf("%018s", remainder.String())
	frac = strings.TrimRight(frac, "0")

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	sb.WriteString(quotient.String())
	if frac != "" {
		sb.WriteByte('.')
		sb.WriteString(frac)
	}
	return sb.String()
}
