package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	ParamSecureHash     = "vnp_SecureHash"
	ParamSecureHashType = "vnp_SecureHashType"
)

// Canonical renders params as the signed byte string: signature fields and empty
// values dropped, keys sorted by raw name, keys and values form-escaped in US-ASCII
// (see escape), joined as key=value pairs with '&'. Outbound URLs and inbound
// callbacks both go through here.
func Canonical(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == ParamSecureHash || k == ParamSecureHashType || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escape(k))
		b.WriteByte('=')
		b.WriteString(escape(params[k]))
	}
	return b.String()
}

const upperHex = "0123456789ABCDEF"

// escape is the gateway's form encoding over US-ASCII: letters, digits and ".-*_"
// pass through, space becomes '+', every other ASCII byte becomes %XX and every
// non-ASCII character (or invalid byte) is replaced by '?' and sent as %3F.
// Both sides hash this exact text, so it must not follow net/url's rules.
func escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '*', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('+')
		case r >= utf8.RuneSelf:
			b.WriteString("%3F")
		default:
			b.WriteByte('%')
			b.WriteByte(upperHex[r>>4])
			b.WriteByte(upperHex[r&0x0F])
		}
	}
	return b.String()
}

// Sign returns hex(HMAC-SHA512(secret, canonical)).
func Sign(secret, canonical string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature over params and compares it, case-sensitively,
// with the supplied vnp_SecureHash. It never fails loudly: empty input, a missing
// signature or nothing left to sign all yield false.
func Verify(secret string, params map[string]string) bool {
	if len(params) == 0 {
		return false
	}
	got := params[ParamSecureHash]
	if got == "" {
		return false
	}
	canonical := Canonical(params)
	if canonical == "" {
		return false
	}
	want := Sign(secret, canonical)
	return hmac.Equal([]byte(want), []byte(got))
}
