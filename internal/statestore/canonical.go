package statestore

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// CanonicalBytes renders s the way the original implementation's
// `_compute_state_hmac` does before hashing: the state_hmac field and
// integrity.hmac subfield are stripped, then the remainder is serialized
// with sorted object keys, compact separators, and non-ASCII characters
// escaped — so the same logical document always produces the same bytes
// regardless of field insertion order.
func CanonicalBytes(s *State) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal state for canonicalization: %w", err)
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode state for canonicalization: %w", err)
	}

	delete(generic, "state_hmac")
	if integrity, ok := generic["integrity"].(map[string]interface{}); ok {
		delete(integrity, "hmac")
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeCanonical writes v to buf using sorted object keys, no insignificant
// whitespace, and \uXXXX escapes for any non-ASCII rune — matching
// Python's json.dumps(sort_keys=True, separators=(",", ":"), ensure_ascii=True).
func writeCanonical(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case float64:
		// encoding/json decodes all JSON numbers into float64; re-encode
		// with the standard library so integral values keep no fraction.
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
	case string:
		writeCanonicalString(buf, val)
	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("canonicalize: unsupported type %T", v)
	}
	return nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			if r < 0x20 || r > 0x7e {
				if r > 0xffff {
					// Encode as a UTF-16 surrogate pair, matching
					// ensure_ascii's behavior for astral characters.
					r -= 0x10000
					hi := 0xd800 + (r >> 10)
					lo := 0xdc00 + (r & 0x3ff)
					fmt.Fprintf(buf, `\u%04x\u%04x`, hi, lo)
				} else {
					fmt.Fprintf(buf, `\u%04x`, r)
				}
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

// ComputeHMAC returns the hex-encoded HMAC-SHA256 of s's canonical bytes
// under key.
func ComputeHMAC(s *State, key []byte) (string, error) {
	canon, err := CanonicalBytes(s)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(canon)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifyHMAC reports whether s.StateHMAC matches the HMAC computed over
// its own canonical bytes under key.
func VerifyHMAC(s *State, key []byte) (bool, error) {
	want, err := ComputeHMAC(s, key)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(want), []byte(s.StateHMAC)), nil
}
