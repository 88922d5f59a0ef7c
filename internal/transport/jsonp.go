package transport

import (
	"bytes"
	"fmt"
)

// UnwrapJSONP strips a "callback(...)" envelope from body.
func UnwrapJSONP(body []byte, callback string) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	prefix := []byte(callback + "(")
	if !bytes.HasPrefix(trimmed, prefix) {
		return nil, fmt.Errorf("transport: missing jsonp callback %q", callback)
	}
	trimmed = bytes.TrimSuffix(trimmed[len(prefix):], []byte(";"))
	if len(trimmed) == 0 || trimmed[len(trimmed)-1] != ')' {
		return nil, fmt.Errorf("transport: unterminated jsonp callback %q", callback)
	}
	return trimmed[:len(trimmed)-1], nil
}
