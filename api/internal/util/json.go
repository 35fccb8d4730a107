package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DecodeObject decodes a model reply into v. The reply must be a single JSON
// object, optionally wrapped in code fences; anything after it is an error.
func DecodeObject(raw []byte, v any) error {
	s := StripCodeFences(string(raw))
	if s == "" {
		return errors.New("empty reply")
	}
	if s[0] != '{' {
		return fmt.Errorf("reply is not a JSON object: %s", Truncate(s, 120))
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("bad JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("bad JSON: trailing data after object")
	}
	return nil
}
