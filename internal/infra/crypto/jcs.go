package crypto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// CanonicalizeJSON renders a single JSON value in RFC 8785 (JCS) form.
// Signing and verification both go through this function.
func CanonicalizeJSON(input []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 {
		return nil, errors.New("invalid JSON: empty input")
	}
	if err := ensureSingleValue(trimmed); err != nil {
		return nil, err
	}

	// The canonicalizer only accepts objects and arrays at the top level,
	// so scalars are wrapped in a one-element array and unwrapped again.
	wrapped := make([]byte, 0, len(trimmed)+2)
	wrapped = append(wrapped, '[')
	wrapped = append(wrapped, trimmed...)
	wrapped = append(wrapped, ']')

	out, err := jsoncanonicalizer.Transform(wrapped)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if len(out) < 2 || out[0] != '[' || out[len(out)-1] != ']' {
		return nil, errors.New("invalid JSON: unexpected canonical form")
	}
	return out[1 : len(out)-1], nil
}

// CanonicalizeAny marshals v with encoding/json and canonicalizes the result.
// Raw JSON ([]byte, json.RawMessage) is canonicalized as is.
func CanonicalizeAny(v any) ([]byte, error) {
	switch value := v.(type) {
	case json.RawMessage:
		return CanonicalizeJSON(value)
	case []byte:
		return CanonicalizeJSON(value)
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return CanonicalizeJSON(b)
	}
}

// CompactJSON validates raw JSON and strips insignificant whitespace while
// keeping member order and number spelling as written.
func CompactJSON(input []byte) ([]byte, error) {
	if err := ensureSingleValue(bytes.TrimSpace(input)); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	if err := json.Compact(buf, input); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return buf.Bytes(), nil
}

func ensureSingleValue(input []byte) error {
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	var extra any
	if err := dec.Decode(&extra); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return errors.New("invalid JSON: trailing data")
}
