package domain

import (
	"encoding/json"
	"errors"
)

// SignedObject is the detached-signature envelope. Payload carries the
// original JSON value; the signature covers its canonical form.
type SignedObject struct {
	Signature string          `json:"signature"`
	Protected string          `json:"protected,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	KID       string          `json:"kid,omitempty"`
	JWK       json.RawMessage `json:"jwk,omitempty"`
}

// ProtectedHeader is the decoded form of SignedObject.Protected.
type ProtectedHeader struct {
	Alg  Algorithm `json:"alg"`
	KID  string    `json:"kid,omitempty"`
	B64  *bool     `json:"b64,omitempty"`
	Crit []string  `json:"crit,omitempty"`
}

// Unencoded reports whether the header declares an unencoded payload and
// lists b64 as critical.
func (h ProtectedHeader) Unencoded() bool {
	if h.B64 == nil || *h.B64 {
		return false
	}
	for _, name := range h.Crit {
		if name == "b64" {
			return true
		}
	}
	return false
}

// VerifyResult holds either the verified payload or a diagnostic.
type VerifyResult struct {
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (r VerifyResult) OK() bool {
	return r.Error == "" && len(r.Payload) > 0
}

// Decode unmarshals the verified payload into v.
func (r VerifyResult) Decode(v any) error {
	if !r.OK() {
		if r.Error == "" {
			return errors.New("empty verification result")
		}
		return errors.New(r.Error)
	}
	return json.Unmarshal(r.Payload, v)
}

func VerifyFailure(msg string) VerifyResult {
	return VerifyResult{Error: msg}
}
