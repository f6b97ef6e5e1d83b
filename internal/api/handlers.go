package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
)

// maxPayloadBytes bounds request bodies. Enrollment and request payloads
// are a few hundred bytes at most.
const maxPayloadBytes = 1 << 20

// DecodePayload decodes a JSON request body into dest. Unknown fields and
// trailing data are rejected. With allowEmpty, a missing body leaves dest
// at its zero value.
func DecodePayload(r *http.Request, dest any, allowEmpty bool) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return errors.New("unsupported content type")
		}
	}

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxPayloadBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		if !errors.Is(err, io.EOF) || !allowEmpty {
			return err
		}
	}
	if dec.More() {
		return errors.New("extra data in request body")
	}
	return nil
}
