package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/artpar/anvil/core/record"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// decodeRecord reads the request body as a record. JSON objects and
// urlencoded or multipart forms are accepted; form values arrive as
// strings. An empty body decodes to an empty record.
func decodeRecord(w http.ResponseWriter, r *http.Request) (record.Record, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	mediaType := ""
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, fmt.Errorf("invalid content type: %w", err)
		}
		mediaType = mt
	}

	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("invalid form: %w", err)
		}
		return formRecord(r.PostForm), nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(MaxBodyBytes); err != nil {
			return nil, fmt.Errorf("invalid form: %w", err)
		}
		return formRecord(r.MultipartForm.Value), nil
	case "", "application/json":
		return decodeJSON(r.Body)
	default:
		return nil, fmt.Errorf("unsupported content type %q", mediaType)
	}
}

func decodeJSON(body io.Reader) (record.Record, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return record.Record{}, nil
		}
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	rec, err := record.FromMap(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return rec, nil
}

// formRecord keeps the first value posted for each key.
func formRecord(values map[string][]string) record.Record {
	rec := make(record.Record, len(values))
	for k, vs := range values {
		if len(vs) == 0 {
			continue
		}
		rec[k] = record.String(vs[0])
	}
	return rec
}
