// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Aaron LI
//
// API helpers.
//

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const maxBodySize = 4096 // bytes

var (
	errContentType     = errors.New("Content-Type missing or invalid")
	errBodyInvalidJSON = errors.New("body invalid JSON")
	errNotFound        = errors.New("not found")
)

func readJSON(r *http.Request, v any) error {
	mediaType := ""
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	}
	if mediaType != "application/json" {
		return errContentType
	}

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errBodyInvalidJSON
	}

	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// writeError replies like "404 not found: <err>".
func writeError(w http.ResponseWriter, code int, err error) {
	msg := fmt.Sprintf("%d %s", code, strings.ToLower(http.StatusText(code)))
	if err != nil && !errors.Is(err, errNotFound) {
		msg += ": " + err.Error()
	}
	http.Error(w, msg, code)
}
