package webrequester

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

// Target is one URL to fetch plus the options overriding the batch's
// common ones.
type Target struct {
	URL     string
	Options *Options
}

// ParseTargets decodes the JSON form of a batch: an array whose elements
// are either a URL string or a [url, options] pair.
//
//	["http://a.example", ["http://b.example", {"method": "POST", "timeout": 5}]]
//
// Malformed pairs, non-object option bundles and unknown option keys are
// rejected. The URLs themselves are validated at dispatch time.
func ParseTargets(data []byte) ([]Target, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTarget, err)
	}

	targets := make([]Target, 0, len(raw))
	for i, el := range raw {
		t, err := parseTarget(el)
		if err != nil {
			return nil, fmt.Errorf("target %d: %w", i, err)
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func parseTarget(el json.RawMessage) (Target, error) {
	switch firstByte(el) {
	case '"':
		var u string
		if err := json.Unmarshal(el, &u); err != nil {
			return Target{}, fmt.Errorf("%w: %v", ErrBadTarget, err)
		}
		return Target{URL: u}, nil

	case '[':
		var pair []json.RawMessage
		if err := json.Unmarshal(el, &pair); err != nil {
			return Target{}, fmt.Errorf("%w: %v", ErrBadTarget, err)
		}
		if len(pair) != 2 {
			return Target{}, ErrBadTarget
		}
		var u string
		if err := json.Unmarshal(pair[0], &u); err != nil {
			return Target{}, fmt.Errorf("%w: %v", ErrBadTarget, err)
		}
		if firstByte(pair[1]) != '{' {
			return Target{}, ErrBadTarget
		}
		opts, err := ParseOptions(pair[1])
		if err != nil {
			return Target{}, err
		}
		return Target{URL: u, Options: opts}, nil

	default:
		return Target{}, ErrBadTarget
	}
}

// optionsDoc is the JSON wire form of Options. Function-valued options
// (Callback, Logger, Client) have no wire form.
type optionsDoc struct {
	Method     string            `json:"method"`
	Data       string            `json:"data"`
	JSON       json.RawMessage   `json:"json"`
	Params     map[string]string `json:"params"`
	Headers    map[string]string `json:"headers"`
	Proxy      Proxy             `json:"proxy"`
	Timeout    Timeout           `json:"timeout"`
	AllowAsync *bool             `json:"allowAsync"`
	Transport  *TransportOptions `json:"transport"`
}

// ParseOptions decodes the JSON form of an option bundle. Unknown keys are
// rejected.
func ParseOptions(data []byte) (*Options, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc optionsDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadOptions, err)
	}

	opts := &Options{
		Method:     doc.Method,
		Params:     doc.Params,
		Headers:    doc.Headers,
		Proxy:      doc.Proxy,
		Timeout:    doc.Timeout,
		AllowAsync: doc.AllowAsync,
		Transport:  doc.Transport,
	}
	if doc.Data != "" {
		opts.Data = []byte(doc.Data)
	}
	if len(doc.JSON) > 0 && !bytes.Equal(doc.JSON, []byte("null")) {
		opts.JSON = doc.JSON
	}
	return opts, nil
}

// firstByte returns the first non-whitespace byte of a JSON value, or 0.
func firstByte(raw json.RawMessage) byte {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return c
	}
	return 0
}
