package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or yaml)", raw)
	}
}

// Encoder writes one record per call: a JSON line, or a YAML document.
type Encoder interface {
	Encode(v any) error
	Close() error
}

// NewEncoder returns an encoder for the structured formats.
func NewEncoder(w io.Writer, f Format) (Encoder, error) {
	switch f {
	case FormatJSON:
		return jsonEncoder{json.NewEncoder(w)}, nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		return enc, nil
	default:
		return nil, fmt.Errorf("format %q has no structured encoder", f)
	}
}

type jsonEncoder struct {
	*json.Encoder
}

func (jsonEncoder) Close() error {
	return nil
}
