package decode

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Options customises Map behaviour.
type Options struct {
	// WeaklyTypedInput enables loose decoding (default true):
	// "123" -> int, 1.0 -> int64 and so on. Command payloads come from
	// JSON where clients are sloppy about number types.
	WeaklyTypedInput bool
}

func DefaultOptions() Options {
	return Options{WeaklyTypedInput: true}
}

// Map decodes a generic map (typically a parsed JSON object) into an
// arbitrary argument struct T. Struct fields are matched via `json` tags.
func Map[T any](in map[string]any, opts ...Options) (*T, error) {
	if in == nil {
		in = map[string]any{}
	}

	cfg := DefaultOptions()
	if len(opts) > 0 {
		cfg = opts[0]
	}

	var out T
	decCfg := &mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: cfg.WeaklyTypedInput,
	}

	dec, err := mapstructure.NewDecoder(decCfg)
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}
	if err := dec.Decode(in); err != nil {
		return nil, fmt.Errorf("decode args: %w", err)
	}
	return &out, nil
}
