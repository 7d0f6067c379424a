package graph

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/df07/go-restir-passes/pkg/log"
)

// Properties is the serializable key/value configuration of a pass
type Properties map[string]any

// Decoder reads typed values out of Properties. Missing keys leave the target
// untouched, so targets should be initialized with defaults. Type errors are
// collected and reported by Err.
type Decoder struct {
	props Properties
	used  map[string]bool
	err   error
}

// NewDecoder creates a decoder over props
func NewDecoder(props Properties) *Decoder {
	return &Decoder{props: props, used: map[string]bool{}}
}

func (d *Decoder) fail(key string, v any, want string) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %q is %T, want %s", ErrInvalidConfig, key, v, want)
	}
}

// Bool decodes a boolean
func (d *Decoder) Bool(key string, dst *bool) {
	v, ok := d.props[key]
	if !ok {
		return
	}
	d.used[key] = true
	b, ok := v.(bool)
	if !ok {
		d.fail(key, v, "bool")
		return
	}
	*dst = b
}

// Int decodes an integer. Integral floats are accepted since JSON numbers decode as float64.
func (d *Decoder) Int(key string, dst *int) {
	v, ok := d.props[key]
	if !ok {
		return
	}
	d.used[key] = true
	switch n := v.(type) {
	case int:
		*dst = n
	case int64:
		*dst = int(n)
	case uint32:
		*dst = int(n)
	case float64:
		if n != float64(int(n)) {
			d.fail(key, v, "integer")
			return
		}
		*dst = int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			d.fail(key, v, "integer")
			return
		}
		*dst = int(i)
	default:
		d.fail(key, v, "integer")
	}
}

// Float decodes a number
func (d *Decoder) Float(key string, dst *float64) {
	v, ok := d.props[key]
	if !ok {
		return
	}
	d.used[key] = true
	switch n := v.(type) {
	case float64:
		*dst = n
	case float32:
		*dst = float64(n)
	case int:
		*dst = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			d.fail(key, v, "number")
			return
		}
		*dst = f
	default:
		d.fail(key, v, "number")
	}
}

// String decodes a string
func (d *Decoder) String(key string, dst *string) {
	v, ok := d.props[key]
	if !ok {
		return
	}
	d.used[key] = true
	s, ok := v.(string)
	if !ok {
		d.fail(key, v, "string")
		return
	}
	*dst = s
}

// Enum decodes a string that must be one of allowed
func (d *Decoder) Enum(key string, dst *string, allowed ...string) {
	var s string
	if _, ok := d.props[key]; !ok {
		return
	}
	d.String(key, &s)
	for _, a := range allowed {
		if s == a {
			*dst = s
			return
		}
	}
	if d.err == nil {
		d.err = fmt.Errorf("%w: %q must be one of %v, got %q", ErrInvalidConfig, key, allowed, s)
	}
}

// Sub decodes a nested property set
func (d *Decoder) Sub(key string) (Properties, bool) {
	v, ok := d.props[key]
	if !ok {
		return nil, false
	}
	d.used[key] = true
	switch m := v.(type) {
	case Properties:
		return m, true
	case map[string]any:
		return Properties(m), true
	default:
		d.fail(key, v, "object")
		return nil, false
	}
}

// Unused returns the keys no decode call looked at, sorted
func (d *Decoder) Unused() []string {
	var keys []string
	for k := range d.props {
		if !d.used[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// WarnUnused logs a warning for every key that was not decoded
func (d *Decoder) WarnUnused(logger log.Logger, passType string) {
	for _, k := range d.Unused() {
		logger.Warningf("Unknown field '%s' in %s dictionary", k, passType)
	}
}

// Err returns the first type error encountered
func (d *Decoder) Err() error {
	return d.err
}
