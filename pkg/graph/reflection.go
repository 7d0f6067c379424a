package graph

import (
	"github.com/df07/go-restir-passes/pkg/texture"
)

// FieldKind distinguishes pass inputs from outputs
type FieldKind int

const (
	Input FieldKind = iota
	Output
)

func (k FieldKind) String() string {
	if k == Output {
		return "output"
	}
	return "input"
}

// Field describes one named resource a pass reads or writes
type Field struct {
	Name        string
	Description string
	Kind        FieldKind
	Format      texture.Format
	Optional    bool
	hasFormat   bool
	floatOnly   bool
}

// WithFormat sets the texture format. An input with an explicit format only
// accepts outputs of the same storage class; float outputs of another format
// are converted to it before the pass executes.
func (f *Field) WithFormat(format texture.Format) *Field {
	f.Format = format
	f.hasFormat = true
	return f
}

// FloatOnly restricts an input to float formats without fixing which one
func (f *Field) FloatOnly() *Field {
	f.floatOnly = true
	return f
}

// AsOptional marks the field as optional. Optional inputs may be left
// unconnected; optional outputs are only allocated when something uses them.
func (f *Field) AsOptional() *Field {
	f.Optional = true
	return f
}

// Reflection is the set of fields a pass declares for a given compile configuration
type Reflection struct {
	fields []*Field
}

// NewReflection creates an empty reflection
func NewReflection() *Reflection {
	return &Reflection{}
}

// AddInput declares an input field
func (r *Reflection) AddInput(name, description string) *Field {
	return r.add(name, description, Input)
}

// AddOutput declares an output field, RGBA32Float unless set otherwise
func (r *Reflection) AddOutput(name, description string) *Field {
	return r.add(name, description, Output).WithFormat(texture.RGBA32Float)
}

func (r *Reflection) add(name, description string, kind FieldKind) *Field {
	f := &Field{Name: name, Description: description, Kind: kind}
	r.fields = append(r.fields, f)
	return f
}

// Field returns the field with the given name, or nil
func (r *Reflection) Field(name string) *Field {
	for _, f := range r.fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Fields returns the fields of the given kind in declaration order
func (r *Reflection) Fields(kind FieldKind) []*Field {
	var out []*Field
	for _, f := range r.fields {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}
