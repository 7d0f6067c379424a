package texture

// Format is the element format of a texture
type Format int

const (
	RGBA32Float Format = iota
	RGBA16Float
	RG32Float
	R32Float
	RGBA32Uint
)

var formatNames = map[Format]string{
	RGBA32Float: "RGBA32Float",
	RGBA16Float: "RGBA16Float",
	RG32Float:   "RG32Float",
	R32Float:    "R32Float",
	RGBA32Uint:  "RGBA32Uint",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "Unknown"
}

// Channels returns the number of meaningful channels
func (f Format) Channels() int {
	switch f {
	case RG32Float:
		return 2
	case R32Float:
		return 1
	default:
		return 4
	}
}

// IsInteger reports whether texels are stored as unsigned integers
func (f Format) IsInteger() bool {
	return f == RGBA32Uint
}

// ParseFormat returns the format with the given name
func ParseFormat(name string) (Format, bool) {
	for f, n := range formatNames {
		if n == name {
			return f, true
		}
	}
	return 0, false
}
