package graph

import (
	"fmt"

	"github.com/df07/go-restir-passes/pkg/scene"
	"github.com/df07/go-restir-passes/pkg/texture"
)

// Dim is a frame size in pixels
type Dim struct {
	Width  int
	Height int
}

func (d Dim) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// CompileData is what a pass sees when the graph (re)compiles
type CompileData struct {
	FrameDim         Dim
	ConnectedInputs  map[string]bool // Inputs bound to an upstream output
	ConnectedOutputs map[string]bool // Outputs consumed downstream or marked as graph outputs
}

// Dispatcher runs kernel once for every pixel of a width x height grid and
// returns after all invocations have completed. Dispatches are not
// cancellable: a frame that started always finishes.
type Dispatcher interface {
	Dispatch(width, height int, kernel func(x, y int)) error
}

// RenderContext carries per-frame state shared by every pass
type RenderContext struct {
	Dispatcher Dispatcher
	FrameIndex uint32
}

// Dispatch issues a per-pixel kernel over the given grid
func (rc *RenderContext) Dispatch(width, height int, kernel func(x, y int)) error {
	return rc.Dispatcher.Dispatch(width, height, kernel)
}

// RenderData binds a pass's field names to resources for one execution.
// Unbound optional fields resolve to nil.
type RenderData struct {
	FrameDim  Dim
	resources map[string]*texture.Texture
}

// NewRenderData creates render data for the given frame size and bindings
func NewRenderData(dim Dim, resources map[string]*texture.Texture) *RenderData {
	if resources == nil {
		resources = map[string]*texture.Texture{}
	}
	return &RenderData{FrameDim: dim, resources: resources}
}

// Texture returns the resource bound to a field, or nil
func (rd *RenderData) Texture(name string) *texture.Texture {
	return rd.resources[name]
}

// Pass is a node of the render graph
type Pass interface {
	// Reflect declares the pass's fields for the given compile configuration
	Reflect(cd CompileData) *Reflection

	// Compile is called after resources are allocated, before the first execution
	Compile(cd CompileData) error

	// Execute renders one frame
	Execute(rc *RenderContext, data *RenderData) error

	// Properties returns the current configuration in serializable form
	Properties() Properties
}

// SceneAware passes are told when the scene changes
type SceneAware interface {
	SetScene(s *scene.Scene)
}

// Configurable passes accept property changes after creation
type Configurable interface {
	SetProperties(props Properties) error
}
