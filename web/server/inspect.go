package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/df07/go-restir-passes/pkg/graph"
	"github.com/df07/go-restir-passes/pkg/passes/gbuffer"
	"github.com/df07/go-restir-passes/pkg/passes/restirpass"
	"github.com/df07/go-restir-passes/pkg/renderer"
	"github.com/df07/go-restir-passes/pkg/scene"
)

// InspectResponse describes one pixel after rendering a number of frames
type InspectResponse struct {
	X          int                   `json:"x"`
	Y          int                   `json:"y"`
	Frames     int                   `json:"frames"`
	Hit        bool                  `json:"hit"`
	Surface    *SurfaceInfo          `json:"surface,omitempty"`
	Outputs    map[string][4]float32 `json:"outputs"` // Marked graph outputs at the pixel
	Reservoirs []ReservoirInfo       `json:"reservoirs,omitempty"`
}

// SurfaceInfo is the visibility buffer hit under the pixel
type SurfaceInfo struct {
	InstanceID  int        `json:"instanceId"`
	PrimitiveID int        `json:"primitiveId"`
	Position    [3]float64 `json:"position"`
	Normal      [3]float64 `json:"normal"`
}

// ReservoirInfo is the state of one ReSTIR instance's reservoir at the pixel
type ReservoirInfo struct {
	Pass       string     `json:"pass"`
	Instance   int        `json:"instance"`
	EngineID   string     `json:"engineId"`
	LightIndex int        `json:"lightIndex"`
	UV         [2]float64 `json:"uv"`
	TargetPdf  float64    `json:"targetPdf"`
	WeightSum  float64    `json:"weightSum"`
	W          float64    `json:"w"`
	M          float64    `json:"m"`
	Age        int        `json:"age"`
}

// handleInspect renders a graph for a number of frames and reports what the
// passes hold at one pixel
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	params, err := parseSceneParams(values)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	x, errX := strconv.Atoi(values.Get("x"))
	y, errY := strconv.Atoi(values.Get("y"))
	if errX != nil || errY != nil || x < 0 || y < 0 || x >= params.Width || y >= params.Height {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "x and y must be pixel coordinates inside the frame"})
		return
	}

	resp, err := s.inspect(r.Context(), params, x, y)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) inspect(ctx context.Context, params sceneParams, x, y int) (*InspectResponse, error) {
	sc, err := scene.Load(params.Scene)
	if err != nil {
		return nil, err
	}
	g, err := s.buildGraph(params.Graph, params.Instances)
	if err != nil {
		return nil, err
	}
	config := renderer.DefaultFrameConfig()
	config.Width, config.Height, config.Frames = params.Width, params.Height, params.Frames
	fr, err := renderer.NewFrameRenderer(g, sc, config)
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	for i := 0; i < params.Frames; i++ {
		if _, err := fr.RenderFrame(ctx); err != nil {
			return nil, err
		}
	}

	resp := &InspectResponse{X: x, Y: y, Frames: params.Frames, Outputs: map[string][4]float32{}}
	for _, o := range g.Outputs() {
		resp.Outputs[o] = g.Output(o).Get(x, y)
	}
	resp.Surface = surfaceAt(g, sc, x, y)
	resp.Hit = resp.Surface != nil

	for _, name := range g.PassNames() {
		p, ok := g.Pass(name).(*restirpass.Pass)
		if !ok {
			continue
		}
		for i, e := range p.Engines() {
			res := e.Reservoir(x, y)
			resp.Reservoirs = append(resp.Reservoirs, ReservoirInfo{
				Pass:       name,
				Instance:   i,
				EngineID:   e.ID().String(),
				LightIndex: res.Sample.LightIndex,
				UV:         [2]float64{res.Sample.UV.X, res.Sample.UV.Y},
				TargetPdf:  res.TargetPdf,
				WeightSum:  res.WeightSum,
				W:          res.W,
				M:          res.M,
				Age:        res.Age,
			})
		}
	}
	return resp, nil
}

// surfaceAt decodes the first GBufferRT visibility buffer in the graph
func surfaceAt(g *graph.Graph, sc *scene.Scene, x, y int) *SurfaceInfo {
	for _, name := range g.PassNames() {
		if g.PassType(name) != gbuffer.TypeName {
			continue
		}
		vbuffer := g.Output(name + "." + gbuffer.VBuffer)
		if vbuffer == nil {
			return nil
		}
		hit, ok := gbuffer.UnpackHitInfo(vbuffer.GetUint(x, y))
		if !ok {
			return nil
		}
		sh, ok := sc.Shade(hit.InstanceID, hit.PrimitiveID, float64(hit.B1), float64(hit.B2))
		if !ok {
			return nil
		}
		return &SurfaceInfo{
			InstanceID:  hit.InstanceID,
			PrimitiveID: hit.PrimitiveID,
			Position:    [3]float64{sh.Position.X, sh.Position.Y, sh.Position.Z},
			Normal:      [3]float64{sh.ShadingNormal.X, sh.ShadingNormal.Y, sh.ShadingNormal.Z},
		}
	}
	return nil
}
