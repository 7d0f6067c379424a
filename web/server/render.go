package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"sync"
	"time"

	"github.com/df07/go-restir-passes/pkg/renderer"
	"github.com/df07/go-restir-passes/pkg/scene"
	"github.com/df07/go-restir-passes/pkg/texture"
)

// RenderRequest represents a render request from the client
type RenderRequest struct {
	sceneParams
	Output      string // Graph output to stream, "pass.field"; empty uses the first
	Every       int    // Stream every n-th frame; the last frame is always sent
	PreviewSize int    // Longest side of the streamed image
}

// FrameUpdate is a single streamed frame
type FrameUpdate struct {
	FrameIndex  uint32 `json:"frameIndex"`
	TotalFrames int    `json:"totalFrames"`
	ImageData   string `json:"imageData"` // Base64 encoded PNG
	Stats       Stats  `json:"stats"`
	FrameMs     int64  `json:"frameMs"`
	ElapsedMs   int64  `json:"elapsedMs"`
	IsLast      bool   `json:"isLast"`
}

// Stats represents frame statistics
type Stats struct {
	MeanLuminance float64 `json:"meanLuminance"`
	StdDev        float64 `json:"stdDev"`
	LogAverage    float64 `json:"logAverage"`
	MaxLuminance  float64 `json:"maxLuminance"`
	InvalidPixels int     `json:"invalidPixels"`
}

// SSEEvent represents a unified SSE event for thread-safe writing
type SSEEvent struct {
	Type string `json:"type"` // "console", "frame", "error", "complete"
	Data string `json:"data"` // JSON-encoded data
}

// handleRender streams the frames of a render graph over SSE
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	s.setSSEHeaders(w)
	ctx := r.Context()

	// Single writer goroutine; the handler waits for it before returning
	events := make(chan SSEEvent, 100)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeSSEEvents(ctx, w, events)
	}()

	consoleCh, unsubscribe := s.console.Subscribe(50)
	stopConsole := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.streamConsoleMessages(ctx, stopConsole, consoleCh, events)
	}()

	defer func() {
		unsubscribe()
		close(stopConsole)
		wg.Wait()
		close(events)
		<-writerDone
	}()

	req, err := parseRenderRequest(r)
	if err != nil {
		s.handleError(ctx, events, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	fr, err := s.setupFrameRenderer(req)
	if err != nil {
		s.handleError(ctx, events, err.Error())
		return
	}
	defer fr.Close()

	// Drain frames on failure so the render goroutine finishes before the pool stops
	renderCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	startTime := time.Now()
	frameChan, errChan := fr.RenderFrames(renderCtx)
	var sendErr error
	for result := range frameChan {
		if sendErr != nil {
			continue
		}
		if sendErr = s.sendFrame(ctx, events, req, result, startTime); sendErr != nil {
			cancel()
		}
	}
	err = <-errChan
	if sendErr != nil {
		s.handleError(ctx, events, sendErr.Error())
		return
	}
	if err != nil {
		if ctx.Err() == nil {
			s.handleError(ctx, events, fmt.Sprintf("Rendering failed: %v", err))
		}
		return
	}

	select {
	case events <- SSEEvent{Type: "complete", Data: "Rendering completed"}:
	case <-ctx.Done():
	}
}

func parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	values := r.URL.Query()
	params, err := parseSceneParams(values)
	if err != nil {
		return nil, err
	}
	req := &RenderRequest{sceneParams: params, Output: values.Get("output")}
	if req.Every, err = parseIntParam(values, "every", 1, 1, 10000); err != nil {
		return nil, err
	}
	if req.PreviewSize, err = parseIntParam(values, "previewSize", 512, 16, 2000); err != nil {
		return nil, err
	}

	if req.Width*req.Height*req.Frames > 800*600*100 {
		logger.Warning("Large render requested; frames may stream slowly")
	}
	return req, nil
}

// setupFrameRenderer loads the scene and graph and compiles the graph at the requested size
func (s *Server) setupFrameRenderer(req *RenderRequest) (*renderer.FrameRenderer, error) {
	sc, err := scene.Load(req.Scene)
	if err != nil {
		return nil, err
	}
	g, err := s.buildGraph(req.Graph, req.Instances)
	if err != nil {
		return nil, err
	}

	config := renderer.DefaultFrameConfig()
	config.Width = req.Width
	config.Height = req.Height
	config.Frames = req.Frames
	config.Output = req.Output
	for f := 0; f < req.Frames; f += req.Every {
		config.Capture = append(config.Capture, f)
	}
	if last := req.Frames - 1; last%req.Every != 0 {
		config.Capture = append(config.Capture, last)
	}
	return renderer.NewFrameRenderer(g, sc, config)
}

func (s *Server) sendFrame(ctx context.Context, events chan<- SSEEvent, req *RenderRequest, result renderer.FrameResult, startTime time.Time) error {
	imageData, err := imageToBase64PNG(result.Image, req.PreviewSize)
	if err != nil {
		return fmt.Errorf("failed to encode frame %d: %w", result.FrameIndex, err)
	}
	update := FrameUpdate{
		FrameIndex:  result.FrameIndex,
		TotalFrames: req.Frames,
		ImageData:   imageData,
		Stats: Stats{
			MeanLuminance: result.Stats.MeanLuminance,
			StdDev:        result.Stats.StdDevLuminance,
			LogAverage:    result.Stats.LogAverage,
			MaxLuminance:  result.Stats.MaxLuminance,
			InvalidPixels: result.Stats.InvalidPixels,
		},
		FrameMs:   result.Duration.Milliseconds(),
		ElapsedMs: time.Since(startTime).Milliseconds(),
		IsLast:    int(result.FrameIndex) == req.Frames-1,
	}
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	select {
	case events <- SSEEvent{Type: "frame", Data: string(data)}:
	case <-ctx.Done():
	}
	return nil
}

// setSSEHeaders sets the required headers for Server-Sent Events
func (s *Server) setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// writeSSEEvents writes every SSE event from a single goroutine
func (s *Server) writeSSEEvents(ctx context.Context, w http.ResponseWriter, events <-chan SSEEvent) {
	flusher, _ := w.(http.Flusher)
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
				// Client disconnected during write
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		case <-ctx.Done():
			return
		}
	}
}

// streamConsoleMessages forwards log lines to the stream until stop is closed
func (s *Server) streamConsoleMessages(ctx context.Context, stop <-chan struct{}, consoleCh <-chan ConsoleMessage, events chan<- SSEEvent) {
	for {
		select {
		case msg := <-consoleCh:
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			select {
			case events <- SSEEvent{Type: "console", Data: string(data)}:
			default:
				// Channel full, skip message to avoid blocking
			}
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// imageToBase64PNG converts a display-referred texture to a base64-encoded PNG
func imageToBase64PNG(tex *texture.Texture, maxSize int) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, tex.Preview(maxSize)); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// handleError sends an error event to the SSE channel
func (s *Server) handleError(ctx context.Context, events chan<- SSEEvent, message string) {
	logger.Warning(message)
	select {
	case events <- SSEEvent{Type: "error", Data: message}:
	case <-ctx.Done():
		// Client disconnected, don't block
	}
}
