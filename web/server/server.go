package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/df07/go-restir-passes/pkg/graph"
	"github.com/df07/go-restir-passes/pkg/log"
	"github.com/df07/go-restir-passes/pkg/passes"
	"github.com/df07/go-restir-passes/pkg/scene"
	"github.com/df07/go-restir-passes/pkg/script"
)

var logger = log.New("server")

// Server streams render graph previews over HTTP
type Server struct {
	port     int
	sceneDir string // PLY meshes listed next to the built-in scenes
	registry *graph.Registry
	console  *ConsoleHub
}

// NewServer creates a new web server
func NewServer(port int, sceneDir string) *Server {
	return &Server{
		port:     port,
		sceneDir: sceneDir,
		registry: passes.NewRegistry(),
		console:  NewConsoleHub(),
	}
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/render", s.handleRender)
	mux.HandleFunc("/api/inspect", s.handleInspect)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/passes", s.handlePasses)
	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/graphs", s.handleGraphs)
	return mux
}

// Start serves until ctx is cancelled. Log output is mirrored to every
// connected render stream.
func (s *Server) Start(ctx context.Context) error {
	log.SetSink(io.MultiWriter(os.Stderr, s.console))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Noticef("Starting web server on http://localhost%s", srv.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warningf("writing response: %v", err)
	}
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// passInfo is the JSON form of a registered pass type
type passInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

func (s *Server) handlePasses(w http.ResponseWriter, r *http.Request) {
	var infos []passInfo
	for _, info := range s.registry.Infos() {
		infos = append(infos, passInfo{Type: info.Type, Description: info.Description})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := scene.ListScenes(s.sceneDir)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, scenes)
}

// handleGraphs returns one built-in graph script, or all of them
func (s *Server) handleGraphs(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		sc, err := script.Builtin(name)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, sc)
		return
	}
	var all []*script.Script
	for _, name := range script.Builtins() {
		sc, _ := script.Builtin(name)
		all = append(all, sc)
	}
	writeJSON(w, http.StatusOK, all)
}

// buildGraph creates the named built-in graph and applies the instance override
func (s *Server) buildGraph(name string, instances int) (*graph.Graph, error) {
	sc, err := script.Builtin(name)
	if err != nil {
		return nil, err
	}
	if instances > 0 {
		sc.SetInstances(instances)
	}
	return sc.Build(s.registry)
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// sceneParams holds the parameters shared by the render and inspect endpoints
type sceneParams struct {
	Scene     string
	Graph     string
	Width     int
	Height    int
	Frames    int
	Instances int
}

func parseSceneParams(values url.Values) (sceneParams, error) {
	p := sceneParams{Scene: values.Get("scene"), Graph: values.Get("graph")}
	if p.Scene == "" {
		p.Scene = "cornell"
	}
	if p.Graph == "" {
		p.Graph = script.ScreenSpaceReSTIR
	}
	var err error
	if p.Width, err = parseIntParam(values, "width", 400, 1, 2000); err != nil {
		return p, err
	}
	if p.Height, err = parseIntParam(values, "height", 400, 1, 2000); err != nil {
		return p, err
	}
	if p.Frames, err = parseIntParam(values, "frames", 20, 1, 10000); err != nil {
		return p, err
	}
	if p.Instances, err = parseIntParam(values, "instances", 0, 0, 16); err != nil {
		return p, err
	}
	return p, nil
}
