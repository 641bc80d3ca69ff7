package server

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/df07/go-csg-pathtracer/pkg/loaders"
	"github.com/df07/go-csg-pathtracer/pkg/renderer"
	"github.com/df07/go-csg-pathtracer/pkg/scene"
)

//go:embed static
var staticFiles embed.FS

// Server serves an interactive preview of one render at a time
type Server struct {
	port     int
	logger   *slog.Logger
	hub      *hub
	console  chan ConsoleMessage
	upgrader websocket.Upgrader

	// Progress push interval for WebSocket clients
	pushInterval time.Duration

	mu      sync.Mutex
	session *session // current render, guarded by mu

	stopOnce sync.Once
	done     chan struct{}
}

// NewServer creates a new web server. A nil logger uses slog.Default().
func NewServer(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		port:         port,
		logger:       logger,
		hub:          newHub(),
		console:      make(chan ConsoleMessage, 100),
		pushInterval: 250 * time.Millisecond,
		done:         make(chan struct{}),
	}
	go s.pumpConsole()
	return s
}

// Handler returns the HTTP routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	static, _ := fs.Sub(staticFiles, "static")
	mux.Handle("/", http.FileServer(http.FS(static)))

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/render", s.handleRender)
	mux.HandleFunc("/api/stop", s.handleStop)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/image.png", s.handleImage)
	mux.HandleFunc("/api/inspect", s.handleInspect)
	mux.HandleFunc("/api/ws", s.handleStream)
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting web server", "url", "http://localhost"+addr)
	return http.ListenAndServe(addr, s.Handler())
}

// Close stops the current render and releases its workers
func (s *Server) Close() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		if s.session != nil {
			s.session.renderer.Close()
		}
		s.mu.Unlock()
		close(s.done)
	})
}

// pumpConsole forwards renderer log lines to every WebSocket subscriber
func (s *Server) pumpConsole() {
	for {
		select {
		case msg := <-s.console:
			s.hub.publish(msg)
		case <-s.done:
			return
		}
	}
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists built-in and file scenes
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	response, err := scene.ListAllScenes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// RenderRequest represents a render request from the client
type RenderRequest struct {
	Scene   string `json:"scene"`   // Scene ID, e.g. "default" or "file:biconvex-lens"
	Width   int    `json:"width"`   // Image width (0 = scene setting)
	Height  int    `json:"height"`  // Image height (0 = scene setting)
	Samples int    `json:"samples"` // Paths per pixel (0 = scene setting)
	Bounces int    `json:"bounces"` // Maximum bounces (0 = scene setting)
	Seed    int64  `json:"seed"`    // Seed for the scene layout and the render

	seedGiven bool // Seed came from the query rather than the default
}

// parseRenderRequest parses request parameters
func (s *Server) parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	query := r.URL.Query()
	req := &RenderRequest{Scene: query.Get("scene")}
	if req.Scene == "" {
		req.Scene = "default"
	}

	var err error
	if req.Width, err = parseIntParam(query, "width", 0, 1, 4000); err != nil {
		return nil, err
	}
	if req.Height, err = parseIntParam(query, "height", 0, 1, 4000); err != nil {
		return nil, err
	}
	if req.Samples, err = parseIntParam(query, "samples", 0, 1, 10000); err != nil {
		return nil, err
	}
	if req.Bounces, err = parseIntParam(query, "bounces", 0, 1, 1000); err != nil {
		return nil, err
	}
	seed, err := parseIntParam(query, "seed", int(renderer.DefaultConfig().Seed), 0, 1<<31-1)
	if err != nil {
		return nil, err
	}
	req.Seed = int64(seed)
	req.seedGiven = query.Has("seed")

	// Performance warning
	if req.Width*req.Height > 1920*1080 && req.Samples > 100 {
		s.logger.Warn("large image with high samples may render slowly", "width", req.Width, "height", req.Height, "samples", req.Samples)
	}

	return req, nil
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

var errUnknownScene = errors.New("unknown scene")

// createScene builds a built-in scene or loads a "file:<name>" scene.
// File scenes also return their render section, which may be nil.
func (s *Server) createScene(id string, seed int64) (*scene.Scene, *loaders.RenderSection, error) {
	if !strings.HasPrefix(id, "file:") {
		sceneObj, err := scene.NewBuiltInScene(id, seed)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", errUnknownScene, id)
		}
		return sceneObj, nil, nil
	}

	files, err := scene.ListSceneFiles()
	if err != nil {
		return nil, nil, err
	}
	for _, info := range files {
		if info.ID == id {
			sceneObj, desc, err := loaders.LoadScene(info.FilePath)
			if err != nil {
				return nil, nil, err
			}
			return sceneObj, desc.Render, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %s", errUnknownScene, id)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
