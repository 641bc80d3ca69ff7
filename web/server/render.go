package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/df07/go-csg-pathtracer/pkg/core"
	"github.com/df07/go-csg-pathtracer/pkg/geometry"
	"github.com/df07/go-csg-pathtracer/pkg/loaders"
	"github.com/df07/go-csg-pathtracer/pkg/renderer"
	"github.com/df07/go-csg-pathtracer/pkg/scene"
)

// session is the render currently shown by the preview
type session struct {
	request  RenderRequest
	scene    *scene.Scene
	camera   *geometry.Camera
	renderer *renderer.Renderer
	buffer   []byte
	width    int
	height   int
}

// StateResponse reports the preview render's progress
type StateResponse struct {
	State      string  `json:"state"` // "idle" or "running"
	Scene      string  `json:"scene,omitempty"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	TilesDone  int     `json:"tilesDone"`
	TilesTotal int     `json:"totalTiles"`
	Pixels     int64   `json:"pixels"`
	Samples    int64   `json:"samples"`
	Progress   float64 `json:"progress"` // Fraction of tiles completed
	ElapsedMs  int64   `json:"elapsedMs"`
}

// newSession builds the scene and a renderer for req
func (s *Server) newSession(req *RenderRequest, logger core.Logger) (*session, error) {
	sceneObj, render, err := s.createScene(req.Scene, req.Seed)
	if err != nil {
		return nil, err
	}

	sc := sceneObj.SamplingConfig
	width, height := sc.Width, sc.Height
	cameraConfig := sceneObj.CameraConfig
	if req.Width > 0 {
		width = req.Width
	}
	if req.Height > 0 {
		height = req.Height
	}
	if req.Width > 0 || req.Height > 0 {
		cameraConfig.AspectRatio = float64(width) / float64(height)
	}
	if err := cameraConfig.Validate(); err != nil {
		return nil, err
	}

	config := renderer.Config{
		Samples: sc.Samples,
		Bounces: sc.Bounces,
		Workers: 0, // Auto-detect
		Seed:    req.Seed,
	}
	// File settings apply like they do on the command line
	if render != nil {
		config.Workers = render.Workers
		if render.Seed != 0 && !req.seedGiven {
			config.Seed = render.Seed
		}
	}
	if req.Samples > 0 {
		config.Samples = req.Samples
	}
	if req.Bounces > 0 {
		config.Bounces = req.Bounces
	}

	return &session{
		request:  *req,
		scene:    sceneObj,
		camera:   geometry.NewCamera(cameraConfig),
		renderer: renderer.NewRenderer(config, logger),
		buffer:   make([]byte, width*height*4),
		width:    width,
		height:   height,
	}, nil
}

// handleRender replaces the preview with a new render and starts it
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	req, err := s.parseRenderRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	renderID := fmt.Sprintf("render-%d", time.Now().UnixNano())
	next, err := s.newSession(req, NewWebLogger(renderID, s.console, s.logger))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errUnknownScene) || errors.Is(err, loaders.ErrInvalidScene) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	s.mu.Lock()
	if s.session != nil {
		s.session.renderer.Close()
	}
	s.session = next
	err = next.renderer.Start(next.camera, next.scene, next.buffer, next.width, next.height)
	state := s.stateLocked()
	s.mu.Unlock()

	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, state)
}

// handleStop stops the preview render, keeping what was drawn so far
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	s.mu.Lock()
	if s.session != nil {
		s.session.renderer.Stop()
	}
	state := s.stateLocked()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, state)
}

// handleState reports progress of the preview render
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) state() StateResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Server) stateLocked() StateResponse {
	if s.session == nil {
		return StateResponse{State: renderer.Idle.String()}
	}

	stats := s.session.renderer.Progress()
	return StateResponse{
		State:      stats.State.String(),
		Scene:      s.session.request.Scene,
		Width:      s.session.width,
		Height:     s.session.height,
		TilesDone:  stats.TilesDone,
		TilesTotal: stats.TilesTotal,
		Pixels:     stats.Pixels,
		Samples:    stats.Samples,
		Progress:   stats.Fraction(),
		ElapsedMs:  stats.Elapsed.Milliseconds(),
	}
}

// handleImage encodes the preview buffer as PNG. While a render is running
// the image shows whatever tiles have been drawn.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "nothing rendered yet")
		return
	}
	snapshot := make([]byte, len(s.session.buffer))
	copy(snapshot, s.session.buffer)
	width, height := s.session.width, s.session.height
	s.mu.Unlock()

	img, err := loaders.ToRGBA(snapshot, width, height)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := loaders.EncodeImage(&buf, img, ".png"); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(buf.Bytes())
}
