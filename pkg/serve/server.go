package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/praetorian-inc/covremap/pkg/remap"
	"github.com/praetorian-inc/covremap/pkg/store"
	"github.com/praetorian-inc/covremap/pkg/types"
)

// Version is the server protocol version
const Version = "1.0.0"

// Config holds server collaborators.
type Config struct {
	// Defaults seeds every remap request. Sources and Warn are per request;
	// Exclude patterns are extended by the request's own.
	Defaults remap.Config
	// Store, when set, persists results of requests with save=true.
	Store  store.Store
	Logger *slog.Logger
}

// Server answers remap requests over NDJSON, one at a time
type Server struct {
	cfg     Config
	logger  *slog.Logger
	encoder *json.Encoder
	decoder *json.Decoder
}

// NewServer creates a new streaming server
func NewServer(cfg Config, in io.Reader, out io.Writer) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		logger:  logger,
		encoder: json.NewEncoder(out),
		decoder: json.NewDecoder(bufio.NewReader(in)),
	}
}

// Run starts the server main loop
func (s *Server) Run(ctx context.Context) error {
	s.sendReady()

	reqChan := make(chan Request, 1)
	errChan := make(chan error, 1)

	go func() {
		for {
			var req Request
			if err := s.decoder.Decode(&req); err != nil {
				errChan <- err
				return
			}
			select {
			case reqChan <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Process requests until stdin closes or context cancels
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errChan:
			// Drain any pending requests before handling EOF
			for {
				select {
				case req := <-reqChan:
					if s.processRequest(req) {
						return nil
					}
				default:
					if err == io.EOF {
						return nil
					}
					s.sendError("decode", err.Error())
					return nil
				}
			}
		case req := <-reqChan:
			if s.processRequest(req) {
				return nil
			}
		}
	}
}

// processRequest handles a single request and returns true if the server should exit
func (s *Server) processRequest(req Request) bool {
	s.logger.Debug("request", "type", req.Type)
	switch req.Type {
	case "remap":
		s.handleRemap(req.Payload)
	case "runs":
		s.handleRuns()
	case "close":
		return true
	default:
		s.sendError("unknown", "unknown request type: "+req.Type)
	}
	return false
}

func (s *Server) sendReady() {
	data, _ := json.Marshal(ReadyData{Version: Version})
	s.encoder.Encode(Response{
		Success: true,
		Type:    "ready",
		Data:    data,
	})
}

func (s *Server) handleRemap(payload json.RawMessage) {
	var p RemapPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError("remap", err.Error())
		return
	}
	if p.Save && s.cfg.Store == nil {
		s.sendError("remap", "no datastore configured")
		return
	}

	var warnings []string
	cfg := s.cfg.Defaults
	cfg.Sources = p.Sources
	cfg.Exclude = append(append([]string(nil), s.cfg.Defaults.Exclude...), p.Exclude...)
	cfg.Warn = func(err error) {
		s.logger.Warn(err.Error())
		warnings = append(warnings, err.Error())
	}

	result, err := remap.Remap(cfg)
	if err != nil {
		s.sendError("remap", err.Error())
		return
	}

	out := RemapData{
		Coverage: result.Coverage.FinalCoverage(),
		Files:    result.Coverage.Summaries(),
		Total:    result.Coverage.TotalSummary(),
		Stats:    result.Stats,
		Warnings: warnings,
	}

	if p.Save {
		run := &types.Run{Sources: p.Sources, Coverage: out.Coverage}
		if err := s.cfg.Store.AddRun(run); err != nil {
			s.sendError("remap", err.Error())
			return
		}
		out.RunID = run.ID
	}

	data, _ := json.Marshal(out)
	s.encoder.Encode(Response{
		Success: true,
		Type:    "remap",
		Data:    data,
	})
}

func (s *Server) handleRuns() {
	if s.cfg.Store == nil {
		s.sendError("runs", "no datastore configured")
		return
	}
	runs, err := s.cfg.Store.ListRuns()
	if err != nil {
		s.sendError("runs", err.Error())
		return
	}
	if runs == nil {
		runs = []*types.RunInfo{}
	}

	data, _ := json.Marshal(RunsData{Runs: runs})
	s.encoder.Encode(Response{
		Success: true,
		Type:    "runs",
		Data:    data,
	})
}

func (s *Server) sendError(reqType, msg string) {
	s.encoder.Encode(Response{
		Success: false,
		Type:    reqType,
		Error:   msg,
	})
}
