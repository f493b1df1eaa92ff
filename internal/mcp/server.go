package mcp

import (
	"context"
	"fmt"
	"sync"

	"fleetcast/internal/config"
	"fleetcast/internal/fleet"
	"fleetcast/internal/params"
	"fleetcast/internal/session"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

const (
	serverName    = "fleetcast"
	serverVersion = "0.3.0"

	// maxSessions bounds open sessions; close_session frees a slot.
	maxSessions = 32
)

// Server exposes fleet sessions as MCP tools. Each open_session call creates an
// independent session; tools address it by id.
type Server struct {
	cfg   *config.AppConfig
	store *params.Store
	mcp   *mcp.Server

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// NewServer creates a new MCP server and registers its tools.
func NewServer(cfg *config.AppConfig) *Server {
	s := &Server{
		cfg:      cfg,
		store:    params.NewStore(cfg.ParamsDir),
		sessions: make(map[string]*session.Session),
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	s.registerTools()
	return s
}

// Serve runs the server over stdio until the client disconnects or ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("version", serverVersion).Msg("MCP server listening on stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// Connect attaches the server to an arbitrary transport.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}

func (s *Server) openSession(fleetFile, profile string) (*session.Session, error) {
	if fleetFile == "" {
		fleetFile = s.cfg.FleetDataFile
	}
	if fleetFile == "" {
		return nil, fmt.Errorf("no fleet data file given and FLEET_DATA_FILE is not set")
	}
	if profile == "" {
		profile = s.cfg.Profile
	}

	data, err := fleet.Load(fleetFile)
	if err != nil {
		return nil, err
	}

	sess, err := session.New(data, session.Options{
		Profile:   profile,
		Store:     s.store,
		Bounds:    s.cfg.CalibrationBounds,
		CacheSize: s.cfg.HazardCacheSize,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) >= maxSessions {
		return nil, fmt.Errorf("%d sessions are already open; close one with close_session first", len(s.sessions))
	}
	s.sessions[sess.ID] = sess
	return sess, nil
}

// closeSession forgets a session. Its persisted profile stays on disk.
func (s *Server) closeSession(id string) (*session.Session, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookupLocked(id)
	if err != nil {
		return nil, len(s.sessions), err
	}
	delete(s.sessions, sess.ID)
	return sess, len(s.sessions), nil
}

func (s *Server) lookup(id string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(id)
}

func (s *Server) lookupLocked(id string) (*session.Session, error) {
	if id == "" {
		// A single open session may be addressed implicitly.
		if len(s.sessions) == 1 {
			for _, sess := range s.sessions {
				return sess, nil
			}
		}
		return nil, fmt.Errorf("session_id is required when %d sessions are open", len(s.sessions))
	}

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("unknown session %q; call open_session first", id)
	}
	return sess, nil
}
