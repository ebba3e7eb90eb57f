// Package server generates layouts for WebSocket clients.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/roomgen/internal/config"
	"github.com/lawnchairsociety/roomgen/internal/database"
	"github.com/lawnchairsociety/roomgen/internal/layout"
	"github.com/lawnchairsociety/roomgen/internal/layoutfile"
	"github.com/lawnchairsociety/roomgen/internal/logger"
)

var (
	ErrTooManyRooms  = errors.New("server: request exceeds the room limit")
	ErrRoomTooLarge  = errors.New("server: step exceeds the block limit")
	ErrNoStore       = errors.New("server: no layout store configured")
	ErrUnknownType   = errors.New("server: unknown request type")
	ErrEmptyRequest  = errors.New("server: generate request has no steps")
	ErrInvalidBounds = errors.New("server: invalid bounds")
)

// LayoutStore persists generated layouts
type LayoutStore interface {
	SaveLayout(ctx context.Context, doc *layoutfile.Document) (int64, error)
	GetLayout(ctx context.Context, id int64) (*layoutfile.Document, error)
}

// Server answers generate and get requests over WebSocket. Each request gets
// its own Generator.
type Server struct {
	cfg         config.ServerConfig
	store       LayoutStore
	connLimiter *ConnLimiter
	upgrader    websocket.Upgrader

	mu         sync.Mutex
	httpServer *http.Server
	conns      map[*websocket.Conn]struct{}
	wg         sync.WaitGroup
}

// New creates a server. store may be nil, in which case save and get fail.
func New(cfg config.ServerConfig, store LayoutStore) *Server {
	s := &Server{
		cfg:         cfg,
		store:       store,
		connLimiter: NewConnLimiter(cfg.Connections),
		conns:       make(map[*websocket.Conn]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}
	return s
}

// Handler returns the HTTP routes: /ws and /healthz
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocketUpgrade)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// Start listens on address until Shutdown
func (s *Server) Start(address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	logger.Info("WebSocket server listening", "address", address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, closes open ones and waits for their
// handlers to return
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	logger.Info("Server shutdown complete")
	return err
}

func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r, s.cfg.Connections.TrustProxyHeaders)
	if !s.connLimiter.TryAcquire(ip) {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", ip)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		s.connLimiter.Release(ip)
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go s.handleConnection(conn, ip)
}

func (s *Server) handleConnection(conn *websocket.Conn, ip string) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
		s.connLimiter.Release(ip)
		s.wg.Done()
	}()

	if s.cfg.WebSocket.MaxMessageSize > 0 {
		conn.SetReadLimit(s.cfg.WebSocket.MaxMessageSize)
	}
	log := logger.With("client_ip", ip)
	log.Debug("client connected")

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("client read failed", "error", err)
			}
			return
		}

		resp := s.handle(context.Background(), req)
		if resp.Type == TypeError {
			log.Info("request failed", "type", req.Type, "error", resp.Error)
		}
		if err := conn.WriteJSON(resp); err != nil {
			log.Debug("client write failed", "error", err)
			return
		}
	}
}

// handle answers one request
func (s *Server) handle(ctx context.Context, req Request) Response {
	switch req.Type {
	case TypeGenerate:
		resp, err := s.generate(ctx, req)
		if err != nil {
			return errorResponse(err)
		}
		return resp
	case TypeGet:
		if s.store == nil {
			return errorResponse(ErrNoStore)
		}
		doc, err := s.store.GetLayout(ctx, req.LayoutID)
		if err != nil {
			return errorResponse(err)
		}
		resp, err := layoutResponse(doc)
		if err != nil {
			return errorResponse(err)
		}
		resp.LayoutID = req.LayoutID
		return resp
	default:
		return errorResponse(fmt.Errorf("%w: %q", ErrUnknownType, req.Type))
	}
}

func (s *Server) generate(ctx context.Context, req Request) (Response, error) {
	gen := config.GeneratorConfig{
		Seed:   req.Seed,
		Bounds: req.Bounds,
		Steps:  configSteps(req.Steps),
	}
	if len(gen.Steps) == 0 {
		return Response{}, ErrEmptyRequest
	}
	if b := gen.Bounds; b != nil && (b.MaxX < b.MinX || b.MaxY < b.MinY) {
		return Response{}, ErrInvalidBounds
	}
	steps, err := gen.LayoutSteps()
	if err != nil {
		return Response{}, err
	}
	if err := s.checkLimits(steps); err != nil {
		return Response{}, err
	}

	if gen.Seed == 0 {
		gen.Seed = time.Now().UnixNano()
	}
	g := layout.New(gen.Options()...)
	placed, err := g.Apply(steps)
	if err != nil {
		return Response{}, err
	}

	doc := layoutfile.FromRooms(g.RawRooms(), gen.Seed)
	resp, err := layoutResponse(doc)
	if err != nil {
		return Response{}, err
	}
	resp.Placed = placed

	if req.Save {
		if s.store == nil {
			return Response{}, ErrNoStore
		}
		id, err := s.store.SaveLayout(ctx, doc)
		if errors.Is(err, database.ErrLayoutExists) {
			if finder, ok := s.store.(interface {
				FindLayoutByDigest(context.Context, string) (int64, error)
			}); ok {
				id, err = finder.FindLayoutByDigest(ctx, doc.Digest)
			}
		}
		if err != nil {
			return Response{}, err
		}
		resp.LayoutID = id
	}

	logger.Debug("layout generated", "seed", gen.Seed, "rooms", placed, "digest", doc.Digest)
	return resp, nil
}

func (s *Server) checkLimits(steps []layout.Step) error {
	limit := s.cfg.MaxRoomsPerRequest
	total := 0
	for i, step := range steps {
		if s.cfg.MaxBlocksPerRoom > 0 && step.MaxBlocks > s.cfg.MaxBlocksPerRoom {
			return fmt.Errorf("%w: step %d asks for %d blocks, limit %d", ErrRoomTooLarge, i, step.MaxBlocks, s.cfg.MaxBlocksPerRoom)
		}
		// Compared against the remaining budget so huge counts cannot wrap the total
		if limit > 0 && step.Count > limit-total {
			return fmt.Errorf("%w: step %d asks for %d rooms, %d of %d left", ErrTooManyRooms, i, step.Count, limit-total, limit)
		}
		total += step.Count
	}
	return nil
}

func layoutResponse(doc *layoutfile.Document) (Response, error) {
	rooms, err := doc.RoomsData()
	if err != nil {
		return Response{}, err
	}
	resp := Response{
		Type:   TypeLayout,
		Seed:   doc.Seed,
		Digest: doc.Digest,
		Placed: len(doc.Rooms),
		Rooms:  make([]RoomReply, 0, len(doc.Rooms)),
	}
	for i, r := range doc.Rooms {
		resp.Rooms = append(resp.Rooms, RoomReply{
			Index:       r.Index,
			Partitioned: r.Partitioned,
			DoorCount:   r.DoorCount,
			Neighbors:   r.Neighbors,
			Blocks:      rooms[i].Blocks,
		})
	}
	return resp, nil
}
