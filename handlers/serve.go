package handlers

import (
	"context"
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"github.com/4cecoder/snakeserver/game"
	"github.com/4cecoder/snakeserver/secure"
	"golang.org/x/time/rate"
)

type ServerConfig struct {
	HandshakeTimeout time.Duration
	IdleTimeout      time.Duration
	// AcceptRate is new connections per second allowed from one host; zero
	// disables the limiter.
	AcceptRate  float64
	AcceptBurst int
}

// Server accepts game connections and runs one Session per connection.
type Server struct {
	keys    *secure.KeyPair
	loop    *game.Loop
	chat    *ChatRelay
	manager *Manager
	cfg     ServerConfig
	started time.Time

	limiter *acceptLimiter

	clientsMutex sync.Mutex
	clients      map[Conn]struct{}
	closing      bool
	wg           sync.WaitGroup
}

func NewServer(keys *secure.KeyPair, loop *game.Loop, chat *ChatRelay, cfg ServerConfig) *Server {
	s := &Server{
		keys:    keys,
		loop:    loop,
		chat:    chat,
		manager: NewManager(loop),
		cfg:     cfg,
		started: time.Now(),
		clients: make(map[Conn]struct{}),
	}
	if cfg.AcceptRate > 0 {
		s.limiter = newAcceptLimiter(rate.Limit(cfg.AcceptRate), max(cfg.AcceptBurst, 1))
	}
	return s
}

func (s *Server) Manager() *Manager { return s.manager }

// Serve accepts connections on ln until ctx is cancelled, then closes every
// live session and waits for them to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	defer s.wg.Wait()
	defer s.closeClients()

	log.Printf("[SESSION] accepting game connections on %s", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		remote := conn.RemoteAddr().String()
		if !s.allow(remote) {
			log.Printf("[SESSION] rejecting %s: too many connections", remote)
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn, remote)
		}()
	}
}

// handleConn owns conn for the lifetime of the session. A failure here only
// ever ends this one session.
func (s *Server) handleConn(conn Conn, remote string) {
	// Runs after the cleanup defers below have released the player.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[SESSION] session with %s panicked: %v", remote, r)
		}
	}()
	defer conn.Close()
	if !s.registerClient(conn) {
		return
	}
	defer s.unregisterClient(conn)

	sess := newSession(s, conn, remote)
	if err := sess.handshake(); err != nil {
		log.Printf("[SESSION] handshake with %s failed: %v", remote, err)
		return
	}

	playerID, err := s.manager.Register(remote)
	if err != nil {
		log.Printf("[SESSION] cannot place player from %s: %v", remote, err)
		return
	}
	defer s.manager.Unregister(playerID)
	sess.PlayerID = playerID

	sess.run()
}

func (s *Server) allow(remote string) bool {
	if s.limiter == nil {
		return true
	}
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	return s.limiter.get(host).Allow()
}

func (s *Server) registerClient(conn Conn) bool {
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	if s.closing {
		return false
	}
	s.clients[conn] = struct{}{}
	return true
}

func (s *Server) unregisterClient(conn Conn) {
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	delete(s.clients, conn)
}

func (s *Server) closeClients() {
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	s.closing = true
	for conn := range s.clients {
		conn.Close()
	}
}

// acceptLimiter keeps one token bucket per remote host.
type acceptLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newAcceptLimiter(limit rate.Limit, burst int) *acceptLimiter {
	return &acceptLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (a *acceptLimiter) get(host string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()

	limiter, ok := a.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(a.limit, a.burst)
		a.limiters[host] = limiter
	}
	return limiter
}
