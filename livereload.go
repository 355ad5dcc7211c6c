package vdom

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"gopkg.in/yaml.v3"
)

// LiveReloadConfig configures the development reload endpoint.
type LiveReloadConfig struct {
	Addr         string        `yaml:"addr"`
	Path         string        `yaml:"path"`
	PingInterval time.Duration `yaml:"ping_interval"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// UnmarshalYAML decodes durations from strings like "10s"; yaml has no
// native duration type. Absent fields keep whatever the target already
// holds, so decoding over defaults only overrides what the file sets.
func (c *LiveReloadConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Addr         string `yaml:"addr"`
		Path         string `yaml:"path"`
		PingInterval string `yaml:"ping_interval"`
		WriteTimeout string `yaml:"write_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Addr != "" {
		c.Addr = raw.Addr
	}
	if raw.Path != "" {
		c.Path = raw.Path
	}
	if raw.PingInterval != "" {
		d, err := time.ParseDuration(raw.PingInterval)
		if err != nil {
			return fmt.Errorf("ping_interval: %w", err)
		}
		c.PingInterval = d
	}
	if raw.WriteTimeout != "" {
		d, err := time.ParseDuration(raw.WriteTimeout)
		if err != nil {
			return fmt.Errorf("write_timeout: %w", err)
		}
		c.WriteTimeout = d
	}
	return nil
}

// DefaultLiveReloadConfig returns the defaults used when no config file is
// present.
func DefaultLiveReloadConfig() LiveReloadConfig {
	return LiveReloadConfig{
		Addr:         "localhost:35729",
		Path:         "/livereload",
		PingInterval: 30 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// LoadLiveReloadConfig reads a YAML config file, filling unset fields with
// defaults.
func LoadLiveReloadConfig(path string) (LiveReloadConfig, error) {
	cfg := DefaultLiveReloadConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultLiveReloadConfig().Addr
	}
	if cfg.Path == "" {
		cfg.Path = DefaultLiveReloadConfig().Path
	}
	return cfg, nil
}

// LiveReloadServer pushes template patches to connected development
// clients over WebSocket. It implements http.Handler for the configured
// endpoint.
type LiveReloadServer struct {
	config   LiveReloadConfig
	upgrader websocket.Upgrader
	validate *validator.Validate

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

// NewLiveReloadServer creates a server with the given config.
func NewLiveReloadServer(config LiveReloadConfig) *LiveReloadServer {
	return &LiveReloadServer{
		config: config,
		upgrader: websocket.Upgrader{
			// Development tool: the editor process and the app may sit on
			// different local origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		validate: validator.New(),
		conns:    make(map[*websocket.Conn]bool),
	}
}

// ConnCount returns the number of connected clients.
func (s *LiveReloadServer) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *LiveReloadServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("livereload: upgrade failed: %v", err)
		return
	}

	s.mu.Lock()
	s.conns[conn] = true
	s.mu.Unlock()
	log.Printf("livereload: client connected from %s", conn.RemoteAddr())

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	// Clients never send payloads; the read loop only services control
	// frames and notices the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("livereload: read error: %v", err)
			}
			return
		}
	}
}

// Broadcast validates a patch and sends it to every connected client.
// Clients whose write fails are dropped.
func (s *LiveReloadServer) Broadcast(upd HotReloadTemplateWithLocation) error {
	if err := s.validate.Struct(upd); err != nil {
		return fmt.Errorf("invalid reload payload: %w", err)
	}
	data, err := json.Marshal(upd)
	if err != nil {
		return fmt.Errorf("marshal reload payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("livereload: dropping client %s: %v", conn.RemoteAddr(), err)
			conn.Close()
			delete(s.conns, conn)
		}
	}
	return nil
}

// Close disconnects every client.
func (s *LiveReloadServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
		delete(s.conns, conn)
	}
	return nil
}

// LiveReloadClient receives template patches from a development server.
type LiveReloadClient struct {
	conn     *websocket.Conn
	validate *validator.Validate
}

// DialLiveReload connects to a reload server at a ws:// URL.
func DialLiveReload(ctx context.Context, url string) (*LiveReloadClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &LiveReloadClient{conn: conn, validate: validator.New()}, nil
}

// Next blocks until the server sends the next patch.
func (c *LiveReloadClient) Next() (HotReloadTemplateWithLocation, error) {
	var upd HotReloadTemplateWithLocation
	if err := c.conn.ReadJSON(&upd); err != nil {
		return upd, fmt.Errorf("read reload payload: %w", err)
	}
	if err := c.validate.Struct(upd); err != nil {
		return upd, fmt.Errorf("invalid reload payload: %w", err)
	}
	return upd, nil
}

// Watch applies incoming patches until the context is canceled or the
// connection fails.
func (c *LiveReloadClient) Watch(ctx context.Context, apply func(HotReloadTemplateWithLocation) error) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.conn.Close()
		case <-done:
		}
	}()

	for {
		upd, err := c.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if err := apply(upd); err != nil {
			return err
		}
	}
}

// Close closes the connection.
func (c *LiveReloadClient) Close() error {
	return c.conn.Close()
}
