package pubsub

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
)

// EmbeddedNATSPubSub implements pub/sub using an embedded NATS server
// This is ideal for development as it provides a real NATS server in-process
// without requiring external infrastructure
type EmbeddedNATSPubSub struct {
	*jetStreamBridge
	server *server.Server
}

// EmbeddedNATSOptions configures the embedded NATS server
type EmbeddedNATSOptions struct {
	Port          int           // Port to listen on (-1 or 0 = random available port)
	SubjectPrefix string        // Prefix for per-draft subjects
	StreamName    string        // JetStream stream name
	StoreDir      string        // Directory for JetStream storage (empty = in-memory)
	MaxAge        time.Duration // Event retention
}

// DefaultEmbeddedNATSOptions returns sensible defaults for development
func DefaultEmbeddedNATSOptions() EmbeddedNATSOptions {
	return EmbeddedNATSOptions{
		Port:          -1,
		SubjectPrefix: DefaultSubjectPrefix,
		StreamName:    DefaultStreamName,
		MaxAge:        time.Hour,
	}
}

// NewEmbeddedNATSPubSub creates a new embedded NATS server and pub/sub
func NewEmbeddedNATSPubSub(opts EmbeddedNATSOptions) (*EmbeddedNATSPubSub, error) {
	port := opts.Port
	if port == 0 {
		port = -1 // 0 means default (4222), -1 means random
	}

	serverOpts := &server.Options{
		Port:      port,
		JetStream: true,
		NoSigs:    true, // Don't register signal handlers
	}
	if opts.StoreDir != "" {
		serverOpts.StoreDir = opts.StoreDir
	}

	ns, err := server.NewServer(serverOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedded NATS server: %w", err)
	}
	ns.SetLogger(&natsLogger{}, false, false)

	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server failed to start within timeout")
	}

	clientURL := ns.ClientURL()
	logger.Info("Embedded NATS server started", "url", clientURL)

	nc, err := nats.Connect(clientURL)
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("failed to connect to embedded NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		ns.Shutdown()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamName := opts.StreamName
	if streamName == "" {
		streamName = DefaultStreamName
	}
	storage := nats.MemoryStorage
	if opts.StoreDir != "" {
		storage = nats.FileStorage
	}
	err = ensureStream(js, &nats.StreamConfig{
		Name:     streamName,
		Subjects: StreamSubjects(opts.SubjectPrefix),
		Storage:  storage,
		MaxAge:   opts.MaxAge,
	})
	if err != nil {
		nc.Close()
		ns.Shutdown()
		return nil, fmt.Errorf("failed to create JetStream stream: %w", err)
	}

	bridge := newJetStreamBridge(nc, js, opts.SubjectPrefix)
	if err := bridge.start(); err != nil {
		nc.Close()
		ns.Shutdown()
		return nil, fmt.Errorf("failed to subscribe to JetStream: %w", err)
	}
	logger.Info("JetStream stream created", "stream", streamName, "prefix", bridge.prefix)

	return &EmbeddedNATSPubSub{jetStreamBridge: bridge, server: ns}, nil
}

// Close shuts down the embedded NATS server
func (p *EmbeddedNATSPubSub) Close() {
	logger.Info("Shutting down embedded NATS server")
	p.close()

	if p.server != nil {
		p.server.Shutdown()
		p.server.WaitForShutdown()
	}
	logger.Info("Embedded NATS server shut down")
}

// GetServerURL returns the URL of the embedded NATS server
func (p *EmbeddedNATSPubSub) GetServerURL() string {
	return p.server.ClientURL()
}

// natsLogger adapts our logger to the NATS server logger interface
type natsLogger struct{}

func (l *natsLogger) Noticef(format string, v ...interface{}) {
	logger.Info(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Warnf(format string, v ...interface{}) {
	logger.Warn(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Fatalf(format string, v ...interface{}) {
	logger.Error(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Errorf(format string, v ...interface{}) {
	logger.Error(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Debugf(format string, v ...interface{}) {
	logger.Debug(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Tracef(format string, v ...interface{}) {
	logger.Debug(fmt.Sprintf("[NATS TRACE] "+format, v...))
}
