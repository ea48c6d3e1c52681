package pubsub

import (
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
)

// NATSPubSub implements pub/sub using an external NATS JetStream server
type NATSPubSub struct {
	*jetStreamBridge
}

// NewNATSPubSub connects to natsURL and publishes draft events beneath
// subjectPrefix on a file-backed stream.
func NewNATSPubSub(natsURL, subjectPrefix, streamName string) (*NATSPubSub, error) {
	nc, err := nats.Connect(natsURL, nats.Name("fantasy-draft-assistant"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if streamName == "" {
		streamName = DefaultStreamName
	}
	err = ensureStream(js, &nats.StreamConfig{
		Name:     streamName,
		Subjects: StreamSubjects(subjectPrefix),
		Storage:  nats.FileStorage,
		MaxAge:   0, // Keep events indefinitely for replay
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	bridge := newJetStreamBridge(nc, js, subjectPrefix)
	if err := bridge.start(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to subscribe to stream: %w", err)
	}
	logger.Info("Connected to NATS", "url", natsURL, "stream", streamName, "prefix", bridge.prefix)

	return &NATSPubSub{bridge}, nil
}

// Close closes the NATS connection
func (p *NATSPubSub) Close() {
	p.close()
}
