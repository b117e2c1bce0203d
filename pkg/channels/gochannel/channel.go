// Package gochannel provides the in-memory pub/sub used for local development and tests.
package gochannel

import (
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// DefaultBuffer is the number of CRM events a topic holds before Publish blocks.
const DefaultBuffer = 1000

var ErrInvalidBuffer = errors.New("gochannel buffer must be positive")

// Config tunes the in-memory pub/sub.
type Config struct {
	Buffer int
	// Persistent replays every message published on a topic to subscribers
	// that join later. Messages are never released, so it suits tests only.
	Persistent bool
}

// DefaultConfig is used by the services when no broker is configured.
func DefaultConfig() Config {
	return Config{Buffer: DefaultBuffer}
}

// CreateChannel returns the same GoChannel instance as publisher and subscriber.
func CreateChannel(logger watermill.LoggerAdapter, config Config) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	if config.Buffer <= 0 {
		return nil, nil, ErrInvalidBuffer
	}

	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            int64(config.Buffer),
			Persistent:                     config.Persistent,
			BlockPublishUntilSubscriberAck: false,
		},
		logger,
	)

	return pubSub, pubSub, nil
}

// CreateTestChannel keeps published messages so subscribers started late still receive them.
func CreateTestChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	return CreateChannel(logger, Config{Buffer: 10, Persistent: true})
}
