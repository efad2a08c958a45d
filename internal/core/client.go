package core

import "sync"

const (
	commandBuffer       = 8
	defaultEventsBuffer = 64
)

// Client is one live connection as seen by the core layer.
// The transport sends on Commands until it calls Hub.UnregisterClient, which
// closes Commands. The hub owns Events and closes it once the client's last
// command has been handled.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	closeOnce sync.Once
}

// NewClient constructs a client with initialized channels.
// A non-positive buffer selects the default events buffer.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultEventsBuffer
	}
	return &Client{
		ID:       id,
		Commands: make(chan *Command, commandBuffer),
		Events:   make(chan *Event, buffer),
	}
}

func (c *Client) closeCommands() {
	c.closeOnce.Do(func() { close(c.Commands) })
}
