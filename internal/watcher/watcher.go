package watcher

import (
	"github.com/insightpilot/insightpilot/pkg/models"
)

// Watcher is the interface for all record sources
type Watcher interface {
	Start() error
	Stop()
}

// Item is one record picked up by a watcher. Err is set when the source
// could not be decoded; Record is then empty.
type Item struct {
	Path   string
	Record models.Record
	Err    error
}

// Sink is a channel that receives items
type Sink chan<- Item
