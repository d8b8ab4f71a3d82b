package models

import (
	"time"
)

// Snapshot is one saved code state of a participant during an experiment.
type Snapshot struct {
	ID     int       `json:"id"`
	Date   time.Time `json:"date"`
	Sprite string    `json:"sprite"`
	XML    string    `json:"xml"`
	Code   string    `json:"code"`
}

// Download is a named file produced by an export endpoint.
type Download struct {
	Name        string
	ContentType string
	Content     []byte
}
