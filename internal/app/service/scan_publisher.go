package service

import (
	"encoding/json"

	"github.com/cloudflying87/qrgenerator/internal/app/model"
	"github.com/nats-io/nats.go"
)

// ScanPublisher publishes scan notices to NATS JetStream.
type ScanPublisher struct {
	js nats.JetStreamContext
}

// NewScanPublisher creates a new scan notice publisher.
func NewScanPublisher(js nats.JetStreamContext) *ScanPublisher {
	return &ScanPublisher{js: js}
}

// Publish sends one notice to the stream.
func (p *ScanPublisher) Publish(notice model.ScanNotice) error {
	data, err := json.Marshal(notice)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.ScanStreamSubject, data)
	return err
}
