// Package publisher ships generated audio files to NATS: the bytes go to an
// object store bucket and an AudioChunkCreatedEvent announces each file.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/tom3k5/soulsync-audio/internal/core"
)

// ContentTypeWAV is stored with every upload; Piper writes RIFF/WAV data
// regardless of the output file name.
const ContentTypeWAV = "audio/wav"

var (
	// ErrConnectionNil indicates that no NATS connection was provided.
	ErrConnectionNil = errors.New("nats connection cannot be nil")
	// ErrStoreNil indicates that no object store was provided.
	ErrStoreNil = errors.New("object store cannot be nil")
	// ErrSubjectEmpty indicates that the event subject is empty.
	ErrSubjectEmpty = errors.New("subject cannot be empty")
	// ErrNothingToPublish indicates that the entry did not produce a file.
	ErrNothingToPublish = errors.New("entry has no audio to publish")
)

// NatsPublisher uploads audio files and publishes one event per file.
type NatsPublisher struct {
	natsConnection *nats.Conn
	store          core.FileStore
	subject        string
	runID          string
	log            *logger.Logger
}

// NewNatsPublisher creates a publisher. An empty runID gets a fresh UUID.
func NewNatsPublisher(
	natsConnection *nats.Conn,
	store core.FileStore,
	subject string,
	runID string,
	log *logger.Logger,
) (*NatsPublisher, error) {
	if natsConnection == nil {
		return nil, ErrConnectionNil
	}

	if store == nil {
		return nil, ErrStoreNil
	}

	if subject == "" {
		return nil, ErrSubjectEmpty
	}

	if runID == "" {
		runID = uuid.NewString()
	}

	return &NatsPublisher{
		natsConnection: natsConnection,
		store:          store,
		subject:        subject,
		runID:          runID,
		log:            log,
	}, nil
}

// RunID identifies this run in object keys and event headers.
func (p *NatsPublisher) RunID() string {
	return p.runID
}

// AudioKey returns the object key used for filename in this run.
func (p *NatsPublisher) AudioKey(filename string) string {
	return path.Join(p.runID, filename)
}

// Publish uploads the produced file and announces it. index is zero-based.
func (p *NatsPublisher) Publish(ctx context.Context, result core.EntryResult, index, total int) error {
	if !result.OK() || result.OutputPath == "" {
		return fmt.Errorf("%w: %s", ErrNothingToPublish, result.Entry.ID)
	}

	audioKey := p.AudioKey(result.Entry.Filename)

	err := p.store.UploadFile(ctx, audioKey, result.OutputPath, ContentTypeWAV)
	if err != nil {
		return fmt.Errorf("failed to upload audio for '%s': %w", result.Entry.ID, err)
	}

	event := &events.AudioChunkCreatedEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now(),
			WorkflowID: p.runID,
			EventID:    uuid.NewString(),
			UserID:     "",
			TenantID:   "",
		},
		AudioKey:   audioKey,
		PageNumber: index + 1,
		TotalPages: total,
	}

	err = p.publishEvent(event)
	if err != nil {
		return fmt.Errorf("failed to announce audio for '%s': %w", result.Entry.ID, err)
	}

	p.log.Info("Published %s as %s", result.Entry.Filename, audioKey)

	return nil
}

// publishEvent marshals the event and publishes it on the configured subject.
func (p *NatsPublisher) publishEvent(event *events.AudioChunkCreatedEvent) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.natsConnection.Publish(p.subject, eventData)
	if err != nil {
		return fmt.Errorf("failed to publish event on %s: %w", p.subject, err)
	}

	flushErr := p.natsConnection.Flush()
	if flushErr != nil {
		return fmt.Errorf("failed to flush event on %s: %w", p.subject, flushErr)
	}

	return nil
}
