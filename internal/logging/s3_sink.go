package logging

import (
	"context"
	"sync"
	"time"

	"relcalc/internal/utils"
)

// S3Sink batches audit records in memory and ships them to S3. Records are
// dropped rather than blocking the request path when the buffer is full.
type S3Sink struct {
	writer        *S3Writer
	batchSize     int
	flushInterval time.Duration
	logger        *utils.Logger

	recCh  chan *AuditRecord
	doneCh chan struct{}
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewS3Sink creates a sink that uploads batches of batchSize records, or
// whatever has accumulated every flushInterval.
func NewS3Sink(writer *S3Writer, batchSize, bufferSize int, flushInterval time.Duration) *S3Sink {
	sink := &S3Sink{
		writer:        writer,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        utils.NewLogger("s3-sink"),
		recCh:         make(chan *AuditRecord, bufferSize),
		doneCh:        make(chan struct{}),
	}

	sink.wg.Add(1)
	go sink.run()

	return sink
}

// Enqueue queues a record for upload.
func (s *S3Sink) Enqueue(rec *AuditRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	select {
	case s.recCh <- rec:
	default:
		// Buffer full; dropping record.
	}
	return nil
}

func (s *S3Sink) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	batch := make([]*AuditRecord, 0, s.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := s.writer.WriteBatch(ctx, batch); err != nil {
			s.logger.Error("Failed to upload audit batch", "error", err, "count", len(batch))
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case rec := <-s.recCh:
			batch = append(batch, rec)
			if len(batch) >= s.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.doneCh:
			for {
				select {
				case rec := <-s.recCh:
					batch = append(batch, rec)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Shutdown flushes any buffered records and stops the sink.
func (s *S3Sink) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.doneCh)
	s.wg.Wait()
}
