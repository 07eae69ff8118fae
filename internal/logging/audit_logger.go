package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// AuditLogger implements Sink with asynchronous, buffered JSONL files on
// local disk, with size-based rotation and periodic flush.
type AuditLogger struct {
	fileTemplate  string        // template for log file name e.g. "/var/log/relcalc/audit-%s.jsonl"
	maxSize       int64         // maximum size in bytes before rotation
	maxFiles      int           // maximum number of rotated files to keep
	flushInterval time.Duration // flush the buffer every flushInterval if not empty

	mu          sync.Mutex
	currentFile string
	file        *os.File
	writer      *bufio.Writer
	currentSize int64

	logCh  chan AuditRecord
	doneCh chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// NewAuditLogger creates an audit logger writing rotated JSONL files.
// bufferSize determines how many records can be queued before entries are
// dropped; flushInterval defines how often the buffer is flushed.
func NewAuditLogger(fileTemplate string, maxSize int64, maxFiles, bufferSize int, flushInterval time.Duration) (*AuditLogger, error) {
	logger := &AuditLogger{
		fileTemplate:  fileTemplate,
		maxSize:       maxSize,
		maxFiles:      maxFiles,
		flushInterval: flushInterval,
		logCh:         make(chan AuditRecord, bufferSize),
		doneCh:        make(chan struct{}),
	}

	if err := logger.openFile(); err != nil {
		return nil, err
	}

	logger.wg.Add(1)
	go logger.run()

	return logger, nil
}

// Enqueue queues a record for writing. If the queue is full the record is
// dropped rather than blocking the request path.
func (logger *AuditLogger) Enqueue(rec *AuditRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	select {
	case logger.logCh <- *rec:
	default:
		// Queue full; dropping record.
	}
	return nil
}

// newFileName applies the current timestamp to the file template.
func (logger *AuditLogger) newFileName() string {
	timestamp := time.Now().Format("20060102150405")
	return fmt.Sprintf(logger.fileTemplate, timestamp)
}

// openFile opens (or creates) the active log file and prepares the buffered
// writer, creating the directory if needed.
func (logger *AuditLogger) openFile() error {
	logger.currentFile = logger.newFileName()
	dir := filepath.Dir(logger.currentFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	file, err := os.OpenFile(logger.currentFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	logger.currentSize = fi.Size()
	logger.file = file
	logger.writer = bufio.NewWriter(file)
	return nil
}

// rotateIfNeeded rotates the file when adding n bytes would exceed maxSize.
func (logger *AuditLogger) rotateIfNeeded(n int) error {
	logger.mu.Lock()
	defer logger.mu.Unlock()

	if logger.currentSize+int64(n) < logger.maxSize {
		return nil
	}

	if err := logger.writer.Flush(); err != nil {
		return err
	}
	if err := logger.file.Close(); err != nil {
		return err
	}

	return logger.openFile()
}

// cleanupOldFiles removes the oldest rotated files if more than maxFiles exist.
func (logger *AuditLogger) cleanupOldFiles() error {
	pattern := fmt.Sprintf(logger.fileTemplate, "*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	sort.Slice(matches, func(i, j int) bool {
		fi, err1 := os.Stat(matches[i])
		fj, err2 := os.Stat(matches[j])
		if err1 != nil || err2 != nil {
			return false
		}
		return fi.ModTime().Before(fj.ModTime())
	})

	excess := len(matches) - logger.maxFiles
	for i := 0; i < excess; i++ {
		_ = os.Remove(matches[i])
	}
	return nil
}

// run listens for records and writes them, flushing periodically.
func (logger *AuditLogger) run() {
	defer logger.wg.Done()
	ticker := time.NewTicker(logger.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-logger.logCh:
			logger.writeEntry(entry)
		case <-ticker.C:
			logger.mu.Lock()
			_ = logger.writer.Flush()
			logger.mu.Unlock()
		case <-logger.doneCh:
			// Drain remaining records before closing the file.
			for {
				select {
				case entry := <-logger.logCh:
					logger.writeEntry(entry)
				default:
					logger.mu.Lock()
					_ = logger.writer.Flush()
					_ = logger.file.Close()
					logger.mu.Unlock()
					return
				}
			}
		}
	}
}

// writeEntry serializes a record to JSON and writes it, rotating if needed.
func (logger *AuditLogger) writeEntry(entry AuditRecord) {
	data, err := json.Marshal(entry)
	if err != nil {
		// If marshaling fails, skip the record.
		return
	}
	line := string(data) + "\n"
	n := len(line)
	_ = logger.rotateIfNeeded(n)

	logger.mu.Lock()
	_, _ = logger.writer.WriteString(line)
	logger.currentSize += int64(n)
	logger.mu.Unlock()

	_ = logger.cleanupOldFiles()
}

// Shutdown flushes the buffer and closes the file. Call from the
// application's graceful shutdown handler.
func (logger *AuditLogger) Shutdown() {
	logger.mu.Lock()
	if logger.closed {
		logger.mu.Unlock()
		return
	}
	logger.closed = true
	logger.mu.Unlock()

	close(logger.doneCh)
	logger.wg.Wait()
}
