package alertsink

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pkt.systems/opsdeck/schema"
	"pkt.systems/pslog"
)

// Journal appends alerts to a JSON-lines file off the caller's goroutine.
// Persist never blocks: when the writer falls behind, entries are dropped
// and counted. The in-memory alert log remains authoritative for display;
// the journal exists for post-engagement review.
type Journal struct {
	path    string
	log     pslog.Logger
	entries chan schema.Alert

	mu      sync.Mutex
	dropped int
	closed  bool
	done    chan struct{}
}

// Open creates the journal file's directory and starts the writer.
func Open(path string, logger pslog.Logger) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("alert journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	j := &Journal{
		path:    path,
		log:     logger,
		entries: make(chan schema.Alert, 128),
		done:    make(chan struct{}),
	}
	go j.writer()
	return j, nil
}

// Persist queues one alert for append. Safe for concurrent use; never blocks.
// The mutex is held across the send so Close cannot tear down the channel
// between the closed check and the enqueue.
func (j *Journal) Persist(alert schema.Alert) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	select {
	case j.entries <- alert:
	default:
		j.dropped++
	}
}

// Dropped reports how many alerts were discarded because the writer fell
// behind.
func (j *Journal) Dropped() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.dropped
}

// Close stops accepting alerts, flushes the queue and waits for the writer.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.entries)
	j.mu.Unlock()
	<-j.done
	return nil
}

func (j *Journal) writer() {
	defer close(j.done)
	file, err := os.OpenFile(j.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		if j.log != nil {
			j.log.Warn("alert journal open failed", "path", j.path, "err", err)
		}
		for range j.entries {
		}
		return
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for alert := range j.entries {
		if err := enc.Encode(alert); err != nil {
			if j.log != nil {
				j.log.Warn("alert journal write failed", "err", err)
			}
			continue
		}
		if len(j.entries) == 0 {
			if err := w.Flush(); err != nil && j.log != nil {
				j.log.Warn("alert journal flush failed", "err", err)
			}
		}
	}
	_ = w.Flush()
}

// Load reads up to limit most recent alerts from a journal file. A missing
// file is not an error. Truncated or corrupt lines are skipped.
func Load(path string, limit int) ([]schema.Alert, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()
	var alerts []schema.Alert
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var alert schema.Alert
		if err := json.Unmarshal(scanner.Bytes(), &alert); err != nil {
			continue
		}
		alerts = append(alerts, alert)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[len(alerts)-limit:]
	}
	return alerts, nil
}
