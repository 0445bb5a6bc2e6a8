// Package spooler serializes print jobs onto a single printer channel. One
// dispatcher owns the wire: jobs run one at a time, high priority jobs jump
// the pending line, and a job that has started is never interrupted.
package spooler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Shehab101tf/tareeqa0-sub002/escpos"
	"github.com/Shehab101tf/tareeqa0-sub002/events"
	"github.com/Shehab101tf/tareeqa0-sub002/serialio"
)

// Kind selects which encoder renders a job's payload.
type Kind string

const (
	KindReceipt Kind = "receipt"
	KindReport  Kind = "report"
	KindTest    Kind = "test"
	KindDrawer  Kind = "drawer"
)

// Priority orders pending jobs. High jobs run before normal and low ones;
// within a tier order is first-in first-out.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Status is a job's position in its lifecycle. Transitions only move
// forward: pending to printing to completed or failed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPrinting  Status = "printing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrStopped is returned by Enqueue after the queue has been stopped.
var ErrStopped = errors.New("print queue stopped")

// DefaultInterJobDelay paces consecutive jobs so the printer's buffer can
// drain between cuts.
const DefaultInterJobDelay = 100 * time.Millisecond

// Job is one unit of print work.
type Job struct {
	ID        string      `json:"id"`
	DeviceID  string      `json:"deviceId,omitempty"`
	Kind      Kind        `json:"kind"`
	Priority  Priority    `json:"priority"`
	Status    Status      `json:"status"`
	Payload   interface{} `json:"payload,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	Error     string      `json:"error,omitempty"`
}

// Writer is the transport jobs are printed through. *serialio.Channel
// implements it; tests substitute in-memory fakes.
type Writer interface {
	Write(data []byte) error
}

// Config shapes rendering and pacing for one queue.
type Config struct {
	Printer       escpos.Config
	InterJobDelay time.Duration
}

// Queue is a priority-ordered, single-consumer print job queue bound to one
// printer session. All methods are safe for concurrent use.
type Queue struct {
	deviceID string
	writer   Writer
	cfg      Config
	bus      *events.Bus

	mu         sync.Mutex
	pending    []*Job
	current    *Job
	processing bool
	stopped    bool
}

// New creates a queue for the given printer channel. A nil bus disables
// event publication. A zero InterJobDelay takes the default pacing.
func New(deviceID string, w Writer, cfg Config, bus *events.Bus) *Queue {
	if cfg.InterJobDelay == 0 {
		cfg.InterJobDelay = DefaultInterJobDelay
	}
	return &Queue{deviceID: deviceID, writer: w, cfg: cfg, bus: bus}
}

// Enqueue adds a job and returns its assigned ID. High priority jobs are
// placed ahead of everything pending but behind earlier high jobs; normal and
// low jobs append to the back. The dispatcher is started if it is not already
// running; a running dispatcher is never doubled.
func (q *Queue) Enqueue(kind Kind, payload interface{}, priority Priority) (string, error) {
	switch kind {
	case KindReceipt, KindReport, KindTest, KindDrawer:
	default:
		return "", fmt.Errorf("unknown job kind %q", kind)
	}

	if priority == "" {
		priority = PriorityNormal
	}
	switch priority {
	case PriorityLow, PriorityNormal, PriorityHigh:
	default:
		return "", fmt.Errorf("unknown job priority %q", priority)
	}

	job := &Job{
		ID:        newJobID(),
		DeviceID:  q.deviceID,
		Kind:      kind,
		Priority:  priority,
		Status:    StatusPending,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return "", ErrStopped
	}
	if priority == PriorityHigh {
		at := 0
		for at < len(q.pending) && q.pending[at].Priority == PriorityHigh {
			at++
		}
		q.pending = append(q.pending, nil)
		copy(q.pending[at+1:], q.pending[at:])
		q.pending[at] = job
	} else {
		q.pending = append(q.pending, job)
	}
	start := !q.processing
	if start {
		q.processing = true
	}
	q.mu.Unlock()

	log.Debug("Print job enqueued", "job_id", job.ID, "kind", string(kind), "priority", string(priority))

	if start {
		go q.dispatch()
	}
	return job.ID, nil
}

// Clear drops every pending job and reports how many were dropped. A job
// already printing finishes undisturbed.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.pending)
	q.pending = nil
	if n > 0 {
		log.Info("Print queue cleared", "device_id", q.deviceID, "dropped", n)
	}
	return n
}

// Jobs returns a snapshot of the in-flight job, if any, followed by the
// pending jobs in dispatch order.
func (q *Queue) Jobs() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Job, 0, len(q.pending)+1)
	if q.current != nil {
		out = append(out, *q.current)
	}
	for _, j := range q.pending {
		out = append(out, *j)
	}
	return out
}

// Stop refuses further enqueues and halts dispatch after the in-flight
// write, if any, finishes. Pending jobs are left in place; they die with the
// session. Stop is idempotent.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
}

// dispatch is the single consumer. It exits when the queue empties, the
// queue is stopped, or the channel underneath reports closed.
func (q *Queue) dispatch() {
	for {
		q.mu.Lock()
		if q.stopped || len(q.pending) == 0 {
			q.processing = false
			q.mu.Unlock()
			return
		}
		job := q.pending[0]
		q.pending = q.pending[1:]
		job.Status = StatusPrinting
		q.current = job
		q.mu.Unlock()

		data, err := q.render(job)
		if err == nil {
			err = q.writer.Write(data)
		}

		q.mu.Lock()
		q.current = nil
		if err != nil {
			job.Status = StatusFailed
			job.Error = err.Error()
		} else {
			job.Status = StatusCompleted
		}
		snapshot := *job
		closed := errors.Is(err, serialio.ErrClosed)
		if closed {
			q.processing = false
		}
		q.mu.Unlock()

		if err != nil {
			log.Warn("Print job failed", "job_id", snapshot.ID, "kind", string(snapshot.Kind), "error", err.Error())
			q.publish(events.EventJobFailed, snapshot)
		} else {
			log.Info("Print job completed", "job_id", snapshot.ID, "kind", string(snapshot.Kind))
			q.publish(events.EventJobCompleted, snapshot)
		}

		if closed {
			log.Warn("Print channel closed, dispatch stopped", "device_id", q.deviceID)
			return
		}

		time.Sleep(q.cfg.InterJobDelay)
	}
}

// render turns a job into its ESC/POS byte sequence.
func (q *Queue) render(job *Job) ([]byte, error) {
	switch job.Kind {
	case KindReceipt:
		switch p := job.Payload.(type) {
		case escpos.Receipt:
			return escpos.EncodeReceipt(p, q.cfg.Printer)
		case *escpos.Receipt:
			return escpos.EncodeReceipt(*p, q.cfg.Printer)
		}
		return nil, fmt.Errorf("receipt job carries %T payload", job.Payload)
	case KindReport:
		switch p := job.Payload.(type) {
		case escpos.Report:
			return escpos.EncodeReport(p, q.cfg.Printer)
		case *escpos.Report:
			return escpos.EncodeReport(*p, q.cfg.Printer)
		}
		return nil, fmt.Errorf("report job carries %T payload", job.Payload)
	case KindTest:
		return escpos.EncodeTestPage(q.cfg.Printer)
	case KindDrawer:
		return escpos.EncodeDrawerKick(q.cfg.Printer), nil
	}
	return nil, fmt.Errorf("unknown job kind %q", job.Kind)
}

func (q *Queue) publish(eventType string, data interface{}) {
	if q.bus != nil {
		q.bus.Publish(eventType, data)
	}
}

// newJobID returns a sortable identifier: timestamp plus random suffix.
func newJobID() string {
	return time.Now().Format("20060102150405") + "-" + randomHex(4)
}

// randomHex generates 2n random hex characters.
func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b)
}
