package gpu

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/wgpu/hal"
)

// pollInterval is the sleep between PollCompleted checks while waiting for
// a submission.
const pollInterval = 250 * time.Microsecond

// recordCommands runs record between BeginEncoding and EndEncoding. On any
// failure the encoder is discarded and no command buffer is returned.
func recordCommands(device hal.Device, label string, record func(hal.CommandEncoder)) (hal.CommandBuffer, error) {
	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label + "_encoder"})
	if err != nil {
		return nil, fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("gpu: begin encoding: %w", err)
	}
	record(encoder)
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("gpu: end encoding: %w", err)
	}
	return cmdBuf, nil
}

// awaitSubmission blocks until the queue reports submission index complete
// or timeout elapses.
func awaitSubmission(queue hal.Queue, index uint64, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for queue.PollCompleted() < index {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: submission %d after %v", ErrGPUTimeout, index, timeout)
		}
		time.Sleep(pollInterval)
	}
	return nil
}

// serialQueue serializes Submit and PollCompleted. Frame completion is
// polled from background goroutines while the render goroutine submits.
type serialQueue struct {
	hal.Queue
	mu sync.Mutex
}

// SerializeQueue returns q with Submit and PollCompleted made safe for
// concurrent use. A queue that is already serialized is returned as is.
func SerializeQueue(q hal.Queue) hal.Queue {
	if q == nil {
		return nil
	}
	if _, ok := q.(*serialQueue); ok {
		return q
	}
	return &serialQueue{Queue: q}
}

func (q *serialQueue) Submit(commandBuffers []hal.CommandBuffer) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.Queue.Submit(commandBuffers)
}

func (q *serialQueue) PollCompleted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.Queue.PollCompleted()
}
