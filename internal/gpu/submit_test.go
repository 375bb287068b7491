package gpu

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/wgpu/hal"
)

var errEncoder = errors.New("encoder failure")

// faultyEncoder fails BeginEncoding or EndEncoding on request and counts
// discards.
type faultyEncoder struct {
	hal.CommandEncoder
	failBegin, failEnd bool
	discarded          int
}

func (e *faultyEncoder) BeginEncoding(label string) error {
	if e.failBegin {
		return errEncoder
	}
	return e.CommandEncoder.BeginEncoding(label)
}

func (e *faultyEncoder) EndEncoding() (hal.CommandBuffer, error) {
	if e.failEnd {
		return nil, errEncoder
	}
	return e.CommandEncoder.EndEncoding()
}

func (e *faultyEncoder) DiscardEncoding() {
	e.discarded++
	e.CommandEncoder.DiscardEncoding()
}

// faultyEncoderDevice hands out enc for every command encoder.
type faultyEncoderDevice struct {
	hal.Device
	enc *faultyEncoder
}

func (d *faultyEncoderDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	inner, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	d.enc.CommandEncoder = inner
	return d.enc, nil
}

// stalledQueue never reports a submission complete.
type stalledQueue struct {
	hal.Queue
}

func (stalledQueue) PollCompleted() uint64 { return 0 }

func TestRecordCommandsDiscardsOnFailure(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	tests := []struct {
		name         string
		enc          faultyEncoder
		wantRecorded bool
	}{
		{"begin fails", faultyEncoder{failBegin: true}, false},
		{"end fails", faultyEncoder{failEnd: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := tt.enc
			dev := &faultyEncoderDevice{Device: device, enc: &enc}
			recorded := false
			cmdBuf, err := recordCommands(dev, "test", func(hal.CommandEncoder) { recorded = true })
			if !errors.Is(err, errEncoder) {
				t.Fatalf("err = %v, want %v", err, errEncoder)
			}
			if cmdBuf != nil {
				t.Error("failed recording returned a command buffer")
			}
			if enc.discarded != 1 {
				t.Errorf("DiscardEncoding calls = %d, want 1", enc.discarded)
			}
			if recorded != tt.wantRecorded {
				t.Errorf("recorded = %v, want %v", recorded, tt.wantRecorded)
			}
		})
	}
}

func TestRecordCommandsSuccessKeepsEncoder(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	enc := &faultyEncoder{}
	cmdBuf, err := recordCommands(&faultyEncoderDevice{Device: device, enc: enc}, "test", func(hal.CommandEncoder) {})
	if err != nil {
		t.Fatal(err)
	}
	if cmdBuf == nil {
		t.Error("no command buffer")
	}
	if enc.discarded != 0 {
		t.Errorf("DiscardEncoding called %d times on success", enc.discarded)
	}
}

func TestRenderDiscardsFailedEncoder(t *testing.T) {
	fx := newFrameFixture(t)
	data, cam := referenceFrame(t)

	enc := &faultyEncoder{failEnd: true}
	f, err := NewFrameOrchestrator(&faultyEncoderDevice{Device: fx.device, enc: enc}, fx.queue, fx.res, fx.pipes,
		FrameConfig{PeelPasses: 2})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Render(data, cam, fx.target); !errors.Is(err, errEncoder) {
		t.Fatalf("Render = %v, want %v", err, errEncoder)
	}
	f.Wait()
	if enc.discarded != 1 {
		t.Errorf("DiscardEncoding calls = %d, want 1", enc.discarded)
	}
	if f.CompletedFrames() != 0 || fx.target.Frames() != 0 {
		t.Error("a frame that failed to encode was submitted")
	}
}

func TestReadPixelsDiscardsFailedEncoder(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	enc := &faultyEncoder{failBegin: true}
	tgt, err := NewOffscreenTarget(&faultyEncoderDevice{Device: device, enc: enc}, queue, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer tgt.Destroy()

	if _, err := tgt.ReadPixels(); !errors.Is(err, errEncoder) {
		t.Fatalf("ReadPixels = %v, want %v", err, errEncoder)
	}
	if enc.discarded != 1 {
		t.Errorf("DiscardEncoding calls = %d, want 1", enc.discarded)
	}
}

func TestAwaitSubmissionTimeout(t *testing.T) {
	_, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	err := awaitSubmission(stalledQueue{queue}, 1, 5*time.Millisecond)
	if !errors.Is(err, ErrGPUTimeout) {
		t.Fatalf("err = %v, want ErrGPUTimeout", err)
	}
	if strings.Contains(err.Error(), "%!") {
		t.Errorf("malformed error message %q", err)
	}

	index, err := queue.Submit(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := awaitSubmission(queue, index, time.Second); err != nil {
		t.Errorf("completed submission: %v", err)
	}
}

func TestStalledFrameIsNotTimed(t *testing.T) {
	fx := newFrameFixture(t)
	data, cam := referenceFrame(t)

	called := false
	f, err := NewFrameOrchestrator(fx.device, stalledQueue{fx.queue}, fx.res, fx.pipes, FrameConfig{
		PeelPasses: 1,
		Timeout:    5 * time.Millisecond,
		OnFrame:    func(time.Duration) { called = true },
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Render(data, cam, fx.target); err != nil {
		t.Fatalf("Render: %v", err)
	}
	f.Wait()
	if f.CompletedFrames() != 0 || f.FrameTime() != 0 || called {
		t.Error("a frame that never completed was timed")
	}
}

func TestSerializeQueue(t *testing.T) {
	_, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	if SerializeQueue(nil) != nil {
		t.Error("SerializeQueue(nil) must stay nil")
	}
	if SerializeQueue(queue) != queue {
		t.Error("an already serialized queue must be returned as is")
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := queue.Submit(nil); err != nil {
					t.Error(err)
					return
				}
				_ = queue.PollCompleted()
			}
		}()
	}
	wg.Wait()
	if got := queue.PollCompleted(); got != 200 {
		t.Errorf("PollCompleted = %d, want 200", got)
	}
}
