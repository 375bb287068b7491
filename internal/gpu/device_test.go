package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

type mockDevice struct{}

func (m *mockDevice) Poll(wait bool) {}
func (m *mockDevice) Destroy()       {}

type mockQueue struct{}

type mockAdapter struct{}

type mockProvider struct{}

func (m *mockProvider) Device() gpucontext.Device           { return &mockDevice{} }
func (m *mockProvider) Queue() gpucontext.Queue             { return &mockQueue{} }
func (m *mockProvider) Adapter() gpucontext.Adapter         { return &mockAdapter{} }
func (m *mockProvider) AdapterInfo() gpucontext.AdapterInfo { return gpucontext.AdapterInfo{} }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8Unorm
}

// halProvider additionally exposes the hal device and queue.
type halProvider struct {
	mockProvider
	device any
	queue  any
}

func (p *halProvider) HalDevice() any { return p.device }
func (p *halProvider) HalQueue() any  { return p.queue }

func TestDeviceFromProvider(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d, err := DeviceFromProvider(&halProvider{device: device, queue: queue})
	if err != nil {
		t.Fatalf("DeviceFromProvider: %v", err)
	}
	if d.Device != device || d.Queue != queue {
		t.Error("provider device not adopted")
	}
	if d.Owned() {
		t.Error("shared device must not be owned")
	}
	if d.Name() != "shared" {
		t.Errorf("Name = %q", d.Name())
	}
	d.Release()
	d.Release()
	if d.Device != nil {
		t.Error("Release must detach the device")
	}
}

func TestDeviceFromProviderErrors(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	tests := []struct {
		name     string
		provider gpucontext.DeviceProvider
	}{
		{"no hal accessors", &mockProvider{}},
		{"wrong device type", &halProvider{device: "gpu", queue: queue}},
		{"wrong queue type", &halProvider{device: device, queue: 42}},
		{"nil device", &halProvider{device: nil, queue: queue}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DeviceFromProvider(tt.provider); !errors.Is(err, ErrProviderNoHAL) {
				t.Errorf("err = %v, want ErrProviderNoHAL", err)
			}
		})
	}
}

func TestWrapDevice(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	if _, err := WrapDevice(nil, queue); !errors.Is(err, ErrNilDevice) {
		t.Errorf("nil device: %v", err)
	}
	var q hal.Queue
	if _, err := WrapDevice(device, q); !errors.Is(err, ErrNilDevice) {
		t.Errorf("nil queue: %v", err)
	}
	d, err := WrapDevice(device, queue)
	if err != nil {
		t.Fatal(err)
	}
	if d.Owned() || d.Name() != "external" {
		t.Errorf("wrapped device = %+v", d)
	}
	d.Release()
}
