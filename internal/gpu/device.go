package gpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Device pairs a hal.Device with its queue and remembers whether the
// renderer owns them.
type Device struct {
	Device hal.Device
	Queue  hal.Queue

	instance hal.Instance
	owned    bool
	name     string
}

// OpenDevice creates a Vulkan instance and opens the first discrete or
// integrated GPU, falling back to the first adapter reported.
func OpenDevice() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, ErrBackendUnavailable
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("gpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: open device: %w", err)
	}
	slogger().Info("gpu: adapter selected", "name", selected.Info.Name)
	return &Device{
		Device:   openDev.Device,
		Queue:    SerializeQueue(openDev.Queue),
		instance: instance,
		owned:    true,
		name:     selected.Info.Name,
	}, nil
}

// DeviceFromProvider borrows the device of a host application. The provider
// must implement HalDevice() any and HalQueue() any returning hal.Device and
// hal.Queue. The returned Device is not destroyed by Release.
func DeviceFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrProviderNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrProviderNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrProviderNoHAL)
	}
	slogger().Info("gpu: using shared device from provider")
	return &Device{Device: device, Queue: SerializeQueue(queue), name: "shared"}, nil
}

// WrapDevice adopts an existing device and queue. The caller keeps
// ownership.
func WrapDevice(device hal.Device, queue hal.Queue) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	return &Device{Device: device, Queue: SerializeQueue(queue), name: "external"}, nil
}

// Name returns the adapter name, or "shared"/"external" for borrowed devices.
func (d *Device) Name() string { return d.name }

// Owned reports whether Release destroys the device.
func (d *Device) Owned() bool { return d.owned }

// Release destroys the device and instance when they were opened by
// OpenDevice. Borrowed devices are only detached. Safe to call twice.
func (d *Device) Release() {
	if d.owned {
		if d.Device != nil {
			d.Device.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.Device = nil
	d.Queue = nil
	d.instance = nil
	d.owned = false
}
