package ble

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruuvi-gateway/internal/ruuvi"
)

var format5Payload = []byte{
	0x05, 0x12, 0xFC, 0x53, 0x94, 0xC3, 0x7C, 0x00, 0x04, 0xFF, 0xFC, 0x04,
	0x0C, 0xAC, 0x36, 0x42, 0x00, 0xCD, 0xCB, 0xB8, 0x33, 0x4C, 0x88, 0x4F,
}

type fakeAdapter struct {
	devices  []DeviceInfo
	started  bool
	stopped  bool
	startErr error
}

func (a *fakeAdapter) StartDiscovery(context.Context) error {
	a.started = true
	return a.startErr
}

func (a *fakeAdapter) StopDiscovery() error {
	a.stopped = true
	return nil
}

func (a *fakeAdapter) Devices() []DeviceInfo { return a.devices }

type fakeService struct {
	adapters map[string]*fakeAdapter
	asked    []string
}

func (s *fakeService) Adapter(_ context.Context, name string) (Adapter, error) {
	s.asked = append(s.asked, name)
	a, ok := s.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAdapterNotFound, name)
	}
	return a, nil
}

func ptr[T any](v T) *T { return &v }

func newScannedReader(t *testing.T, devices ...DeviceInfo) *Reader {
	t.Helper()
	svc := &fakeService{adapters: map[string]*fakeAdapter{"hci0": {devices: devices}}}
	r := NewReader(svc, nil)
	_, err := r.Scan(context.Background(), "hci0", time.Millisecond)
	require.NoError(t, err)
	return r
}

func TestReader_Scan(t *testing.T) {
	for _, n := range []int{0, 2} {
		t.Run(fmt.Sprintf("%d devices", n), func(t *testing.T) {
			devices := make([]DeviceInfo, n)
			for i := range devices {
				devices[i] = DeviceInfo{Address: fmt.Sprintf("11:22:33:44:55:%02X", i)}
			}
			adapter := &fakeAdapter{devices: devices}
			svc := &fakeService{adapters: map[string]*fakeAdapter{"adapter": adapter}}

			count, err := NewReader(svc, nil).Scan(context.Background(), "adapter", time.Millisecond)
			require.NoError(t, err)
			assert.Equal(t, n, count)
			assert.True(t, adapter.started)
			assert.True(t, adapter.stopped)
		})
	}
}

func TestReader_Scan_FirstAdapterWhenUnnamed(t *testing.T) {
	svc := &fakeService{adapters: map[string]*fakeAdapter{"": {}}}
	_, err := NewReader(svc, nil).Scan(context.Background(), "", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, svc.asked)
}

func TestReader_Scan_AdapterNotFound(t *testing.T) {
	svc := &fakeService{adapters: map[string]*fakeAdapter{}}
	_, err := NewReader(svc, nil).Scan(context.Background(), "hci9", time.Millisecond)
	assert.True(t, errors.Is(err, ErrAdapterNotFound))
}

func TestReader_Scan_Duration(t *testing.T) {
	svc := &fakeService{adapters: map[string]*fakeAdapter{"hci0": {}}}
	start := time.Now()
	_, err := NewReader(svc, nil).Scan(context.Background(), "hci0", 50*time.Millisecond)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestReader_Scan_Canceled(t *testing.T) {
	adapter := &fakeAdapter{devices: []DeviceInfo{{Address: "AA"}}}
	svc := &fakeService{adapters: map[string]*fakeAdapter{"hci0": adapter}}
	r := NewReader(svc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Scan(ctx, "hci0", time.Hour)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, adapter.stopped)

	_, err = r.ListDevices(context.Background())
	assert.True(t, errors.Is(err, ErrDevicesNotScanned))
}

func TestReader_Scan_StartFails(t *testing.T) {
	adapter := &fakeAdapter{startErr: errors.New("busy")}
	svc := &fakeService{adapters: map[string]*fakeAdapter{"hci0": adapter}}
	_, err := NewReader(svc, nil).Scan(context.Background(), "hci0", time.Millisecond)
	assert.ErrorContains(t, err, "busy")
}

func TestReader_ListDevices_NotScanned(t *testing.T) {
	r := NewReader(&fakeService{}, nil)
	_, err := r.ListDevices(context.Background())
	assert.True(t, errors.Is(err, ErrDevicesNotScanned))
}

func TestReader_ListDevices(t *testing.T) {
	want := DeviceInfo{
		Name:             ptr("some device name"),
		Address:          "11:22:33:44:55:66",
		ManufacturerID:   ptr(uint16(12345)),
		ManufacturerData: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 0},
	}
	r := newScannedReader(t, want, DeviceInfo{Address: "66:55:44:33:22:11"})

	got, err := r.ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, want, got[0])
	assert.Nil(t, got[1].Name)
	assert.Nil(t, got[1].ManufacturerID)
	assert.Nil(t, got[1].ManufacturerData)
}

func TestTypedReading(t *testing.T) {
	r := newScannedReader(t, DeviceInfo{
		Address:          "CB:B8:33:4C:88:4F",
		ManufacturerID:   ptr(ruuvi.ManufacturerID),
		ManufacturerData: format5Payload,
	})

	got, err := TypedReading[ruuvi.SensorReading](r, "cb:b8:33:4c:88:4f")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.DataFormat)
	assert.Equal(t, "CB-B8-33-4C-88-4F", *got.MacAddress)
	assert.Equal(t, 205, *got.MeasurementSequenceNumber)
}

func TestTypedReading_NoMatch(t *testing.T) {
	r := newScannedReader(t,
		DeviceInfo{Address: "11:22:33:44:55:66"},
		DeviceInfo{Address: "CB:B8:33:4C:88:4F", ManufacturerData: format5Payload},
	)

	got, err := TypedReading[ruuvi.SensorReading](r, "00:00:00:00:00:00")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = TypedReading[ruuvi.SensorReading](r, "11:22:33:44:55:66")
	require.NoError(t, err)
	assert.Nil(t, got, "device without manufacturer data")
}

func TestTypedReading_Errors(t *testing.T) {
	t.Run("empty address", func(t *testing.T) {
		r := newScannedReader(t)
		_, err := TypedReading[ruuvi.SensorReading](r, "  ")
		assert.True(t, errors.Is(err, ErrInvalidAddress))
	})

	t.Run("not scanned", func(t *testing.T) {
		r := NewReader(&fakeService{}, nil)
		_, err := TypedReading[ruuvi.SensorReading](r, "CB:B8:33:4C:88:4F")
		assert.True(t, errors.Is(err, ErrDevicesNotScanned))
	})

	t.Run("unsupported type", func(t *testing.T) {
		r := newScannedReader(t, DeviceInfo{Address: "CB:B8:33:4C:88:4F", ManufacturerData: format5Payload})
		_, err := TypedReading[DeviceInfo](r, "CB:B8:33:4C:88:4F")
		assert.True(t, errors.Is(err, ErrUnsupportedDeviceType))
	})

	t.Run("unsupported format propagates", func(t *testing.T) {
		r := newScannedReader(t, DeviceInfo{Address: "CB:B8:33:4C:88:4F", ManufacturerData: []byte{0x01, 0x02}})
		_, err := TypedReading[ruuvi.SensorReading](r, "CB:B8:33:4C:88:4F")
		assert.True(t, errors.Is(err, ruuvi.ErrUnsupportedFormat))
	})
}
