package thermal

import (
	"context"
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/host"
)

// ErrSensorNotFound is returned when the host has no sensor with the key.
var ErrSensorNotFound = errors.New("thermal: sensor not found")

// HostSource reads a sensor of the machine running the engine.
type HostSource struct {
	SensorKey string
}

// Read returns the temperature of the sensor.
func (h HostSource) Read(ctx context.Context) (int, error) {
	stats, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil && len(stats) == 0 {
		return 0, fmt.Errorf("thermal: read sensors: %w", err)
	}

	for _, s := range stats {
		if s.SensorKey == h.SensorKey {
			return int(s.Temperature * 1000), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrSensorNotFound, h.SensorKey)
}

// HostSensors lists the sensor keys of the machine.
func HostSensors(ctx context.Context) ([]string, error) {
	stats, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil && len(stats) == 0 {
		return nil, err
	}

	keys := make([]string, 0, len(stats))
	for _, s := range stats {
		keys = append(keys, s.SensorKey)
	}

	return keys, nil
}
