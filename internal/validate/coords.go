package validate

import (
	"errors"
	"fmt"
)

var (
	// ErrLatitudeRange indicates a latitude outside [-90, 90].
	ErrLatitudeRange = errors.New("latitude out of range")
	// ErrLongitudeRange indicates a longitude outside [-180, 180].
	ErrLongitudeRange = errors.New("longitude out of range")
)

// Latitude validates that lat falls within [-90, 90] degrees.
func Latitude(lat float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: %f", ErrLatitudeRange, lat)
	}
	return nil
}

// Longitude validates that lng falls within [-180, 180] degrees.
func Longitude(lng float64) error {
	if lng < -180 || lng > 180 {
		return fmt.Errorf("%w: %f", ErrLongitudeRange, lng)
	}
	return nil
}

// Coordinates validates a latitude/longitude pair together.
func Coordinates(lat, lng float64) error {
	if err := Latitude(lat); err != nil {
		return err
	}
	return Longitude(lng)
}
