package location

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
)

// DeviceSensorProvider is responsible for retrieving location data from a GPS device connected via serial port.
type DeviceSensorProvider struct {
	port     string // Serial port to which the GPS device is connected
	baudRate int    // Baud rate for the serial communication

	openPort func(*serial.Config) (io.ReadCloser, error)
}

// NewDeviceSensorProvider creates a new instance of DeviceSensorProvider with the specified port and baud rate.
func NewDeviceSensorProvider(port string, baudRate int) *DeviceSensorProvider {
	return &DeviceSensorProvider{
		port:     port,
		baudRate: baudRate,
		openPort: func(c *serial.Config) (io.ReadCloser, error) {
			return serial.OpenPort(c)
		},
	}
}

// RequestPermission grants access when the serial device exists and is readable by this process.
func (d *DeviceSensorProvider) RequestPermission(ctx context.Context) (PermissionStatus, error) {
	f, err := os.OpenFile(d.port, os.O_RDONLY, 0)
	if err != nil {
		if os.IsPermission(err) || os.IsNotExist(err) {
			return PermissionDenied, nil
		}
		return PermissionDenied, err
	}
	f.Close()
	return PermissionGranted, nil
}

// GetLocation reads GPS data from the device and returns the device's location.
func (d *DeviceSensorProvider) GetLocation(ctx context.Context) (Location, error) {
	s, err := d.openPort(&serial.Config{Name: d.port, Baud: d.baudRate})
	if err != nil {
		return Location{}, err
	}
	defer s.Close() // Ensure the port is closed when done

	// Closing the port unblocks the scanner if the context expires first
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	loc, err := readGGA(s)
	if err != nil && ctx.Err() != nil {
		return Location{}, ctx.Err()
	}
	return loc, err
}

// Close is a no-op; the port is only held open for the duration of a fix.
func (d *DeviceSensorProvider) Close() error {
	return nil
}

// readGGA scans NMEA output until the first GGA sentence carrying a fix.
func readGGA(r io.Reader) (Location, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Talker ids differ between receivers ($GPGGA, $GNGGA, ...)
		if !strings.HasPrefix(line, "$") || !strings.Contains(line, "GGA,") {
			continue
		}
		sentence, err := nmea.Parse(line)
		if err != nil {
			return Location{}, err
		}

		if gga, ok := sentence.(nmea.GGA); ok {
			if gga.FixQuality == nmea.Invalid {
				continue
			}
			return Location{
				Latitude:  gga.Latitude,
				Longitude: gga.Longitude,
				Accuracy:  gga.HDOP, // Use HDOP as a proxy for accuracy
			}, nil
		}
	}

	// Check for any scanner errors
	if err := scanner.Err(); err != nil {
		return Location{}, err
	}

	return Location{}, errors.New("no valid GPS data found")
}
