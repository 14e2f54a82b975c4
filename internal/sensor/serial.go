package sensor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.bug.st/serial"
)

// Serial reads an external IMU that prints one "x,y,z" line per reading.
// The device is expected to stream at the requested rate on its own.
type Serial struct {
	Port     string
	BaudRate int
}

func (s *Serial) Name() string { return "serial:" + s.Port }

func (s *Serial) Open(ctx context.Context, hz int) (<-chan Reading, error) {
	if s.Port == "" {
		return nil, fmt.Errorf("%w: no serial port configured", ErrUnavailable)
	}
	port, err := serial.Open(s.Port, &serial.Mode{BaudRate: s.BaudRate})
	if err != nil {
		var perr *serial.PortError
		if errors.As(err, &perr) && perr.Code() == serial.PortNotFound {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, s.Port)
		}
		return nil, fmt.Errorf("open %s: %w", s.Port, err)
	}

	out := make(chan Reading)
	go func() {
		<-ctx.Done()
		_ = port.Close()
	}()
	go func() {
		defer close(out)
		sc := bufio.NewScanner(port)
		for sc.Scan() {
			r, err := parseLine(sc.Text())
			if err != nil {
				continue
			}
			offer(out, r)
		}
	}()
	return out, nil
}

// parseLine accepts "x,y,z" with optional surrounding whitespace, or three
// whitespace-separated fields.
func parseLine(line string) (Reading, error) {
	line = strings.TrimSpace(line)
	var parts []string
	if strings.Contains(line, ",") {
		parts = strings.Split(line, ",")
	} else {
		parts = strings.Fields(line)
	}
	if len(parts) != 3 {
		return Reading{}, fmt.Errorf("malformed reading %q: got %d fields", line, len(parts))
	}

	var v [3]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return Reading{}, fmt.Errorf("malformed reading %q: %w", line, err)
		}
		v[i] = float32(f)
	}
	return Reading{X: v[0], Y: v[1], Z: v[2]}, nil
}
