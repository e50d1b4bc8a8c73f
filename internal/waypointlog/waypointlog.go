// Package waypointlog records the path segments produced on each tick as
// zstd-compressed JSON lines.
package waypointlog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/signalsfoundry/campus-mobility/core"
	"github.com/signalsfoundry/campus-mobility/internal/logging"
)

// Entry is one line of the trace.
type Entry struct {
	SimTime float64    `json:"sim_time"`
	Entity  int        `json:"entity"`
	From    [2]float64 `json:"from"`
	To      [2]float64 `json:"to"`
	Speed   float64    `json:"speed"`
}

// Writer appends entries to a single .jsonl.zst file.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// Create opens path for writing, creating parent directories.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}, nil
}

// WriteTick writes one entry per segment.
func (w *Writer) WriteTick(simTime float64, segments []core.Segment) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return fmt.Errorf("waypointlog: writer closed")
	}
	for _, s := range segments {
		if len(s.Path.Waypoints) < 2 {
			continue
		}
		from, to := s.Path.Waypoints[0], s.Path.Waypoints[len(s.Path.Waypoints)-1]
		b, err := json.Marshal(Entry{
			SimTime: simTime,
			Entity:  s.Entity,
			From:    [2]float64{from.X(), from.Y()},
			To:      [2]float64{to.X(), to.Y()},
			Speed:   s.Path.Speed,
		})
		if err != nil {
			return err
		}
		if _, err := w.w.Write(b); err != nil {
			return err
		}
		if err := w.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// Listener adapts the writer to a SimulationEngine tick listener. Write
// errors are logged.
func (w *Writer) Listener(log logging.Logger) core.TickListener {
	if log == nil {
		log = logging.Noop()
	}
	return func(simTime float64, segments []core.Segment) {
		if err := w.WriteTick(simTime, segments); err != nil {
			log.Warn(context.Background(), "waypoint trace write failed",
				logging.Float("sim_time", simTime),
				logging.String("error", err.Error()),
			)
		}
	}
}

// Close flushes and closes the trace file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var err error
	if w.w != nil {
		err = w.w.Flush()
		w.w = nil
	}
	if w.enc != nil {
		if cerr := w.enc.Close(); err == nil {
			err = cerr
		}
		w.enc = nil
	}
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
		w.f = nil
	}
	return err
}

// Read decodes every entry from a trace stream.
func Read(r io.Reader) ([]Entry, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("waypointlog: line %d: %w", len(out)+1, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
