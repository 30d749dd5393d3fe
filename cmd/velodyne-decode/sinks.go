package main

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/banshee-data/velodyne-rawdata/internal/lidar/network"
	"github.com/banshee-data/velodyne-rawdata/internal/lidar/velodyne"
)

var csvHeader = []string{"packet", "capture_ns", "x", "y", "z", "intensity", "ring"}

// csvSink writes one row per decoded point.
type csvSink struct {
	f   *os.File
	buf *bufio.Writer
	w   *csv.Writer
	row []string
}

func newCSVSink(path string) (*csvSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV output: %w", err)
	}
	buf := bufio.NewWriterSize(f, 1<<16)
	s := &csvSink{f: f, buf: buf, w: csv.NewWriter(buf), row: make([]string, len(csvHeader))}
	if err := s.w.Write(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *csvSink) WritePacket(index int, captureTime time.Time, points []velodyne.Point) error {
	packet := strconv.Itoa(index)
	captureNs := strconv.FormatInt(captureTime.UnixNano(), 10)
	for _, p := range points {
		s.row[0] = packet
		s.row[1] = captureNs
		s.row[2] = strconv.FormatFloat(p.X, 'f', 4, 64)
		s.row[3] = strconv.FormatFloat(p.Y, 'f', 4, 64)
		s.row[4] = strconv.FormatFloat(p.Z, 'f', 4, 64)
		s.row[5] = strconv.Itoa(int(p.Intensity))
		s.row[6] = strconv.Itoa(int(p.Ring))
		if err := s.w.Write(s.row); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes buffered rows and closes the file.
func (s *csvSink) Close() error {
	s.w.Flush()
	err := s.w.Error()
	if ferr := s.buf.Flush(); err == nil {
		err = ferr
	}
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// multiSink fans packets out to every sink. Every sink sees every packet
// even when an earlier one fails.
type multiSink []network.Sink

func (m multiSink) WritePacket(index int, captureTime time.Time, points []velodyne.Point) error {
	var errs []error
	for _, s := range m {
		if err := s.WritePacket(index, captureTime, points); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
