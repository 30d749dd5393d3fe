package network

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/velodyne-rawdata/internal/lidar/velodyne"
)

// Sink receives the points decoded from each accepted packet. Points are
// only valid for the duration of the call.
type Sink interface {
	WritePacket(index int, captureTime time.Time, points []velodyne.Point) error
}

// DecodeHandler feeds payloads through a velodyne.Decoder. Packets with the
// wrong size are counted as dropped rather than failing the replay.
type DecodeHandler struct {
	decoder *velodyne.Decoder
	stats   *PacketStats
	sink    Sink
	cloud   *velodyne.PointCloud
	scratch *velodyne.PointCloud
	packets int
}

// DecodeHandlerConfig wires the optional collaborators of a DecodeHandler.
type DecodeHandlerConfig struct {
	Stats *PacketStats         // Optional; receives packet, point and drop counts
	Sink  Sink                 // Optional; receives each packet's points
	Cloud *velodyne.PointCloud // Optional; accumulates every kept point
}

// NewDecodeHandler creates a handler around decoder.
func NewDecodeHandler(decoder *velodyne.Decoder, config DecodeHandlerConfig) *DecodeHandler {
	return &DecodeHandler{
		decoder: decoder,
		stats:   config.Stats,
		sink:    config.Sink,
		cloud:   config.Cloud,
		scratch: velodyne.NewPointCloud(velodyne.BLOCKS_PER_PACKET * velodyne.SCANS_PER_BLOCK),
	}
}

// HandlePacket decodes one payload. It is not safe for concurrent use.
func (h *DecodeHandler) HandlePacket(payload []byte, captureTime time.Time) error {
	h.scratch.Reset()
	if err := h.decoder.Unpack(payload, h.scratch); err != nil {
		if errors.Is(err, velodyne.ErrInvalidPacketSize) {
			if h.stats != nil {
				h.stats.AddDropped()
			}
			diagf("dropping payload: %v", err)
			return nil
		}
		return err
	}

	index := h.packets
	h.packets++
	if h.stats != nil {
		h.stats.AddPacket(len(payload))
		h.stats.AddPoints(h.scratch.Len())
	}
	tracef("packet %d: %d points", index, h.scratch.Len())

	if h.cloud != nil {
		for _, p := range h.scratch.Points {
			h.cloud.Append(p)
		}
	}

	if h.sink != nil {
		if err := h.sink.WritePacket(index, captureTime, h.scratch.Points); err != nil {
			return fmt.Errorf("sink rejected packet %d: %w", index, err)
		}
	}
	return nil
}

// Packets returns the number of packets decoded so far.
func (h *DecodeHandler) Packets() int {
	return h.packets
}
