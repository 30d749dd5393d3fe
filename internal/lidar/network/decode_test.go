package network

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/velodyne-rawdata/internal/lidar/velodyne"
)

func TestDecodeHandler_ForwardsPointsToSink(t *testing.T) {
	stats := NewPacketStats()
	sink := &recordingSink{}
	cloud := velodyne.NewPointCloud(0)
	handler := NewDecodeHandler(createTestDecoder(t), DecodeHandlerConfig{Stats: stats, Sink: sink, Cloud: cloud})

	ts := time.Unix(1700000000, 0)
	require.NoError(t, handler.HandlePacket(createTestMockPacket(), ts))
	require.NoError(t, handler.HandlePacket(createTestMockPacket(), ts.Add(time.Millisecond)))

	perPacket := velodyne.BLOCKS_PER_PACKET * velodyne.SCANS_PER_BLOCK
	require.Len(t, sink.calls, 2)
	assert.Equal(t, 0, sink.calls[0].index)
	assert.Equal(t, 1, sink.calls[1].index)
	assert.Len(t, sink.calls[1].points, perPacket)
	assert.True(t, sink.calls[1].ts.Equal(ts.Add(time.Millisecond)))
	assert.Equal(t, 2*perPacket, cloud.Len())
	assert.Equal(t, 2, handler.Packets())

	packets, bytes, dropped, points, _ := stats.GetAndReset()
	assert.Equal(t, int64(2), packets)
	assert.Equal(t, int64(2*velodyne.PACKET_SIZE), bytes)
	assert.Zero(t, dropped)
	assert.Equal(t, int64(2*perPacket), points)
}

func TestDecodeHandler_DropsWrongSize(t *testing.T) {
	stats := NewPacketStats()
	sink := &recordingSink{}
	handler := NewDecodeHandler(createTestDecoder(t), DecodeHandlerConfig{Stats: stats, Sink: sink})

	require.NoError(t, handler.HandlePacket(make([]byte, 512), time.Now()))

	assert.Empty(t, sink.calls)
	assert.Zero(t, handler.Packets())
	packets, _, dropped, _, _ := stats.GetAndReset()
	assert.Zero(t, packets)
	assert.Equal(t, int64(1), dropped)
}

func TestDecodeHandler_SinkError(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	handler := NewDecodeHandler(createTestDecoder(t), DecodeHandlerConfig{Sink: sink})

	err := handler.HandlePacket(createTestMockPacket(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestDecodeHandler_ReplayEndToEnd(t *testing.T) {
	packet := createTestMockPacket()
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	data := writeTestPCAP(t, []testFrame{
		{port: 2368, payload: packet, ts: base},
		{port: 2368, payload: packet[:600], ts: base.Add(time.Millisecond)},
		{port: 2368, payload: packet, ts: base.Add(2 * time.Millisecond)},
	})

	stats := NewPacketStats()
	cloud := velodyne.NewPointCloud(0)
	handler := NewDecodeHandler(createTestDecoder(t), DecodeHandlerConfig{Stats: stats, Cloud: cloud})

	replay, err := ReadPCAP(context.Background(), bytes.NewReader(data), 2368, handler)
	require.NoError(t, err)
	assert.Equal(t, 3, replay.Payloads)
	assert.Zero(t, replay.HandlerErrors)
	assert.Equal(t, 2*velodyne.BLOCKS_PER_PACKET*velodyne.SCANS_PER_BLOCK, cloud.Len())

	_, _, dropped, _, _ := stats.GetAndReset()
	assert.Equal(t, int64(1), dropped)
}
