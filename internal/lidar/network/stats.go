package network

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// PacketStats tracks packet statistics with thread-safe operations
type PacketStats struct {
	mu           sync.Mutex
	packetCount  int64
	byteCount    int64
	droppedCount int64
	pointCount   int64
	lastReset    time.Time
}

// NewPacketStats creates a new PacketStats instance
func NewPacketStats() *PacketStats {
	return &PacketStats{
		lastReset: time.Now(),
	}
}

// AddPacket increments packet count and byte count
func (ps *PacketStats) AddPacket(bytes int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.packetCount++
	ps.byteCount += int64(bytes)
}

// AddDropped increments the count of packets rejected by the decoder
func (ps *PacketStats) AddDropped() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.droppedCount++
}

// AddPoints increments decoded point count
func (ps *PacketStats) AddPoints(count int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.pointCount += int64(count)
}

// GetAndReset returns current stats and resets counters
func (ps *PacketStats) GetAndReset() (packets int64, bytes int64, dropped int64, points int64, duration time.Duration) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := time.Now()
	duration = now.Sub(ps.lastReset)
	packets = ps.packetCount
	bytes = ps.byteCount
	dropped = ps.droppedCount
	points = ps.pointCount

	ps.packetCount = 0
	ps.byteCount = 0
	ps.droppedCount = 0
	ps.pointCount = 0
	ps.lastReset = now

	return
}

// LogStats logs per-second rates since the last call and resets the counters.
func (ps *PacketStats) LogStats() {
	packets, bytes, dropped, points, duration := ps.GetAndReset()
	if packets == 0 && dropped == 0 {
		return
	}
	seconds := duration.Seconds()
	if seconds <= 0 {
		seconds = 1
	}

	logMsg := fmt.Sprintf("Lidar stats (/sec): %s, %.1f packets, %s points",
		humanize.Bytes(uint64(float64(bytes)/seconds)),
		float64(packets)/seconds,
		FormatWithCommas(int64(float64(points)/seconds)))
	if dropped > 0 {
		logMsg += fmt.Sprintf(", %d malformed packets dropped", dropped)
	}

	opsf("%s", logMsg)
}

// FormatWithCommas formats a number with thousands separators
func FormatWithCommas(n int64) string {
	return humanize.Comma(n)
}
