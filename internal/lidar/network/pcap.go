package network

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// pcapngMagic is the block type of the section header that opens every
// pcapng file.
const pcapngMagic = 0x0A0D0D0A

// PacketHandler consumes one sensor payload at a time.
type PacketHandler interface {
	HandlePacket(payload []byte, captureTime time.Time) error
}

// ReplayStats summarizes one pass over a capture file.
type ReplayStats struct {
	Frames        int // Link-layer frames read
	Payloads      int // UDP payloads delivered to the handler
	HandlerErrors int
	Elapsed       time.Duration
}

type packetDataSource interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// ReadPCAPFile opens a capture file and replays it through handler.
func ReadPCAPFile(ctx context.Context, path string, udpPort int, handler PacketHandler) (ReplayStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReplayStats{}, fmt.Errorf("failed to open PCAP file %s: %w", path, err)
	}
	defer f.Close()

	return ReadPCAP(ctx, f, udpPort, handler)
}

// ReadPCAP replays a classic pcap or pcapng stream. UDP payloads whose
// destination port equals udpPort are passed to handler; udpPort 0 accepts
// any port. Handler errors are counted and logged, not returned.
func ReadPCAP(ctx context.Context, r io.Reader, udpPort int, handler PacketHandler) (ReplayStats, error) {
	var stats ReplayStats
	startTime := time.Now()

	src, err := openPacketSource(r)
	if err != nil {
		return stats, err
	}
	opsf("replaying capture (link type %v, udp port %d)", src.LinkType(), udpPort)

	for {
		if err := ctx.Err(); err != nil {
			opsf("PCAP reader stopping due to context cancellation (processed %d frames)", stats.Frames)
			stats.Elapsed = time.Since(startTime)
			return stats, err
		}

		data, ci, err := src.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			stats.Elapsed = time.Since(startTime)
			return stats, fmt.Errorf("failed to read frame %d: %w", stats.Frames+1, err)
		}
		stats.Frames++

		packet := gopacket.NewPacket(data, src.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok {
			continue
		}
		if udpPort != 0 && int(udp.DstPort) != udpPort {
			continue
		}

		payload := udp.Payload
		if len(payload) == 0 {
			continue
		}
		stats.Payloads++

		if err := handler.HandlePacket(payload, ci.Timestamp); err != nil {
			stats.HandlerErrors++
			opsf("Error handling PCAP packet %d: %v", stats.Frames, err)
			continue
		}

		if stats.Payloads%10000 == 0 {
			elapsed := time.Since(startTime)
			diagf("PCAP progress: %d packets processed in %v (%.0f pkt/s)",
				stats.Payloads, elapsed, float64(stats.Payloads)/elapsed.Seconds())
		}
	}

	stats.Elapsed = time.Since(startTime)
	opsf("PCAP file reading complete: %d frames, %d sensor packets in %v", stats.Frames, stats.Payloads, stats.Elapsed)
	return stats, nil
}

// openPacketSource sniffs the first block to choose between the classic
// and pcapng readers.
func openPacketSource(r io.Reader) (packetDataSource, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture header: %w", err)
	}

	if binary.LittleEndian.Uint32(magic) == pcapngMagic {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to open pcapng stream: %w", err)
		}
		return ng, nil
	}

	reader, err := pcapgo.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap stream: %w", err)
	}
	return reader, nil
}
