package network

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/velodyne-rawdata/internal/lidar/velodyne"
)

// createTestMockPacket returns a packet whose blocks alternate between the
// upper and lower bank, every reading at 10 m.
func createTestMockPacket() []byte {
	packet := make([]byte, velodyne.PACKET_SIZE)
	for b := 0; b < velodyne.BLOCKS_PER_PACKET; b++ {
		off := b * velodyne.BLOCK_SIZE
		header := uint16(velodyne.UPPER_BANK)
		if b%2 == 1 {
			header = velodyne.LOWER_BANK
		}
		binary.LittleEndian.PutUint16(packet[off:], header)
		binary.LittleEndian.PutUint16(packet[off+2:], uint16((b/2)*1000))
		for s := 0; s < velodyne.SCANS_PER_BLOCK; s++ {
			r := off + velodyne.BLOCK_HEADER_SIZE + velodyne.AZIMUTH_SIZE + s*velodyne.RAW_SCAN_SIZE
			binary.LittleEndian.PutUint16(packet[r:], 5000)
			packet[r+2] = 100
		}
	}
	return packet
}

func createTestMockCalibration(t *testing.T) *velodyne.CalibrationTable {
	t.Helper()
	table := velodyne.NewCalibrationTable()
	for id := 0; id < velodyne.NUM_CHANNELS; id++ {
		c := velodyne.ChannelCorrection{LaserID: id, MaxIntensity: 255, LaserRing: uint8(id)}
		if err := table.Set(c); err != nil {
			t.Fatalf("Set(%d): %v", id, err)
		}
	}
	table.Initialized = true
	return table
}

func createTestDecoder(t *testing.T) *velodyne.Decoder {
	t.Helper()
	decoder, err := velodyne.NewDecoder(createTestMockCalibration(t), velodyne.FullCircle(0.9, 130))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	return decoder
}

// udpFrame wraps payload in Ethernet/IPv4/UDP headers.
func udpFrame(t *testing.T, dstPort uint16, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x60, 0x76, 0x88, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(192, 168, 3, 43),
		DstIP:    net.IPv4(192, 168, 3, 255),
	}
	udp := &layers.UDP{SrcPort: 2368, DstPort: layers.UDPPort(dstPort)}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("SetNetworkLayerForChecksum: %v", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		t.Fatalf("SerializeLayers: %v", err)
	}
	return buf.Bytes()
}

type testFrame struct {
	port    uint16
	payload []byte
	ts      time.Time
}

// writeTestPCAP encodes frames as a classic little-endian pcap stream.
func writeTestPCAP(t *testing.T, frames []testFrame) []byte {
	t.Helper()
	var out bytes.Buffer
	w := pcapgo.NewWriter(&out)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		t.Fatalf("WriteFileHeader: %v", err)
	}
	for _, f := range frames {
		data := udpFrame(t, f.port, f.payload)
		ci := gopacket.CaptureInfo{Timestamp: f.ts, CaptureLength: len(data), Length: len(data)}
		if err := w.WritePacket(ci, data); err != nil {
			t.Fatalf("WritePacket: %v", err)
		}
	}
	return out.Bytes()
}

// writeTestPCAPNG encodes frames as a pcapng stream.
func writeTestPCAPNG(t *testing.T, frames []testFrame) []byte {
	t.Helper()
	var out bytes.Buffer
	w, err := pcapgo.NewNgWriter(&out, layers.LinkTypeEthernet)
	if err != nil {
		t.Fatalf("NewNgWriter: %v", err)
	}
	for _, f := range frames {
		data := udpFrame(t, f.port, f.payload)
		ci := gopacket.CaptureInfo{Timestamp: f.ts, CaptureLength: len(data), Length: len(data), InterfaceIndex: 0}
		if err := w.WritePacket(ci, data); err != nil {
			t.Fatalf("WritePacket: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	return out.Bytes()
}

// recordingHandler keeps copies of every payload it sees.
type recordingHandler struct {
	payloads [][]byte
	times    []time.Time
	err      error
}

func (h *recordingHandler) HandlePacket(payload []byte, captureTime time.Time) error {
	h.payloads = append(h.payloads, append([]byte(nil), payload...))
	h.times = append(h.times, captureTime)
	return h.err
}

type sinkCall struct {
	index  int
	ts     time.Time
	points []velodyne.Point
}

// recordingSink keeps copies of the points passed to WritePacket.
type recordingSink struct {
	calls []sinkCall
	err   error
}

func (s *recordingSink) WritePacket(index int, captureTime time.Time, points []velodyne.Point) error {
	s.calls = append(s.calls, sinkCall{index: index, ts: captureTime, points: append([]velodyne.Point(nil), points...)})
	return s.err
}
