package velodyne

import (
	"encoding/binary"
	"fmt"
)

// HDL-64E packet structure constants
const (
	PACKET_SIZE       = 1206                                                                // UDP payload size in bytes
	BLOCKS_PER_PACKET = 12                                                                  // Azimuth blocks per packet
	SCANS_PER_BLOCK   = 32                                                                  // Lasers reported by each block (one bank)
	RAW_SCAN_SIZE     = 3                                                                   // 2 bytes range + 1 byte reflectivity
	BLOCK_HEADER_SIZE = 2                                                                   // Bank header (UPPER_BANK or LOWER_BANK)
	AZIMUTH_SIZE      = 2                                                                   // Azimuth field, little-endian
	BLOCK_SIZE        = BLOCK_HEADER_SIZE + AZIMUTH_SIZE + SCANS_PER_BLOCK*RAW_SCAN_SIZE // 100 bytes
	BLOCK_DATA_SIZE   = BLOCKS_PER_PACKET * BLOCK_SIZE                                      // 1200 bytes
	TAIL_SIZE         = PACKET_SIZE - BLOCK_DATA_SIZE                                       // 6 bytes status tail

	UPPER_BANK        = 0xEEFF // Bytes FF EE on the wire
	LOWER_BANK        = 0xDDFF // Bytes FF DD on the wire
	LOWER_BANK_ORIGIN = 32     // First laser id of the lower bank
	NUM_CHANNELS      = 64     // Lasers across both banks

	DISTANCE_RESOLUTION = 0.002 // Meters per range LSB
	ROTATION_RESOLUTION = 0.01  // Degrees per azimuth LSB
	ROTATION_MAX_UNITS  = 36000 // Azimuth units in a full rotation
)

// Bank identifies which half of the laser array a block reports.
type Bank uint8

const (
	BankUpper Bank = iota
	BankLower
	BankUnknown
)

func (b Bank) String() string {
	switch b {
	case BankUpper:
		return "upper"
	case BankLower:
		return "lower"
	default:
		return "unknown"
	}
}

// Origin returns the laser id reported by slot 0 of a block from this bank.
func (b Bank) Origin() int {
	if b == BankLower {
		return LOWER_BANK_ORIGIN
	}
	return 0
}

// bankOf maps a raw block header to its bank.
func bankOf(header uint16) Bank {
	switch header {
	case UPPER_BANK:
		return BankUpper
	case LOWER_BANK:
		return BankLower
	default:
		return BankUnknown
	}
}

// RawReading is one laser return as it appears on the wire.
type RawReading struct {
	Range        uint16 // Raw range in DISTANCE_RESOLUTION units (0 = no return)
	Reflectivity uint8  // Raw reflectivity
}

// Block is a decoded view of one azimuth block.
type Block struct {
	Header   uint16
	Azimuth  uint16 // 0.01 degree units
	Readings [SCANS_PER_BLOCK]RawReading
}

// Bank returns the bank this block reports.
func (b *Block) Bank() Bank {
	return bankOf(b.Header)
}

// Tail holds the 6-byte status trailer that follows the data blocks.
type Tail struct {
	Timestamp   uint32 // GPS timestamp, microseconds past the hour
	StatusType  uint8
	StatusValue uint8
}

// Packet is a fully materialised packet, used by inspection tools.
// The decode path reads fields in place and never builds one.
type Packet struct {
	Blocks [BLOCKS_PER_PACKET]Block
	Tail   Tail
}

func checkPacketSize(data []byte) error {
	if len(data) != PACKET_SIZE {
		return fmt.Errorf("%w: expected %d, got %d", ErrInvalidPacketSize, PACKET_SIZE, len(data))
	}
	return nil
}

// blockBytes returns the i-th block of a size-checked packet.
func blockBytes(data []byte, i int) []byte {
	off := i * BLOCK_SIZE
	return data[off : off+BLOCK_SIZE]
}

func blockHeader(block []byte) uint16 {
	return binary.LittleEndian.Uint16(block[0:2])
}

func blockAzimuth(block []byte) uint16 {
	return binary.LittleEndian.Uint16(block[2:4])
}

// readingAt extracts the reading in slot j of a block.
func readingAt(block []byte, j int) RawReading {
	k := BLOCK_HEADER_SIZE + AZIMUTH_SIZE + j*RAW_SCAN_SIZE
	return RawReading{
		Range:        binary.LittleEndian.Uint16(block[k : k+2]),
		Reflectivity: block[k+2],
	}
}

// ParseTail parses the 6-byte status trailer.
func ParseTail(data []byte) (Tail, error) {
	if len(data) != TAIL_SIZE {
		return Tail{}, fmt.Errorf("invalid tail size: expected %d, got %d", TAIL_SIZE, len(data))
	}
	return Tail{
		Timestamp:   binary.LittleEndian.Uint32(data[0:4]),
		StatusType:  data[4],
		StatusValue: data[5],
	}, nil
}

// ParsePacket materialises every block and the status tail of a packet.
// Headers are not validated here; callers can check Block.Bank.
func ParsePacket(data []byte) (*Packet, error) {
	if err := checkPacketSize(data); err != nil {
		return nil, err
	}

	pkt := &Packet{}
	for i := 0; i < BLOCKS_PER_PACKET; i++ {
		raw := blockBytes(data, i)
		blk := &pkt.Blocks[i]
		blk.Header = blockHeader(raw)
		blk.Azimuth = blockAzimuth(raw)
		for j := 0; j < SCANS_PER_BLOCK; j++ {
			blk.Readings[j] = readingAt(raw, j)
		}
	}

	tail, err := ParseTail(data[BLOCK_DATA_SIZE:])
	if err != nil {
		return nil, err
	}
	pkt.Tail = tail
	return pkt, nil
}
