package velodyne

import "encoding/binary"

// putBlock writes a block header and azimuth into a packet.
func putBlock(packet []byte, block int, header, azimuth uint16) {
	off := block * BLOCK_SIZE
	binary.LittleEndian.PutUint16(packet[off:off+2], header)
	binary.LittleEndian.PutUint16(packet[off+2:off+4], azimuth)
}

// putReading writes one laser reading into a block slot.
func putReading(packet []byte, block, slot int, rawRange uint16, reflectivity uint8) {
	off := block*BLOCK_SIZE + BLOCK_HEADER_SIZE + AZIMUTH_SIZE + slot*RAW_SCAN_SIZE
	binary.LittleEndian.PutUint16(packet[off:off+2], rawRange)
	packet[off+2] = reflectivity
}

// createTestMockPacket builds a full packet with alternating upper/lower
// blocks, every laser reporting 10 m at reflectivity 100.
func createTestMockPacket() []byte {
	packet := make([]byte, PACKET_SIZE)
	for block := 0; block < BLOCKS_PER_PACKET; block++ {
		header := uint16(UPPER_BANK)
		if block%2 == 1 {
			header = LOWER_BANK
		}
		putBlock(packet, block, header, uint16((block/2)*1000))
		for slot := 0; slot < SCANS_PER_BLOCK; slot++ {
			putReading(packet, block, slot, 5000, 100)
		}
	}

	tail := packet[BLOCK_DATA_SIZE:]
	binary.LittleEndian.PutUint32(tail[0:4], 1234567)
	tail[4] = 'H'
	tail[5] = 0x0C
	return packet
}

// createTestMockCalibration returns an initialized table covering all 64
// lasers with zero geometric corrections. Each laser's ring equals its id so
// tests can tell lasers apart in the output.
func createTestMockCalibration() *CalibrationTable {
	table := NewCalibrationTable()
	for id := 0; id < NUM_CHANNELS; id++ {
		if err := table.Set(ChannelCorrection{
			LaserID:      id,
			MaxIntensity: 255,
			LaserRing:    uint8(id),
		}); err != nil {
			panic(err)
		}
	}
	table.Initialized = true
	return table
}

// singleLaserCalibration returns an initialized table holding only laser 0.
func singleLaserCalibration(c ChannelCorrection) *CalibrationTable {
	table := NewCalibrationTable()
	c.LaserID = 0
	if err := table.Set(c); err != nil {
		panic(err)
	}
	table.Initialized = true
	return table
}
