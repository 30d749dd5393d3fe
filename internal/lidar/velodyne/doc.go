/*
Package velodyne decodes raw HDL-64E class data packets into calibrated point
clouds.

Packet layout (1206 bytes total):

	├── Data Blocks (1200 bytes) - 12 blocks × 100 bytes each, starting at offset 0
	│   └── Each block: 2-byte bank header + 2-byte azimuth + 32 lasers × 3 bytes (range + reflectivity)
	└── Status tail (6 bytes) - 4-byte GPS timestamp (μs past the hour) + status type + status value

Bank headers distinguish the two 32-laser banks. Upper bank blocks carry laser
ids 0..31, lower bank blocks carry 32..63. Header and azimuth are read
little-endian; the azimuth is in 0.01 degree units and doubles as the index
into the sine/cosine cache.

Decoding pipeline per packet:

 1. Size check (no partial decode of short or long buffers)
 2. Per block: bank origin, azimuth window gate
 3. Per reading: distance, rotation composition, two-point distance correction,
    focal intensity correction, axis remap
 4. Range gate, then append to the caller's PointCloud

A Decoder owns its trig cache and a read-only reference to the calibration
table. Nothing on the decode path mutates decoder state, so one Decoder may be
shared across goroutines as long as each call gets its own PointCloud.
*/
package velodyne
