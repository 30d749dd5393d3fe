package velodyne

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestSetLogWriters_Enable(t *testing.T) {
	var buf bytes.Buffer
	SetLogWriters(&buf, nil, nil)
	defer SetLogWriters(nil, nil, nil)

	if opsLogger == nil {
		t.Fatal("opsLogger should be non-nil after SetLogWriters with a writer")
	}
	if diagLogger != nil || traceLogger != nil {
		t.Fatal("diag and trace loggers should be nil when passed nil writers")
	}
}

func TestSetLogWriters_Disable(t *testing.T) {
	var buf bytes.Buffer
	SetLogWriters(&buf, &buf, &buf)
	SetLogWriters(nil, nil, nil)

	if opsLogger != nil || diagLogger != nil || traceLogger != nil {
		t.Fatal("all loggers should be nil after SetLogWriters(nil, nil, nil)")
	}
}

func TestNewDecoder_LogsToOps(t *testing.T) {
	var ops bytes.Buffer
	SetLogWriters(&ops, nil, nil)
	defer SetLogWriters(nil, nil, nil)

	if _, err := NewDecoder(createTestMockCalibration(), FullCircle(0.9, 130)); err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}

	output := ops.String()
	if !strings.Contains(output, "[velodyne]") || !strings.Contains(output, "64 lasers") {
		t.Errorf("unexpected ops output %q", output)
	}
}

func TestSetParameters_LogsToDiag(t *testing.T) {
	var diag bytes.Buffer
	SetLogWriters(nil, &diag, nil)
	defer SetLogWriters(nil, nil, nil)

	SetParameters(0, 100, 0, math.Pi/4, math.Pi/4)

	if !strings.Contains(diag.String(), "raw azimuth [31500, 4500]") {
		t.Errorf("unexpected diag output %q", diag.String())
	}
}

func TestUnpack_TracesOutOfRangeAzimuth(t *testing.T) {
	var diag, trace bytes.Buffer
	SetLogWriters(nil, &diag, &trace)
	defer SetLogWriters(nil, nil, nil)

	decoder, err := NewDecoder(createTestMockCalibration(), FullCircle(0, 200))
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}

	packet := createTestMockPacket()
	putBlock(packet, 2, UPPER_BANK, 40000)
	putBlock(packet, 3, 0xAAAA, 0)
	if err := decoder.Unpack(packet, NewPointCloud(0)); err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}

	if !strings.Contains(trace.String(), "azimuth 40000 out of range") {
		t.Errorf("expected trace about azimuth, got %q", trace.String())
	}
	if !strings.Contains(diag.String(), "unknown bank header 0xAAAA") {
		t.Errorf("expected diag about header, got %q", diag.String())
	}
}
