package lidardb

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/velodyne-rawdata/internal/lidar/velodyne"
)

var (
	ErrSessionNotFound = errors.New("decode session not found")
	ErrSessionFinished = errors.New("decode session already finished")
)

// Session records the points decoded from one source. It satisfies the
// network package's Sink interface.
type Session struct {
	db          *LidarDB
	ID          string
	SourcePath  string
	Calibration string
	StartedAt   time.Time

	mu              sync.Mutex
	finished        bool
	packets         int
	points          int
	packetDistances []float64 // Per-packet mean distance
	packetIntensity []float64 // Per-packet mean intensity
	packetWeights   []float64 // Per-packet point counts
}

// SessionSummary is written to decode_sessions when a session finishes.
type SessionSummary struct {
	Packets       int
	Points        int
	MeanDistance  float64
	MeanIntensity float64
}

// SessionRecord is a stored decode session.
type SessionRecord struct {
	ID            string
	SourcePath    string
	Calibration   string
	StartedAt     time.Time
	FinishedAt    *time.Time
	Packets       int
	Points        int
	MeanDistance  *float64
	MeanIntensity *float64
}

// StartSession inserts a new session row.
func (db *LidarDB) StartSession(sourcePath, calibration string) (*Session, error) {
	s := &Session{
		db:          db,
		ID:          uuid.New().String(),
		SourcePath:  sourcePath,
		Calibration: calibration,
		StartedAt:   time.Now(),
	}

	_, err := db.Exec(`INSERT INTO decode_sessions (session_id, source_path, calibration_file, started_at_ns)
		VALUES (?, ?, ?, ?)`, s.ID, s.SourcePath, s.Calibration, s.StartedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to insert decode session: %w", err)
	}

	diagf("started session %s for %s", s.ID, sourcePath)
	return s, nil
}

// WritePacket stores one packet's points in a single transaction.
func (s *Session) WritePacket(index int, captureTime time.Time, points []velodyne.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return ErrSessionFinished
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO decode_points (session_id, packet_index, capture_ns, x, y, z, intensity, ring)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare point insert: %w", err)
	}
	defer stmt.Close()

	captureNs := captureTime.UnixNano()
	for _, p := range points {
		if _, err := stmt.Exec(s.ID, index, captureNs, p.X, p.Y, p.Z, int(p.Intensity), int(p.Ring)); err != nil {
			return fmt.Errorf("failed to insert point for packet %d: %w", index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit packet %d: %w", index, err)
	}

	s.packets++
	s.points += len(points)
	if len(points) > 0 {
		summary := SummarizeCloud(points)
		s.packetDistances = append(s.packetDistances, summary.MeanDistance)
		s.packetIntensity = append(s.packetIntensity, summary.MeanIntensity)
		s.packetWeights = append(s.packetWeights, float64(len(points)))
	}
	return nil
}

// Finish computes the session summary, stores it and closes the session to
// further writes.
func (s *Session) Finish() (SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return SessionSummary{}, ErrSessionFinished
	}

	summary := SessionSummary{Packets: s.packets, Points: s.points}
	var meanDistance, meanIntensity interface{}
	if len(s.packetWeights) > 0 {
		summary.MeanDistance = stat.Mean(s.packetDistances, s.packetWeights)
		summary.MeanIntensity = stat.Mean(s.packetIntensity, s.packetWeights)
		meanDistance, meanIntensity = summary.MeanDistance, summary.MeanIntensity
	}

	_, err := s.db.Exec(`UPDATE decode_sessions
		SET finished_at_ns = ?, packets = ?, points = ?, mean_distance = ?, mean_intensity = ?
		WHERE session_id = ?`,
		time.Now().UnixNano(), summary.Packets, summary.Points, meanDistance, meanIntensity, s.ID)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("failed to finish session %s: %w", s.ID, err)
	}

	s.finished = true
	opsf("session %s finished: %d packets, %d points", s.ID, summary.Packets, summary.Points)
	return summary, nil
}

// GetSession loads a session by id.
func (db *LidarDB) GetSession(id string) (*SessionRecord, error) {
	var (
		rec           SessionRecord
		startedNs     int64
		finishedNs    sql.NullInt64
		meanDistance  sql.NullFloat64
		meanIntensity sql.NullFloat64
	)
	err := db.QueryRow(`SELECT session_id, source_path, calibration_file, started_at_ns, finished_at_ns,
		packets, points, mean_distance, mean_intensity
		FROM decode_sessions WHERE session_id = ?`, id).Scan(
		&rec.ID, &rec.SourcePath, &rec.Calibration, &startedNs, &finishedNs,
		&rec.Packets, &rec.Points, &meanDistance, &meanIntensity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session %s: %w", id, err)
	}

	rec.StartedAt = time.Unix(0, startedNs)
	if finishedNs.Valid {
		t := time.Unix(0, finishedNs.Int64)
		rec.FinishedAt = &t
	}
	if meanDistance.Valid {
		rec.MeanDistance = &meanDistance.Float64
	}
	if meanIntensity.Valid {
		rec.MeanIntensity = &meanIntensity.Float64
	}
	return &rec, nil
}

// CountPoints returns the number of stored points for a session.
func (db *LidarDB) CountPoints(id string) (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM decode_points WHERE session_id = ?`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count points for %s: %w", id, err)
	}
	return n, nil
}

// PacketPoints returns the stored points of one packet in insertion order.
func (db *LidarDB) PacketPoints(id string, index int) ([]velodyne.Point, error) {
	rows, err := db.Query(`SELECT x, y, z, intensity, ring FROM decode_points
		WHERE session_id = ? AND packet_index = ? ORDER BY rowid`, id, index)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()

	var points []velodyne.Point
	for rows.Next() {
		var (
			p               velodyne.Point
			intensity, ring int
		)
		if err := rows.Scan(&p.X, &p.Y, &p.Z, &intensity, &ring); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		p.Intensity = uint8(intensity)
		p.Ring = uint8(ring)
		points = append(points, p)
	}
	return points, rows.Err()
}
