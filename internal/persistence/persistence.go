// Package persistence optionally stores session and signal state in
// Postgres via gorm, off the engine's hot path.
//
// The async buffered-channel-plus-background-goroutine shape is ported
// from the teacher's internal/logger.Logger (CSV writer); the gorm model
// and repository shape is ported from
// nofendian17-stockbit-haka-haki/database/signals/repository.go
// (*gorm.DB-backed Repository, fmt.Errorf-wrapped errors).
package persistence

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"orderflow-engine/internal/model"
)

// SignalRow is the gorm model a SignalRecord is persisted as. SeqID is
// assigned by an in-memory per-session counter that restarts at 1 on every
// process start, so SessionStartMs joins it in the primary key: a fresh
// process always starts a fresh session, so the pair can never collide with
// rows a prior run already wrote.
type SignalRow struct {
	SessionStartMs int64  `gorm:"primaryKey"`
	SeqID          uint64 `gorm:"primaryKey"`
	EventTimeMs    int64  `gorm:"index"`
	Price          float64
	Kind           uint8 `gorm:"index"`
	Direction      uint8
	PriceAfter1m   *float64
	PriceAfter5m   *float64
	Outcome        uint8
}

// TableName pins the gorm table name rather than pluralizing SignalRow.
func (SignalRow) TableName() string { return "signals" }

// SessionRow is the gorm model one session insert/update is persisted as.
// A session's state is append-only: SessionStartMs identifies the session,
// RecordedAtMs the point in time this row captures.
type SessionRow struct {
	SessionStartMs int64 `gorm:"primaryKey"`
	RecordedAtMs   int64 `gorm:"primaryKey"`
	CurrentPrice   float64
	SessionHigh    float64
	SessionLow     float64
	TotalVolume    uint64
}

// TableName pins the gorm table name rather than pluralizing SessionRow.
func (SessionRow) TableName() string { return "sessions" }

// DropCounter is notified when the persistence queue is full and a record
// is dropped.
type DropCounter interface {
	IncPersistenceDrop()
}

type noopDropCounter struct{}

func (noopDropCounter) IncPersistenceDrop() {}

type opKind uint8

const (
	opInsertSession opKind = iota
	opUpdateSession
	opInsertSignal
	opUpdateSignalOutcome
)

// writeOp is the tagged union carried over Repository's internal channel:
// every persistence call is one of four kinds, each using only the payload
// field it needs.
type writeOp struct {
	kind       opKind
	sessionRow SessionRow
	signalRow  SignalRow
}

// Repository asynchronously queues session and signal writes to Postgres;
// its background goroutine writes each queued op on its own, in arrival
// order, with no batching. Construct with New; call Close to drain and stop.
type Repository struct {
	ch    chan writeOp
	done  chan struct{}
	drops DropCounter
	write func(writeOp) error
}

// New creates a Repository backed by db, with an input queue of the given
// capacity. drops may be nil.
func New(db *gorm.DB, queueSize int, drops DropCounter) *Repository {
	return newWithWriter(queueSize, drops, func(op writeOp) error {
		switch op.kind {
		case opInsertSession, opUpdateSession:
			return db.Create(&op.sessionRow).Error
		case opInsertSignal:
			return db.Create(&op.signalRow).Error
		case opUpdateSignalOutcome:
			return db.Save(&op.signalRow).Error
		default:
			return fmt.Errorf("persistence: unknown op kind %d", op.kind)
		}
	})
}

func newWithWriter(queueSize int, drops DropCounter, write func(writeOp) error) *Repository {
	if drops == nil {
		drops = noopDropCounter{}
	}
	r := &Repository{
		ch:    make(chan writeOp, queueSize),
		done:  make(chan struct{}),
		drops: drops,
		write: write,
	}
	go r.run()
	return r
}

func (r *Repository) enqueue(op writeOp) {
	select {
	case r.ch <- op:
	default:
		r.drops.IncPersistenceDrop()
	}
}

// InsertSession implements engine.PersistenceSink: records the start of a
// new session, a zero-volume row timestamped at the session start.
func (r *Repository) InsertSession(sessionStartMs int64) {
	r.enqueue(writeOp{
		kind: opInsertSession,
		sessionRow: SessionRow{
			SessionStartMs: sessionStartMs,
			RecordedAtMs:   sessionStartMs,
		},
	})
}

// UpdateSession implements engine.PersistenceSink: records the session's
// running high/low/volume as of recordedAtMs.
func (r *Repository) UpdateSession(sessionStartMs, recordedAtMs int64, currentPrice, high, low float64, totalVolume uint64) {
	r.enqueue(writeOp{
		kind: opUpdateSession,
		sessionRow: SessionRow{
			SessionStartMs: sessionStartMs,
			RecordedAtMs:   recordedAtMs,
			CurrentPrice:   currentPrice,
			SessionHigh:    high,
			SessionLow:     low,
			TotalVolume:    totalVolume,
		},
	})
}

// InsertSignal implements engine.PersistenceSink: a non-blocking send that
// drops the record if the queue is full rather than stalling the engine.
func (r *Repository) InsertSignal(rec model.SignalRecord) {
	r.enqueue(writeOp{kind: opInsertSignal, signalRow: toRow(rec)})
}

// UpdateSignalOutcome implements engine.PersistenceSink: persists a signal
// record's 1m/5m outcome fields once they have been filled in.
func (r *Repository) UpdateSignalOutcome(rec model.SignalRecord) {
	r.enqueue(writeOp{kind: opUpdateSignalOutcome, signalRow: toRow(rec)})
}

// Close stops accepting new records and waits for the background writer to
// drain what's already queued.
func (r *Repository) Close() {
	close(r.ch)
	<-r.done
}

func (r *Repository) run() {
	defer close(r.done)

	for op := range r.ch {
		if err := r.write(op); err != nil {
			log.Printf("persistence: failed to write op %d: %v", op.kind, err)
		}
	}
}

// Migrate runs gorm's auto-migration for the persistence schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&SignalRow{}, &SessionRow{}); err != nil {
		return fmt.Errorf("persistence: migrate: %w", err)
	}
	return nil
}

func toRow(rec model.SignalRecord) SignalRow {
	return SignalRow{
		SessionStartMs: rec.SessionStartMs,
		SeqID:          rec.SeqID,
		EventTimeMs:    rec.EventTimeMs,
		Price:          rec.Price,
		Kind:           uint8(rec.Kind),
		Direction:      uint8(rec.Direction),
		PriceAfter1m:   rec.PriceAfter1m,
		PriceAfter5m:   rec.PriceAfter5m,
		Outcome:        uint8(rec.Outcome),
	}
}
