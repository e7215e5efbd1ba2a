package domain

import "context"

// SnapshotChannel is the bus channel carrying encoded snapshots.
const SnapshotChannel = "ch:snapshot"

// SignalBus provides fire-and-forget pub/sub between the paper backend and the
// WebSocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// LatestStore keeps the most recent encoded snapshot so late joiners can be
// primed before the next publish. Latest returns ErrNotFound when empty.
type LatestStore interface {
	SaveLatest(ctx context.Context, payload []byte) error
	Latest(ctx context.Context) ([]byte, error)
}
