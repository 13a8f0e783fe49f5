// Package schema upgrades stored scenario snapshots whose document
// layout predates the current one. Snapshots are immutable, so old
// versions stay on disk as written; migrations run on read.
package schema

import (
	"fmt"
	"sort"
)

// Snapshot is the raw persisted form of a scenario's frozen state: the
// node and edge records as stored JSON, tagged with the layout version
// they were written under.
type Snapshot struct {
	Version int
	Nodes   []byte
	Edges   []byte
}

// MigrationFunc rewrites a snapshot from one layout version to the
// next. It must leave the input untouched on error.
type MigrationFunc func(Snapshot) (Snapshot, error)

// Migration upgrades snapshots from FromVersion to FromVersion+1.
type Migration struct {
	FromVersion int
	Description string
	Up          MigrationFunc
}

// Evolution applies registered migrations in sequence to bring a
// snapshot up to the target layout version.
type Evolution struct {
	targetVersion int
	migrations    map[int]Migration
}

// NewEvolution creates an evolution manager targeting the given layout
// version.
func NewEvolution(targetVersion int) *Evolution {
	return &Evolution{
		targetVersion: targetVersion,
		migrations:    make(map[int]Migration),
	}
}

// Register adds a migration. A second migration from the same version
// is rejected.
func (e *Evolution) Register(m Migration) error {
	if m.Up == nil {
		return fmt.Errorf("migration from version %d has no upgrade function", m.FromVersion)
	}
	if m.FromVersion < 1 || m.FromVersion >= e.targetVersion {
		return fmt.Errorf("migration from version %d is outside 1..%d", m.FromVersion, e.targetVersion-1)
	}
	if _, exists := e.migrations[m.FromVersion]; exists {
		return fmt.Errorf("migration from version %d already registered", m.FromVersion)
	}
	e.migrations[m.FromVersion] = m
	return nil
}

// Upgrade brings a snapshot to the target version, applying each
// registered step in order. A snapshot already at the target version
// passes through unchanged; one newer than the target is rejected,
// since it was written by a newer deployment.
func (e *Evolution) Upgrade(snap Snapshot) (Snapshot, error) {
	if snap.Version == e.targetVersion {
		return snap, nil
	}
	if snap.Version > e.targetVersion {
		return snap, fmt.Errorf("snapshot layout version %d is newer than supported version %d", snap.Version, e.targetVersion)
	}
	if snap.Version < 1 {
		return snap, fmt.Errorf("snapshot has invalid layout version %d", snap.Version)
	}

	for snap.Version < e.targetVersion {
		m, ok := e.migrations[snap.Version]
		if !ok {
			return snap, fmt.Errorf("no migration registered from layout version %d", snap.Version)
		}
		upgraded, err := m.Up(snap)
		if err != nil {
			return snap, fmt.Errorf("migration from layout version %d failed: %w", snap.Version, err)
		}
		upgraded.Version = snap.Version + 1
		snap = upgraded
	}
	return snap, nil
}

// Registered lists the registered migrations in version order.
func (e *Evolution) Registered() []Migration {
	out := make([]Migration, 0, len(e.migrations))
	for _, m := range e.migrations {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FromVersion < out[j].FromVersion })
	return out
}
