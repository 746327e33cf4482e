package store

import (
	"encoding/json"
	"fmt"

	"fjacquet/finagent/internal/models"
)

func encodeSnapshot(snapshot *models.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (*models.Snapshot, error) {
	snapshot := models.NewSnapshot()
	if err := json.Unmarshal(data, snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if snapshot.Version > models.SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d is newer than supported version %d", snapshot.Version, models.SnapshotVersion)
	}
	snapshot.Normalize()
	return snapshot, nil
}
