package models

// Account defaults applied at ingestion
const (
	DefaultSubtype = "unknown"
)

// SnapshotVersion is the current persisted state format version
const SnapshotVersion = 1

// File permissions
const (
	PermissionDataFile  = 0600
	PermissionDirectory = 0750
)
