// Package common contains shared constants and sentinel errors used across
// NymDrive components.
package common

const (
	// PathPublic is the reserved virtual folder whose files are transmitted
	// without encryption.
	PathPublic = "Public"

	// PathSharedWithMe is the reserved virtual folder that receives records
	// ingested from SHARE messages.
	PathSharedWithMe = "SharedWithMe"
)
