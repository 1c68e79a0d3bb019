package models

import "time"

// DeviceRecord is one trusted peer address in the device registry.
// Membership is append-only; there is no revocation path.
type DeviceRecord struct {
	Address string    `json:"address"`
	AddedAt time.Time `json:"addedAt"`
}
