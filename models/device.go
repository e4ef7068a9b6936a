// File: subzero/models/device.go
package models

import "time"

// DeviceRestriction is the server-owned record counting accounts created from one device.
// Either DeviceFingerprint or CookieValue may identify the device.
type DeviceRestriction struct {
	ID                  string    `bson:"id" json:"id"`
	DeviceFingerprint   string    `bson:"deviceFingerprint" json:"deviceFingerprint"`
	CookieValue         string    `bson:"cookieValue" json:"cookieValue"`
	AccountsCreated     []string  `bson:"accountsCreated" json:"accountsCreated"`
	MaxAccountsAllowed  int       `bson:"maxAccountsAllowed" json:"maxAccountsAllowed"`
	IsBlocked           bool      `bson:"isBlocked" json:"isBlocked"`
	BlockedReason       string    `bson:"blockedReason,omitempty" json:"blockedReason,omitempty"`
	FirstAccountCreated time.Time `bson:"firstAccountCreated,omitempty" json:"firstAccountCreated,omitempty"`
	LastActivity        time.Time `bson:"lastActivity" json:"lastActivity"`
}

// HasCapacity reports whether another account may be created on this device.
func (d *DeviceRestriction) HasCapacity() bool {
	return len(d.AccountsCreated) < d.MaxAccountsAllowed
}

// HasAccount reports whether userID is already recorded against this device.
func (d *DeviceRestriction) HasAccount(userID string) bool {
	for _, id := range d.AccountsCreated {
		if id == userID {
			return true
		}
	}
	return false
}

// DeviceCheckRequest is the body of the device restriction check endpoint.
type DeviceCheckRequest struct {
	DeviceFingerprint string `json:"deviceFingerprint"`
	CookieValue       string `json:"cookieValue"`
}

// DeviceCheckResult is the client-observable restriction decision.
type DeviceCheckResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// DeviceBlockRequest is the admin payload for blocking or unblocking a device.
type DeviceBlockRequest struct {
	DeviceFingerprint string `json:"deviceFingerprint"`
	CookieValue       string `json:"cookieValue"`
	Reason            string `json:"reason"`
}
