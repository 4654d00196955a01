package models

import "time"

// License lifecycle states persisted in the system configuration document.
const (
	LicenseInactive = "inactive"
	LicenseActive   = "active"
	LicenseLocked   = "locked"
)

// SystemConfig is the singleton install/license document persisted as JSON
// on disk.
type SystemConfig struct {
	Installed     bool       `json:"installed"`
	SchoolName    string     `json:"schoolName"`
	InstalledAt   *time.Time `json:"installedAt"`
	ProductKey    string     `json:"productKey"`
	LicenseStatus string     `json:"licenseStatus"`
	LicenseExpiry *time.Time `json:"licenseExpiry"`
}

// LicenseStatusResponse is the admin view of the current license.
type LicenseStatusResponse struct {
	LicenseStatus string     `json:"licenseStatus"`
	LicenseExpiry *time.Time `json:"licenseExpiry"`
	ProductKey    string     `json:"productKey"`
}
