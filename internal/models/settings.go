package models

import "time"

// MonitorSettings are the user adjustable options of the live monitor
type MonitorSettings struct {
	// RefreshInterval is in seconds
	RefreshInterval int  `json:"refreshInterval" validate:"min=1,max=3600"`
	ShowAlerts      bool `json:"showAlerts"`
	EnableSounds    bool `json:"enableSounds"`
	KioskMode       bool `json:"kioskMode"`
}

// DefaultMonitorSettings returns the settings used when nothing has been saved
func DefaultMonitorSettings() MonitorSettings {
	return MonitorSettings{
		RefreshInterval: 5,
		ShowAlerts:      true,
		EnableSounds:    false,
		KioskMode:       true,
	}
}

// Interval returns the refresh interval as a duration
func (s MonitorSettings) Interval() time.Duration {
	return time.Duration(s.RefreshInterval) * time.Second
}

// SettingsPatch is a stored MonitorSettings where any key may be missing.
// Nil fields keep the value of the settings the patch is applied to.
type SettingsPatch struct {
	RefreshInterval *int  `json:"refreshInterval,omitempty"`
	ShowAlerts      *bool `json:"showAlerts,omitempty"`
	EnableSounds    *bool `json:"enableSounds,omitempty"`
	KioskMode       *bool `json:"kioskMode,omitempty"`
}

// PatchOf returns a patch that sets every field to the value in s
func PatchOf(s MonitorSettings) *SettingsPatch {
	return &SettingsPatch{
		RefreshInterval: &s.RefreshInterval,
		ShowAlerts:      &s.ShowAlerts,
		EnableSounds:    &s.EnableSounds,
		KioskMode:       &s.KioskMode,
	}
}

// Apply returns base with the fields present in the patch replaced
func (p SettingsPatch) Apply(base MonitorSettings) MonitorSettings {
	if p.RefreshInterval != nil {
		base.RefreshInterval = *p.RefreshInterval
	}
	if p.ShowAlerts != nil {
		base.ShowAlerts = *p.ShowAlerts
	}
	if p.EnableSounds != nil {
		base.EnableSounds = *p.EnableSounds
	}
	if p.KioskMode != nil {
		base.KioskMode = *p.KioskMode
	}
	return base
}
