package settingsstore

import "github.com/mrlokans/courseshelf/internal/entities"

// GetWifiOnlyDownloads reports whether downloads are refused on metered
// networks. Off unless set in the database or the environment.
func (s *SettingsStore) GetWifiOnlyDownloads() bool {
	return s.boolValue(entities.PreferenceKeyWifiOnlyDownloads)
}

func (s *SettingsStore) SetWifiOnlyDownloads(enabled bool) error {
	return s.Set(entities.PreferenceKeyWifiOnlyDownloads, boolString(enabled))
}
