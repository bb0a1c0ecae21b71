package config

// Core configuration keys.
const (
	KeyDefaultPriority = "defaults.priority"
	KeyDefaultType     = "defaults.type"
	KeyCompactDays     = "compact.older-than-days"
	KeySyncRemote      = "sync.remote"
	KeySyncMessage     = "sync.message"
)

// DefaultValues returns the default config map for the core keys.
func DefaultValues() map[string]string {
	return map[string]string{
		KeyDefaultPriority: "2",
		KeyDefaultType:     "task",
		KeyCompactDays:     "30",
		KeySyncRemote:      "origin",
		KeySyncMessage:     "Update issues",
	}
}

// ApplyDefaults fills any missing core keys in s with their default values,
// in memory only. The config file keeps just what the user set explicitly.
func ApplyDefaults(s Store) {
	all := s.All()
	for k, v := range DefaultValues() {
		if _, exists := all[k]; !exists {
			s.SetInMemory(k, v)
		}
	}
}
