package telemetry

import "sync"

// DefaultEventsDir is where events.jsonl goes unless configured otherwise.
const DefaultEventsDir = ".agent"

// Settings controls JSONL event emission. Emission is off until Observe is set.
type Settings struct {
	Observe   bool
	EventsDir string
}

var (
	settingsMu sync.RWMutex
	settings   = Settings{EventsDir: DefaultEventsDir}
)

// Configure replaces the event settings and returns the previous ones.
// An empty EventsDir selects DefaultEventsDir.
func Configure(s Settings) Settings {
	if s.EventsDir == "" {
		s.EventsDir = DefaultEventsDir
	}
	settingsMu.Lock()
	defer settingsMu.Unlock()
	prev := settings
	settings = s
	return prev
}

func current() Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings
}

// ObserveEnabled reports whether Emit writes events.
func ObserveEnabled() bool { return current().Observe }

// EventsDir is the directory holding events.jsonl.
func EventsDir() string { return current().EventsDir }
