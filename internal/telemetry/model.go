package telemetry

// Phase is one of the three mutually exclusive motion regimes of a mission.
// Transitions are one-directional: Approach -> Hover -> Return.
type Phase int

const (
	Approach Phase = iota // Closing on the target coordinate.
	Hover                 // Circling the target during surveillance.
	Return                // Heading back to the base coordinate.
)

func (p Phase) String() string {
	return [...]string{
		"Approach",
		"Hover",
		"Return",
	}[p]
}

func (p Phase) Index() int {
	return int(p)
}

// Severity classifies an event log entry.
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	return [...]string{
		"info",
		"success",
		"warning",
		"error",
	}[s]
}

// Coord is a WGS84 latitude/longitude pair in degrees.
type Coord struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

// State is the per-tick drone readout. Mutated by the simulator only; callers
// observe it through Snapshot.
type State struct {
	Phase                 Phase
	Status                string
	Lat                   float64
	Lng                   float64
	AltitudeMeters        float64
	SpeedMps              float64
	BatteryPercent        float64
	MissionElapsedSeconds int
	RangeToTargetMeters   float64
	Recording             bool
}

// LogEntry is one line of the drone event log. The log is append-only and is
// never truncated while a mission is active.
type LogEntry struct {
	ID       string
	Time     string
	Message  string
	Severity Severity
}

// Snapshot is a detached copy of the simulator state and its event log.
type Snapshot struct {
	State  State
	Events []LogEntry
}
