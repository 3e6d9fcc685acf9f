// Package telemetry produces a synthetic drone readout for a three-phase
// surveillance mission: approach the target, circle it once, return to base.
// Every reading is generated locally; there is no I/O and no failure mode.
package telemetry

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohae/deepcopy"
	log "github.com/sirupsen/logrus"

	"github.com/skyward/groundlink/pkg/geometry"
)

const (
	// Approach/Return close 2% of the remaining delta per tick.
	approachStep = 0.02
	// Residual below which the approach is considered complete (~100 m).
	arrivalThresholdDeg = 0.001
	// Uniform position jitter, zero-mean, magnitude half this value.
	positionJitterDeg = 0.0001
	// Hover circle radius and angular advance per tick.
	hoverRadiusDeg   = 0.0005
	hoverStepDeg     = 2.0
	hoverFullCircle  = 360.0
	batteryDecrement = 0.5
	batteryFloor     = 20.0
	// Exponential relaxation factor for altitude and speed.
	sensorRelax = 0.1
)

// Config holds the mission geometry and tick period. Zero values fall back
// to the stock Bhubaneswar demo mission.
type Config struct {
	TickMS int   `yaml:"tick_ms"`
	Base   Coord `yaml:"base"`
	Target Coord `yaml:"target"`
}

func (c *Config) applyDefaults() {
	if c.TickMS <= 0 {
		c.TickMS = 1000
	}
	if c.Base == (Coord{}) {
		c.Base = Coord{Lat: 20.2961, Lng: 85.8245}
	}
	if c.Target == (Coord{}) {
		c.Target = Coord{Lat: 20.3501, Lng: 85.8668}
	}
}

// Simulator owns the drone state machine. All mutable per-tick state lives in
// explicit fields rather than in a timer closure so the machine can be
// stepped and inspected directly in tests.
type Simulator struct {
	mu         sync.Mutex
	cfg        Config
	rng        *rand.Rand
	state      State
	hoverAngle float64
	events     []LogEntry
	clock      func() time.Time
}

// New builds a simulator positioned at base in the Approach phase. rng drives
// the jitter and the sensor-update gating; pass a seeded source for
// deterministic runs, or nil for a time-seeded one.
func New(cfg Config, rng *rand.Rand) *Simulator {
	cfg.applyDefaults()
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s := &Simulator{
		cfg:   cfg,
		rng:   rng,
		clock: time.Now,
		state: State{
			Phase:          Approach,
			Status:         "Approaching Target",
			Lat:            cfg.Base.Lat,
			Lng:            cfg.Base.Lng,
			AltitudeMeters: 120,
			SpeedMps:       15,
			BatteryPercent: 87,
		},
	}
	s.state.RangeToTargetMeters = geometry.DistMeters(s.state.Lat, s.state.Lng, cfg.Target.Lat, cfg.Target.Lng)
	s.append("Drone deployed successfully", SeveritySuccess)
	s.append("Approaching target coordinates", SeverityInfo)
	return s
}

// Run drives Tick on the configured period until ctx is cancelled. The ticker
// is released exactly once on the way out.
func (s *Simulator) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.cfg.TickMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick advances the mission by one step: position per the current phase,
// then a probabilistically gated battery/altitude/speed update.
func (s *Simulator) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.MissionElapsedSeconds++

	switch s.state.Phase {
	case Approach:
		latDiff := s.cfg.Target.Lat - s.state.Lat
		lngDiff := s.cfg.Target.Lng - s.state.Lng

		s.state.Lat += latDiff*approachStep + s.jitter(positionJitterDeg)
		s.state.Lng += lngDiff*approachStep + s.jitter(positionJitterDeg)

		if math.Abs(latDiff) < arrivalThresholdDeg && math.Abs(lngDiff) < arrivalThresholdDeg {
			s.state.Phase = Hover
			s.state.Status = "Surveillance Mode"
			s.append("Target area reached. Starting surveillance.", SeveritySuccess)
			log.Printf("telemetry: phase transition %s -> %s after %ds",
				Approach, Hover, s.state.MissionElapsedSeconds)
		}

	case Hover:
		angle := s.hoverAngle * math.Pi / 180
		s.state.Lat = s.cfg.Target.Lat + hoverRadiusDeg*math.Cos(angle)
		s.state.Lng = s.cfg.Target.Lng + hoverRadiusDeg*math.Sin(angle)

		s.hoverAngle += hoverStepDeg
		if s.hoverAngle >= hoverFullCircle {
			s.state.Phase = Return
			s.state.Status = "Returning to Base"
			s.append("Surveillance complete. Returning to base.", SeverityInfo)
			log.Printf("telemetry: phase transition %s -> %s after %ds",
				Hover, Return, s.state.MissionElapsedSeconds)
		}

	case Return:
		latDiff := s.cfg.Base.Lat - s.state.Lat
		lngDiff := s.cfg.Base.Lng - s.state.Lng

		s.state.Lat += latDiff*approachStep + s.jitter(positionJitterDeg)
		s.state.Lng += lngDiff*approachStep + s.jitter(positionJitterDeg)
		// No terminal phase is defined: the drone keeps station near base
		// until the owning screen tears the mission down.
	}

	// Sensor updates are gated to model noisy readings without changing
	// every value on every tick.
	if s.rng.Float64() > 0.8 {
		s.state.BatteryPercent = math.Max(batteryFloor, s.state.BatteryPercent-batteryDecrement)

		altTarget, speedTarget := 120.0, 15.0
		if s.state.Phase == Hover {
			altTarget, speedTarget = 100.0, 5.0
		}
		s.state.AltitudeMeters += (altTarget-s.state.AltitudeMeters)*sensorRelax + s.jitter(5)
		s.state.SpeedMps += (speedTarget-s.state.SpeedMps)*sensorRelax + s.jitter(2)
	}

	s.state.RangeToTargetMeters = geometry.DistMeters(
		s.state.Lat, s.state.Lng, s.cfg.Target.Lat, s.cfg.Target.Lng)
}

// Snapshot returns a deep copy of the current state and event log, so the
// caller never aliases simulator-owned memory.
func (s *Simulator) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{State: s.state, Events: s.events}
	return deepcopy.Copy(snap).(Snapshot)
}

// ToggleRecording flips the recording flag and logs the change.
func (s *Simulator) ToggleRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Recording = !s.state.Recording
	if s.state.Recording {
		s.append("Recording started", SeveritySuccess)
	} else {
		s.append("Recording stopped", SeverityWarning)
	}
}

// ReturnToBase records an operator recall. It only changes the displayed
// status and the log; the phase machine is not forced. Unconfirmed calls are
// no-ops.
func (s *Simulator) ReturnToBase(confirmed bool) {
	if !confirmed {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Status = "Returning to Base"
	s.append("Drone recall initiated - returning to base", SeverityWarning)
}

// EmergencyLanding records an operator-initiated emergency landing.
// Unconfirmed calls are no-ops.
func (s *Simulator) EmergencyLanding(confirmed bool) {
	if !confirmed {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Status = "Emergency Landing"
	s.append("EMERGENCY LANDING INITIATED", SeverityError)
}

func (s *Simulator) jitter(magnitude float64) float64 {
	return (s.rng.Float64() - 0.5) * magnitude
}

// append adds an event log entry. Callers hold s.mu, except New which has
// exclusive access.
func (s *Simulator) append(message string, severity Severity) {
	s.events = append(s.events, LogEntry{
		ID:       uuid.NewString(),
		Time:     s.clock().Format("15:04"),
		Message:  message,
		Severity: severity,
	})
}
