// Package config loads the scenario settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/campus-mobility/core"
)

// ErrInvalidSettings marks a settings file that cannot drive a scenario.
var ErrInvalidSettings = errors.New("invalid settings")

const (
	DefaultMensaWindowStart = 11
	DefaultMensaWindowEnd   = 14
	DefaultWorldSize        = 500.0
	DefaultSpeedMin         = 0.5
	DefaultSpeedMax         = 1.5
	DefaultTickSeconds      = 1.0
)

// Size is the simulation area [0,X] x [0,Y].
type Size struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// SpeedRange bounds the uniform speed distribution.
type SpeedRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Settings mirrors the scenario settings file.
type Settings struct {
	EntityCount int `yaml:"entityCount"`
	DayStart    int `yaml:"dayStart"`
	DayEnd      int `yaml:"dayEnd"`

	MeanArrivalTime  float64 `yaml:"meanArrivalTime"`
	StdArrivalTime   float64 `yaml:"stdArrivalTime"`
	MeanStayDuration float64 `yaml:"meanStayDuration"`
	StdStayDuration  float64 `yaml:"stdStayDuration"`
	MensaProbability float64 `yaml:"mensaProbability"`

	ShareLeisure  float64 `yaml:"shareLeisure"`
	ShareLecture  float64 `yaml:"shareLecture"`
	ShareTutorial float64 `yaml:"shareTutorial"`

	ScenarioEndTime int `yaml:"scenarioEndTime"`

	Seed                 uint64     `yaml:"seed"`
	MensaWindowStart     int        `yaml:"mensaWindowStart"`
	MensaWindowEnd       int        `yaml:"mensaWindowEnd"`
	WorldSize            Size       `yaml:"worldSize"`
	Speed                SpeedRange `yaml:"speed"`
	MaxPlacementAttempts int        `yaml:"maxPlacementAttempts"`
	TickSeconds          float64    `yaml:"tickSeconds"`
}

var requiredKeys = []string{
	"entityCount", "dayStart", "dayEnd",
	"meanArrivalTime", "stdArrivalTime", "meanStayDuration", "stdStayDuration",
	"mensaProbability", "shareLeisure", "shareLecture", "shareTutorial",
	"scenarioEndTime",
}

// Load reads and validates a settings file.
func Load(path string) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes settings from r, applies defaults and validates the result.
// Unknown keys are rejected.
func Parse(r io.Reader) (Settings, error) {
	var s Settings
	raw, err := io.ReadAll(r)
	if err != nil {
		return s, err
	}

	var present map[string]any
	if err := yaml.Unmarshal(raw, &present); err != nil {
		return s, fmt.Errorf("%w: settings.yaml: %w", ErrInvalidSettings, err)
	}
	var missing []string
	for _, k := range requiredKeys {
		if _, ok := present[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return s, fmt.Errorf("%w: missing required keys %v", ErrInvalidSettings, missing)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return s, fmt.Errorf("%w: settings.yaml: %w", ErrInvalidSettings, err)
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// ApplyDefaults fills optional settings left at their zero value.
func (s *Settings) ApplyDefaults() {
	if s.MensaWindowStart == 0 && s.MensaWindowEnd == 0 {
		s.MensaWindowStart = DefaultMensaWindowStart
		s.MensaWindowEnd = DefaultMensaWindowEnd
	}
	if s.WorldSize.X == 0 {
		s.WorldSize.X = DefaultWorldSize
	}
	if s.WorldSize.Y == 0 {
		s.WorldSize.Y = DefaultWorldSize
	}
	if s.Speed.Min == 0 && s.Speed.Max == 0 {
		s.Speed = SpeedRange{Min: DefaultSpeedMin, Max: DefaultSpeedMax}
	}
	if s.MaxPlacementAttempts == 0 {
		s.MaxPlacementAttempts = core.DefaultMaxPlacementAttempts
	}
	if s.TickSeconds == 0 {
		s.TickSeconds = DefaultTickSeconds
	}
}

// Validate checks the settings, including every agenda parameter rule.
func (s Settings) Validate() error {
	if err := s.AgendaParams().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	switch {
	case s.EntityCount <= 0:
		return fmt.Errorf("%w: entityCount must be positive, got %d", ErrInvalidSettings, s.EntityCount)
	case s.WorldSize.X < 0 || s.WorldSize.Y < 0:
		return fmt.Errorf("%w: worldSize must be positive", ErrInvalidSettings)
	case s.Speed.Min < 0 || s.Speed.Max < s.Speed.Min:
		return fmt.Errorf("%w: speed range [%g,%g] is invalid", ErrInvalidSettings, s.Speed.Min, s.Speed.Max)
	case s.MaxPlacementAttempts < 0:
		return fmt.Errorf("%w: maxPlacementAttempts must not be negative", ErrInvalidSettings)
	case s.TickSeconds < 0:
		return fmt.Errorf("%w: tickSeconds must be positive", ErrInvalidSettings)
	}
	return nil
}

// AgendaParams converts the settings into generator parameters.
func (s Settings) AgendaParams() core.AgendaParams {
	return core.AgendaParams{
		EntityCount:      s.EntityCount,
		DayStart:         s.DayStart,
		DayEnd:           s.DayEnd,
		MeanArrivalTime:  s.MeanArrivalTime,
		StdArrivalTime:   s.StdArrivalTime,
		MeanStayDuration: s.MeanStayDuration,
		StdStayDuration:  s.StdStayDuration,
		MensaProbability: s.MensaProbability,
		MensaWindowStart: s.MensaWindowStart,
		MensaWindowEnd:   s.MensaWindowEnd,
		ShareLeisure:     s.ShareLeisure,
		ShareLecture:     s.ShareLecture,
		ShareTutorial:    s.ShareTutorial,
		ScenarioEndTime:  s.ScenarioEndTime,
	}
}

// Extent returns the simulation area.
func (s Settings) Extent() (orb.Bound, error) {
	return core.NewExtent(s.WorldSize.X, s.WorldSize.Y)
}

// SpeedSampler returns the uniform speed distribution.
func (s Settings) SpeedSampler() core.UniformSpeed {
	return core.UniformSpeed{Min: s.Speed.Min, Max: s.Speed.Max}
}
