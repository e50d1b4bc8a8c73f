package core

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/samber/lo"

	"github.com/signalsfoundry/campus-mobility/model"
)

// AgendaParams are the scenario scalars that shape generated agendas. Day
// bounds and the mensa window are expressed in slot units (hours of the day
// in the stock scenario).
type AgendaParams struct {
	EntityCount int
	DayStart    int
	DayEnd      int

	MeanArrivalTime  float64
	StdArrivalTime   float64
	MeanStayDuration float64
	StdStayDuration  float64

	MensaProbability float64
	MensaWindowStart int
	MensaWindowEnd   int

	ShareLeisure  float64
	ShareLecture  float64
	ShareTutorial float64

	// ScenarioEndTime is the simulated length of the day in ticks.
	ScenarioEndTime int
}

// Slots returns the number of timeslots in one day.
func (p AgendaParams) Slots() int { return p.DayEnd - p.DayStart }

// Validate rejects parameter sets the generator cannot honour.
func (p AgendaParams) Validate() error {
	switch {
	case p.EntityCount < 0:
		return fmt.Errorf("%w: entityCount must not be negative", ErrConfiguration)
	case p.Slots() < 3:
		return fmt.Errorf("%w: day must span at least 3 slots, got [%d,%d)", ErrConfiguration, p.DayStart, p.DayEnd)
	case p.StdArrivalTime < 0 || p.StdStayDuration < 0:
		return fmt.Errorf("%w: standard deviations must not be negative", ErrConfiguration)
	case p.MensaProbability < 0 || p.MensaProbability > 1:
		return fmt.Errorf("%w: mensaProbability must be within [0,1], got %g", ErrConfiguration, p.MensaProbability)
	case p.MensaWindowStart > p.MensaWindowEnd:
		return fmt.Errorf("%w: mensa window [%d,%d) is inverted", ErrConfiguration, p.MensaWindowStart, p.MensaWindowEnd)
	case p.ShareLeisure < 0 || p.ShareLecture < 0 || p.ShareTutorial < 0:
		return fmt.Errorf("%w: activity shares must not be negative", ErrConfiguration)
	case p.ShareLeisure+p.ShareLecture+p.ShareTutorial > 1+1e-9:
		return fmt.Errorf("%w: leisure, lecture and tutorial shares sum above 1", ErrConfiguration)
	case p.ScenarioEndTime < p.Slots():
		return fmt.Errorf("%w: scenarioEndTime %d is shorter than %d slots", ErrConfiguration, p.ScenarioEndTime, p.Slots())
	}
	return nil
}

// TypeTable holds one row of activity types per entity, one column per slot.
type TypeTable [][]model.ActivityType

// GenerateTypeTable draws an activity-type row for every entity.
func GenerateTypeTable(p AgendaParams, rng *rand.Rand) (TypeTable, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	table := make(TypeTable, p.EntityCount)
	for i := range table {
		table[i] = generateTypeRow(p, rng)
	}
	return table, nil
}

func generateTypeRow(p AgendaParams, rng *rand.Rand) []model.ActivityType {
	arrival := int(math.Round(lo.Clamp(
		rng.NormFloat64()*p.StdArrivalTime+p.MeanArrivalTime,
		float64(p.DayStart), float64(p.DayEnd-3))))
	stay := int(math.Round(lo.Clamp(
		rng.NormFloat64()*p.StdStayDuration+p.MeanStayDuration,
		1, float64(p.DayEnd-arrival))))
	departure := arrival + stay

	free := stay
	mensaSlot := -1
	if rng.Float64() < p.MensaProbability {
		if slot, ok := drawMensaSlot(p, arrival, departure, rng); ok {
			mensaSlot = slot
			free--
		}
	}

	counts := splitActivities(free, p.ShareLecture, p.ShareTutorial, p.ShareLeisure)
	activities := make([]model.ActivityType, 0, p.Slots())
	activities = append(activities, repeat(model.ActivityLecture, counts.lecture)...)
	activities = append(activities, repeat(model.ActivityTutorial, counts.tutorial)...)
	activities = append(activities, repeat(model.ActivityLeisure, counts.leisure)...)
	activities = append(activities, repeat(model.ActivityStudy, counts.study)...)
	rng.Shuffle(len(activities), func(i, j int) {
		activities[i], activities[j] = activities[j], activities[i]
	})

	row := make([]model.ActivityType, 0, p.Slots())
	row = append(row, repeat(model.ActivityEntrance, arrival-p.DayStart)...)
	row = append(row, activities...)
	row = append(row, repeat(model.ActivityEntrance, p.DayEnd-departure)...)
	if mensaSlot >= 0 {
		row = slices.Insert(row, mensaSlot-p.DayStart, model.ActivityMensa)
	}
	return row
}

// drawMensaSlot picks a slot near the middle of the overlap between the
// presence window and the mensa window.
func drawMensaSlot(p AgendaParams, arrival, departure int, rng *rand.Rand) (int, bool) {
	from := max(arrival, p.MensaWindowStart)
	to := min(departure, p.MensaWindowEnd)
	if from >= to {
		return 0, false
	}
	mid := float64(from+to-1) / 2
	slot := int(math.Round(lo.Clamp(mid+rng.NormFloat64(), float64(from), float64(to-1))))
	return slot, true
}

type activityCounts struct {
	lecture, tutorial, leisure, study int
}

// splitActivities distributes free slots by share. Study absorbs the
// remainder; when rounding overshoots, the largest count gives a slot back
// until the three rounded counts fit.
func splitActivities(free int, lecture, tutorial, leisure float64) activityCounts {
	c := activityCounts{
		lecture:  int(math.Round(float64(free) * lecture)),
		tutorial: int(math.Round(float64(free) * tutorial)),
		leisure:  int(math.Round(float64(free) * leisure)),
	}
	for c.lecture+c.tutorial+c.leisure > free {
		switch {
		case c.lecture >= c.tutorial && c.lecture >= c.leisure:
			c.lecture--
		case c.tutorial >= c.leisure:
			c.tutorial--
		default:
			c.leisure--
		}
	}
	c.study = free - c.lecture - c.tutorial - c.leisure
	return c
}

func repeat(t model.ActivityType, n int) []model.ActivityType {
	if n <= 0 {
		return nil
	}
	return slices.Repeat([]model.ActivityType{t}, n)
}
