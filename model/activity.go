package model

import (
	"fmt"
	"strings"
)

// ActivityType classifies what an entity does in a timeslot and which
// locations can host it.
type ActivityType string

const (
	ActivityEntrance ActivityType = "ENTRANCE"
	ActivityMensa    ActivityType = "MENSA"
	ActivityTutorial ActivityType = "TUTORIAL"
	ActivityLecture  ActivityType = "LECTURE"
	ActivityStudy    ActivityType = "STUDY"
	ActivityLeisure  ActivityType = "LEISURE"
	// ActivityRouting marks hubs that only carry traffic between places.
	ActivityRouting ActivityType = "ROUTING"
	// ActivityDefault is the fallback pool used when a typed pool is full.
	ActivityDefault ActivityType = "DEFAULT"
)

// ActivityTypes lists every activity type in declaration order.
var ActivityTypes = []ActivityType{
	ActivityEntrance,
	ActivityMensa,
	ActivityTutorial,
	ActivityLecture,
	ActivityStudy,
	ActivityLeisure,
	ActivityRouting,
	ActivityDefault,
}

// ParseActivityType maps a document value to an ActivityType. Matching is
// case-insensitive and an empty value means a routing-only hub.
func ParseActivityType(s string) (ActivityType, error) {
	v := ActivityType(strings.ToUpper(strings.TrimSpace(s)))
	if v == "" {
		return ActivityRouting, nil
	}
	for _, t := range ActivityTypes {
		if t == v {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown activity type %q", s)
}

// Schedulable reports whether locations of this type can be assigned to an
// agenda slot.
func (t ActivityType) Schedulable() bool {
	return t != ActivityRouting && t != ""
}

func (t ActivityType) String() string { return string(t) }
