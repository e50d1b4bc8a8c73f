package core

import (
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/signalsfoundry/campus-mobility/model"
)

func testParams() AgendaParams {
	return AgendaParams{
		EntityCount:      200,
		DayStart:         8,
		DayEnd:           20,
		MeanArrivalTime:  10,
		StdArrivalTime:   2,
		MeanStayDuration: 6,
		StdStayDuration:  2,
		MensaProbability: 0.7,
		MensaWindowStart: 11,
		MensaWindowEnd:   14,
		ShareLeisure:     0.2,
		ShareLecture:     0.4,
		ShareTutorial:    0.2,
		ScenarioEndTime:  43200,
	}
}

func TestGenerateTypeTable_RowLength(t *testing.T) {
	p := testParams()
	table, err := GenerateTypeTable(p, rand.New(rand.NewPCG(7, 7)))
	if err != nil {
		t.Fatalf("GenerateTypeTable error: %v", err)
	}
	if len(table) != p.EntityCount {
		t.Fatalf("rows = %d, want %d", len(table), p.EntityCount)
	}
	for i, row := range table {
		if len(row) != p.DayEnd-p.DayStart {
			t.Fatalf("row %d length = %d, want %d", i, len(row), p.DayEnd-p.DayStart)
		}
	}
}

func TestGenerateTypeTable_ShapeOfPresence(t *testing.T) {
	p := testParams()
	table, err := GenerateTypeTable(p, rand.New(rand.NewPCG(11, 3)))
	if err != nil {
		t.Fatalf("GenerateTypeTable error: %v", err)
	}
	for i, row := range table {
		// Presence is one contiguous run of non-entrance labels.
		first, last := -1, -1
		mensas := 0
		for j, typ := range row {
			if typ != model.ActivityEntrance {
				if first < 0 {
					first = j
				}
				last = j
			}
			if typ == model.ActivityMensa {
				mensas++
				slot := j + p.DayStart
				if slot < p.MensaWindowStart || slot >= p.MensaWindowEnd {
					t.Fatalf("row %d: mensa at slot %d outside [%d,%d)", i, slot, p.MensaWindowStart, p.MensaWindowEnd)
				}
			}
		}
		if mensas > 1 {
			t.Fatalf("row %d has %d mensa slots", i, mensas)
		}
		if first < 0 {
			t.Fatalf("row %d has no presence slot", i)
		}
		for j := first; j <= last; j++ {
			if row[j] == model.ActivityEntrance {
				t.Fatalf("row %d: entrance inside presence window at %d: %v", i, j, row)
			}
		}
		if first > p.DayEnd-3-p.DayStart {
			t.Fatalf("row %d arrives at slot %d, later than dayEnd-3", i, first+p.DayStart)
		}
	}
}

func TestGenerateTypeTable_Deterministic(t *testing.T) {
	p := testParams()
	a, err := GenerateTypeTable(p, rand.New(rand.NewPCG(42, 1)))
	if err != nil {
		t.Fatalf("GenerateTypeTable error: %v", err)
	}
	b, err := GenerateTypeTable(p, rand.New(rand.NewPCG(42, 1)))
	if err != nil {
		t.Fatalf("GenerateTypeTable error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different type tables")
	}
}

func TestSplitActivities_SumsToPool(t *testing.T) {
	tests := []struct {
		free                      int
		lecture, tutorial, leisure float64
	}{
		{0, 0.4, 0.2, 0.2},
		{1, 0.5, 0.5, 0},
		{3, 0.5, 0.5, 0},
		{5, 0.3, 0.3, 0.3},
		{7, 0.4, 0.2, 0.2},
		{12, 1, 0, 0},
		{9, 0, 0, 0},
	}
	for _, tc := range tests {
		c := splitActivities(tc.free, tc.lecture, tc.tutorial, tc.leisure)
		if c.lecture < 0 || c.tutorial < 0 || c.leisure < 0 || c.study < 0 {
			t.Fatalf("negative count for %+v: %+v", tc, c)
		}
		if sum := c.lecture + c.tutorial + c.leisure + c.study; sum != tc.free {
			t.Fatalf("counts %+v sum to %d, want %d", c, sum, tc.free)
		}
	}
	if c := splitActivities(10, 0.4, 0.2, 0.2); c.lecture != 4 || c.tutorial != 2 || c.leisure != 2 || c.study != 2 {
		t.Fatalf("splitActivities(10) = %+v, want 4/2/2/2", c)
	}
}

func TestAgendaParamsValidate(t *testing.T) {
	p := testParams()
	p.ShareLecture = 0.9
	if err := p.Validate(); err == nil {
		t.Fatalf("expected error when shares exceed 1")
	}
	p = testParams()
	p.DayEnd = p.DayStart + 2
	if err := p.Validate(); err == nil {
		t.Fatalf("expected error for a day shorter than 3 slots")
	}
	p = testParams()
	p.MensaProbability = 1.5
	if err := p.Validate(); err == nil {
		t.Fatalf("expected error for mensaProbability > 1")
	}
}

func TestPartitionBoundaries(t *testing.T) {
	p := testParams()
	n := p.Slots()
	length := SlotLength(p)
	b := PartitionBoundaries(p, rand.New(rand.NewPCG(9, 9)))
	if len(b) != n {
		t.Fatalf("len = %d, want %d", len(b), n)
	}
	for i := 0; i < n-1; i++ {
		lo := length*i + int(0.8*float64(length))
		hi := length*i + int(1.2*float64(length))
		if b[i] < lo || b[i] > hi {
			t.Fatalf("boundary %d = %d outside [%d,%d]", i, b[i], lo, hi)
		}
		if b[i] >= b[i+1] {
			t.Fatalf("boundaries not increasing at %d: %v", i, b)
		}
	}
	if b[n-1] != n*length {
		t.Fatalf("last boundary = %d, want %d", b[n-1], n*length)
	}
}
