package importer

import (
	"context"
	"testing"

	"phias/backend/internal/schedule"
)

func TestRowCheck_StructuralErrorsMappedToColumns(t *testing.T) {
	c := &rowCheck{ctx: context.Background(), row: RawRow{Number: 4}}
	slot := schedule.Slot{
		Kind:         schedule.KindClass,
		Weekday:      schedule.Monday,
		Start:        schedule.TimeOfDay{Hour: 8},
		End:          schedule.TimeOfDay{Hour: 10},
		InstructorID: "inst-1",
		RoomID:       "room-1",
	}

	c.structural(slot.Validate())

	want := map[string]bool{
		ColCohort.Label():     true,
		ColCompetency.Label(): true,
		ColOutcome.Label():    true,
	}
	if len(c.diags) != len(want) {
		t.Fatalf("期望 %d 条诊断，实际 %+v", len(want), c.diags)
	}
	for _, d := range c.diags {
		if !want[d.Field] || d.Row != 4 || d.Message != "必填" {
			t.Errorf("诊断错误: %+v", d)
		}
	}
}

func TestRowCheck_StructuralOrderErrors(t *testing.T) {
	c := &rowCheck{ctx: context.Background(), row: RawRow{Number: 2}}
	c.structural(schedule.ErrTimeOrder)
	c.structural(schedule.ErrDateOrder)

	if len(c.diags) != 2 || c.diags[0].Field != ColEndTime.Label() || c.diags[1].Field != ColEndDate.Label() {
		t.Errorf("顺序错误应落在结束列: %+v", c.diags)
	}
}
