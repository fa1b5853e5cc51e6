package store

import (
	"phias/backend/internal/dto"
	"phias/backend/internal/schedule"
)

// Request 编码为 PUT /slots/:id 请求体
func (u SlotUpdate) Request() dto.UpdateSlotRequest {
	req := dto.UpdateSlotRequest{Notes: u.Notes, Version: u.Version}
	if u.Kind != nil {
		v := string(*u.Kind)
		req.Kind = &v
	}
	if u.ValidFrom != nil {
		v := u.ValidFrom.String()
		req.ValidFrom = &v
	}
	if u.ValidTo != nil {
		v := u.ValidTo.String()
		req.ValidTo = &v
	}
	if u.Weekday != nil {
		v := int(*u.Weekday)
		req.Weekday = &v
	}
	if u.Start != nil {
		v := u.Start.String()
		req.StartTime = &v
	}
	if u.End != nil {
		v := u.End.String()
		req.EndTime = &v
	}
	return req
}

// ParseSlotUpdate 解码 PUT /slots/:id 请求体
func ParseSlotUpdate(req dto.UpdateSlotRequest) (SlotUpdate, error) {
	u := SlotUpdate{Notes: req.Notes, Version: req.Version}
	if req.Kind != nil {
		k := schedule.Kind(*req.Kind)
		u.Kind = &k
	}
	if req.ValidFrom != nil {
		d, err := schedule.ParseISODate(*req.ValidFrom)
		if err != nil {
			return SlotUpdate{}, err
		}
		u.ValidFrom = &d
	}
	if req.ValidTo != nil {
		d, err := schedule.ParseISODate(*req.ValidTo)
		if err != nil {
			return SlotUpdate{}, err
		}
		u.ValidTo = &d
	}
	if req.Weekday != nil {
		w := schedule.Weekday(*req.Weekday)
		u.Weekday = &w
	}
	if req.StartTime != nil {
		t, err := schedule.ParseClock(*req.StartTime)
		if err != nil {
			return SlotUpdate{}, err
		}
		u.Start = &t
	}
	if req.EndTime != nil {
		t, err := schedule.ParseClock(*req.EndTime)
		if err != nil {
			return SlotUpdate{}, err
		}
		u.End = &t
	}
	return u, nil
}
