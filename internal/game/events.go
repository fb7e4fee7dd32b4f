package game

import "commodex/internal/catalog"

// stepEvent ages the active event and, on a cycle boundary with nothing
// active, may roll a new one from the pool. It never pre-empts a running event.
func stepEvent(active *Event, cycleProgress int, pool []catalog.EventTemplate, r Rand) *Event {
	var next *Event
	if active != nil {
		ev := *active
		ev.RemainingDays--
		if ev.RemainingDays > 0 {
			next = &ev
		}
	}
	if next != nil || cycleProgress < CycleLength || len(pool) == 0 {
		return next
	}
	if r.Float64() <= EventTriggerDraw {
		return nil
	}
	tpl := pool[r.Intn(len(pool))]
	duration := MinEventDays + r.Intn(MaxEventDays-MinEventDays+1)
	return &Event{
		Name:          tpl.Name,
		Description:   tpl.Description,
		Category:      tpl.Category,
		Multiplier:    tpl.Multiplier,
		Duration:      duration,
		RemainingDays: duration,
	}
}
