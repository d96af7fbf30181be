package netsim

import "testing"

// recordingEvent appends its own label to a shared log when executed, so
// tests can observe the order the engine actually dispatched events in.
type recordingEvent struct {
	baseEvent
	label string
	log   *[]string
}

func (e *recordingEvent) Execute(*Engine) []Event {
	*e.log = append(*e.log, e.label)
	return nil
}

// TestEngine_Run_OrdersByTimestampThenPositionThenSeq verifies the three-key
// ordering the event heap promises: earlier timestamps always run first;
// within a timestamp, Begin events run before End events; within a
// timestamp and position, events run in the order they were scheduled.
func TestEngine_Run_OrdersByTimestampThenPositionThenSeq(t *testing.T) {
	e := NewEngine(nil, 100, NewSimulationKey(1))
	var log []string

	schedule := func(ts Cycle, pos Position, label string) {
		e.Schedule(&recordingEvent{
			baseEvent: baseEvent{timestamp: ts, position: pos, seq: e.nextSeqNum()},
			label:     label,
			log:       &log,
		})
	}

	// Scheduled out of order on purpose.
	schedule(2, End, "t2-end")
	schedule(1, Begin, "t1-begin-a")
	schedule(2, Begin, "t2-begin")
	schedule(1, Begin, "t1-begin-b")
	schedule(1, End, "t1-end")

	e.Run()

	want := []string{"t1-begin-a", "t1-begin-b", "t1-end", "t2-begin", "t2-end"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %q, want %q (full log: %v)", i, log[i], want[i], log)
		}
	}
}

// TestEngine_Run_DiscardsEventsPastHorizon verifies events scheduled beyond
// the simulation horizon never execute.
func TestEngine_Run_DiscardsEventsPastHorizon(t *testing.T) {
	e := NewEngine(nil, 10, NewSimulationKey(1))
	var log []string

	e.Schedule(&recordingEvent{baseEvent: baseEvent{timestamp: 5, seq: e.nextSeqNum()}, label: "in-range", log: &log})
	e.Schedule(&recordingEvent{baseEvent: baseEvent{timestamp: 20, seq: e.nextSeqNum()}, label: "past-horizon", log: &log})

	e.Run()

	if len(log) != 1 || log[0] != "in-range" {
		t.Errorf("log = %v, want only [in-range]", log)
	}
}

// TestEngine_ScheduleRouterWake_IsIdempotentForSameTargetCycle verifies the
// lazy wake-dedup primitive: repeated wake requests for the same router and
// target cycle produce exactly one scheduled event.
func TestEngine_ScheduleRouterWake_IsIdempotentForSameTargetCycle(t *testing.T) {
	e := NewEngine(nil, 100, NewSimulationKey(1))

	e.ScheduleRouterWake(0, 5, 1) // target cycle 6
	e.ScheduleRouterWake(0, 4, 2) // also target cycle 6
	e.ScheduleRouterWake(0, 6, 0) // also target cycle 6

	if got := e.queue.Len(); got != 1 {
		t.Errorf("queue length = %d, want 1 (deduped wake)", got)
	}

	e.ScheduleRouterWake(0, 10, 0) // distinct target cycle 10
	if got := e.queue.Len(); got != 2 {
		t.Errorf("queue length = %d, want 2 (new target cycle)", got)
	}
}

// TestEngine_ClearPendingWake_AllowsReschedulingSameCycle verifies that once
// a wake fires (and the engine clears its pending-wake bookkeeping), a
// fresh request for that same cycle is accepted rather than silently
// deduped forever.
func TestEngine_ClearPendingWake_AllowsReschedulingSameCycle(t *testing.T) {
	e := NewEngine(nil, 100, NewSimulationKey(1))
	e.ScheduleRouterWake(0, 5, 0)
	e.clearPendingWake(0, 5)
	e.ScheduleRouterWake(0, 5, 0)

	if got := e.queue.Len(); got != 2 {
		t.Errorf("queue length = %d, want 2 (wake re-armed after clear)", got)
	}
}
