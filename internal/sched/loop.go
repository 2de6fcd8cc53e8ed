package sched

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"delaytimer/internal/eventbus"
	"delaytimer/internal/storage"
	logx "delaytimer/pkg/logx"
)

// runLoop is the sole consumer of the event bus and the sole mutator of the
// registry and the wheel (the driver only advances hands).
func (s *Scheduler) runLoop(ctx context.Context) error {
	defer close(s.loopDone)

	for {
		select {
		case <-ctx.Done():
			s.cancelAllInstances()
			return ctx.Err()
		case ev := <-s.events:
			switch ev.kind {
			case evAddTask, evUpdateTask:
				s.handleAdd(ev.task)
			case evRemoveTask:
				s.handleRemove(ev.taskID)
			case evCancelInstance:
				s.handleCancelInstance(ev.taskID, ev.instanceID)
			case evFireTask:
				s.handleFire(ev.taskID, ev.at)
			case evInstanceFinished:
				s.handleFinished(ev)
			case evStop:
				s.cancelAllInstances()
				return nil
			}
		}
	}
}

// handleAdd registers a new task or replaces an existing one in place: the
// id is evicted from its slot and reinserted at the next firing instant
// computed from now. Live instances of a replaced task keep running and
// still count against the new definition's parallelism cap.
func (s *Scheduler) handleAdd(t Task) {
	now := s.clock.Now()
	next := t.Frequency.Next(now)

	s.reg.mu.Lock()
	st := s.reg.tasks[t.ID]
	replaced := st != nil
	if st == nil {
		st = &taskState{instances: make(map[uint64]*instanceRecord)}
		s.reg.tasks[t.ID] = st
	}
	st.def = t
	st.remaining = t.Frequency.count
	st.exhausted = false
	st.nextFire = next
	live := len(st.instances)
	s.reg.mu.Unlock()

	if next.IsZero() {
		// Schedule already spent (year bound): never fires.
		if name, ok := s.retire(t.ID); ok {
			s.publishExhausted(t.ID, name, now)
		}
		s.log.Warn("task schedule has no future firing",
			logx.Uint64("task", t.ID), logx.String("spec", t.Frequency.Spec()))
		return
	}

	s.wheel.Insert(t.ID, delaySeconds(now, next))

	s.log.Info("task registered",
		logx.Uint64("task", t.ID),
		logx.String("name", t.Name),
		logx.String("mode", t.Frequency.Mode().String()),
		logx.String("spec", t.Frequency.Spec()),
		logx.Bool("replaced", replaced),
		logx.Int("live", live),
		logx.Time("next", next),
	)
}

func (s *Scheduler) handleRemove(id uint64) {
	s.wheel.Remove(id)

	s.reg.mu.Lock()
	st := s.reg.tasks[id]
	var cancels []context.CancelFunc
	var name string
	if st != nil {
		name = st.def.Name
		for _, rec := range st.instances {
			cancels = append(cancels, rec.cancel)
		}
		delete(s.reg.tasks, id)
	}
	s.reg.mu.Unlock()

	if st == nil {
		return
	}
	for _, cancel := range cancels {
		cancel()
	}

	s.bus.Publish(eventbus.Event{
		Topic: eventbus.TaskRemoved,
		Time: s.clock.Now(),
		Data: TaskEvent{TaskID: id, Name: name, At: s.clock.Now()},
	})
	s.log.Info("task removed", logx.Uint64("task", id), logx.Int("cancelled", len(cancels)))
}

func (s *Scheduler) handleCancelInstance(id, instance uint64) {
	s.reg.mu.Lock()
	var cancel context.CancelFunc
	if st := s.reg.tasks[id]; st != nil {
		if rec := st.instances[instance]; rec != nil {
			cancel = rec.cancel
		}
	}
	s.reg.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// handleFire dispatches one firing: cap check, instance spawn, then
// reinsertion at the next firing instant computed from the tick that fired.
func (s *Scheduler) handleFire(id uint64, at time.Time) {
	s.reg.mu.Lock()
	st := s.reg.tasks[id]
	if st == nil || st.exhausted {
		s.reg.mu.Unlock()
		return
	}
	def := st.def

	if len(st.instances) >= def.maxParallel() {
		st.skips++
		skips := st.skips
		s.reg.mu.Unlock()
		s.skipped.Add(1)
		retiredName, retired := s.reschedule(id, at)

		s.bus.Publish(eventbus.Event{
			Topic: eventbus.TaskSkipped,
			Time: at,
			Data: TaskEvent{TaskID: id, Name: def.Name, At: at, Skips: skips},
		})
		if retired {
			s.publishExhausted(id, retiredName, at)
		}
		if s.warnLimit.Allow() {
			s.log.Debug("firing skipped at parallelism cap",
				logx.Uint64("task", id), logx.Uint64("skips", skips))
		}
		return
	}

	st.instanceSeq++
	instID := st.instanceSeq
	st.fired++
	st.lastFire = at
	if st.remaining > 0 && st.remaining != frequencyInfinite {
		st.remaining--
	}

	runCtx, cancel := context.WithCancel(context.Background())
	rec := &instanceRecord{id: instID, startedAt: at, cancel: cancel}
	var deadlined atomic.Bool
	if def.MaxRunTime > 0 {
		rec.deadline = at.Add(def.MaxRunTime)
		s.armDeadline(runCtx, cancel, &deadlined, def.MaxRunTime)
	}
	st.instances[instID] = rec
	s.reg.mu.Unlock()

	s.fired.Add(1)

	body := def.Body
	name := def.Name
	unit := fmt.Sprintf("task.%d.%d", id, instID)
	run := func(context.Context) {
		err := body.Run(runCtx)
		// Classify before cancelling our own context, or every failure
		// would read as a cancellation.
		s.reportFinished(id, instID, name, at, err, runCtx, &deadlined)
		cancel()
	}
	if body.Blocking() {
		s.exec.SpawnBlocking(unit, run)
	} else {
		s.exec.Spawn(unit, run)
	}

	retiredName, retired := s.reschedule(id, at)

	// Published after reinsertion so observers that see the firing can rely
	// on the next slot already being in place.
	s.bus.Publish(eventbus.Event{
		Topic: eventbus.TaskFired,
		Time: at,
		Data: TaskEvent{TaskID: id, Instance: instID, Name: def.Name, At: at},
	})
	if retired {
		s.publishExhausted(id, retiredName, at)
	}
}

const frequencyInfinite = ^uint64(0)

// armDeadline cancels the instance when its running-time budget expires. The
// timer runs on the injected clock so deadlines hold under a fake clock too.
func (s *Scheduler) armDeadline(runCtx context.Context, cancel context.CancelFunc, deadlined *atomic.Bool, d time.Duration) {
	timer := s.clock.NewTimer(d)
	go func() {
		select {
		case <-timer.Chan():
			deadlined.Store(true)
			cancel()
		case <-runCtx.Done():
			timer.Stop()
		}
	}()
}

// reportFinished runs on the instance's goroutine; it classifies the outcome
// and hands it back to the loop through the bus.
func (s *Scheduler) reportFinished(id, instID uint64, name string, startedAt time.Time, err error, runCtx context.Context, deadlined *atomic.Bool) {
	out := OutcomeCompleted
	switch {
	case err == nil:
		// Bodies that ignore cancellation complete naturally.
	case deadlined.Load():
		out = OutcomeDeadline
	case runCtx.Err() != nil:
		out = OutcomeCancelled
	default:
		out = OutcomeFailed
	}

	fin := event{
		kind:       evInstanceFinished,
		taskID:     id,
		instanceID: instID,
		name:       name,
		startedAt:  startedAt,
		at:         s.clock.Now(),
		outcome:    out,
		err:        err,
	}
	select {
	case s.events <- fin:
	case <-s.loopDone:
		// Scheduler shut down while the body was draining; the outcome has
		// nowhere to go.
	}
}

// reschedule computes the next firing from the instant the firing was
// emitted and reinserts, or retires the task when its schedule is spent.
// It reports whether the task was retired so the caller can publish the
// exhaustion after its own event.
func (s *Scheduler) reschedule(id uint64, firedAt time.Time) (string, bool) {
	s.reg.mu.Lock()
	st := s.reg.tasks[id]
	if st == nil {
		s.reg.mu.Unlock()
		return "", false
	}
	if st.remaining == 0 {
		s.reg.mu.Unlock()
		name, ok := s.retire(id)
		return name, ok
	}
	next := st.def.Frequency.Next(firedAt)
	if next.IsZero() {
		s.reg.mu.Unlock()
		name, ok := s.retire(id)
		return name, ok
	}
	st.nextFire = next
	s.reg.mu.Unlock()

	s.wheel.Insert(id, delaySeconds(firedAt, next))
	return "", false
}

// retire marks a spent schedule. The record lingers (invisible) while
// instances drain so Stop and CancelInstance can still reach them.
func (s *Scheduler) retire(id uint64) (string, bool) {
	s.wheel.Remove(id)

	s.reg.mu.Lock()
	st := s.reg.tasks[id]
	if st == nil {
		s.reg.mu.Unlock()
		return "", false
	}
	st.exhausted = true
	st.nextFire = time.Time{}
	name := st.def.Name
	if len(st.instances) == 0 {
		delete(s.reg.tasks, id)
	}
	s.reg.mu.Unlock()
	return name, true
}

func (s *Scheduler) publishExhausted(id uint64, name string, at time.Time) {
	s.bus.Publish(eventbus.Event{
		Topic: eventbus.TaskExhausted,
		Time: at,
		Data: TaskEvent{TaskID: id, Name: name, At: at},
	})
	s.log.Info("task exhausted", logx.Uint64("task", id), logx.String("name", name))
}

func (s *Scheduler) handleFinished(ev event) {
	s.reg.mu.Lock()
	if st := s.reg.tasks[ev.taskID]; st != nil {
		delete(st.instances, ev.instanceID)
		if st.exhausted && len(st.instances) == 0 {
			delete(s.reg.tasks, ev.taskID)
		}
	}
	s.reg.mu.Unlock()

	s.finished.Add(1)
	if ev.outcome == OutcomeFailed || ev.outcome == OutcomeDeadline {
		s.failed.Add(1)
	}

	dur := ev.at.Sub(ev.startedAt)
	item := HistoryItem{
		TaskID:   ev.taskID,
		Instance: ev.instanceID,
		Name:     ev.name,
		Started:  ev.startedAt,
		Duration: dur,
		Outcome:  ev.outcome,
	}
	if ev.err != nil {
		item.Error = ev.err.Error()
	}
	s.appendHistory(item)

	s.bus.Publish(eventbus.Event{
		Topic: eventbus.InstanceFinished,
		Time: ev.at,
		Data: TaskEvent{
			TaskID:   ev.taskID,
			Instance: ev.instanceID,
			Name:     ev.name,
			At:       ev.at,
			Outcome:  ev.outcome.String(),
			Error:    item.Error,
			Duration: dur,
		},
	})

	switch ev.outcome {
	case OutcomeFailed:
		s.log.Warn("instance failed",
			logx.Uint64("task", ev.taskID), logx.Uint64("instance", ev.instanceID),
			logx.String("name", ev.name), logx.Duration("dur", dur), logx.Err(ev.err))
	case OutcomeDeadline:
		s.log.Warn("instance hit deadline",
			logx.Uint64("task", ev.taskID), logx.Uint64("instance", ev.instanceID),
			logx.String("name", ev.name), logx.Duration("dur", dur))
	default:
		s.log.Debug("instance finished",
			logx.Uint64("task", ev.taskID), logx.Uint64("instance", ev.instanceID),
			logx.String("outcome", ev.outcome.String()), logx.Duration("dur", dur))
	}

	if s.store != nil {
		rec := storage.RunRecord{
			TaskID:   ev.taskID,
			Instance: ev.instanceID,
			Name:     ev.name,
			Started:  ev.startedAt,
			Duration: dur,
			Outcome:  ev.outcome.String(),
			Error:    item.Error,
		}
		select {
		case s.journal <- rec:
		default:
			s.journalDropped.Add(1)
		}
	}
}

func (s *Scheduler) cancelAllInstances() {
	s.reg.mu.Lock()
	var cancels []context.CancelFunc
	for _, st := range s.reg.tasks {
		for _, rec := range st.instances {
			cancels = append(cancels, rec.cancel)
		}
	}
	s.reg.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if len(cancels) > 0 {
		s.log.Info("cancelled live instances", logx.Int("count", len(cancels)))
	}
}

func (s *Scheduler) appendHistory(item HistoryItem) {
	s.hmu.Lock()
	s.history = append(s.history, item)
	if len(s.history) > s.cfg.HistorySize {
		s.history = s.history[len(s.history)-s.cfg.HistorySize:]
	}
	s.hmu.Unlock()
}

// delaySeconds quantizes the gap between two instants to whole wheel ticks.
func delaySeconds(from, to time.Time) int64 {
	d := int64(to.Sub(from) / time.Second)
	if d < 1 {
		d = 1
	}
	return d
}
