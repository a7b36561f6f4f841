package world

import (
	"context"
	"time"
)

// Run owns the world until ctx is canceled or Stop is called. Inbound
// requests queue between ticks and apply at the tick boundary in a fixed
// order, so a given request sequence replays identically.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingJoins []JoinRequest
	var pendingLeaves []string
	var pendingCmds []CmdEnvelope
	var pendingQueries []QueryEnvelope
	var pendingSaves []chan error

	for {
		select {
		case <-ctx.Done():
			w.finalSave()
			return ctx.Err()
		case <-w.stopCh:
			w.finalSave()
			return nil
		case req := <-w.joinCh:
			pendingJoins = append(pendingJoins, req)
		case id := <-w.leaveCh:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-w.cmdCh:
			pendingCmds = append(pendingCmds, env)
		case env := <-w.queryCh:
			pendingQueries = append(pendingQueries, env)
		case resp := <-w.saveCh:
			pendingSaves = append(pendingSaves, resp)
		case <-ticker.C:
			w.step(interval.Seconds(), pendingJoins, pendingLeaves, pendingCmds, pendingQueries, pendingSaves)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingCmds = pendingCmds[:0]
			pendingQueries = pendingQueries[:0]
			pendingSaves = pendingSaves[:0]
		}
	}
}

func (w *World) Stop() { close(w.stopCh) }

// RequestSave asks the loop to persist the world at the next tick boundary
// and waits for the result. Only valid while Run is active.
func (w *World) RequestSave(ctx context.Context) error {
	resp := make(chan error, 1)
	select {
	case w.saveCh <- resp:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *World) finalSave() {
	if w.store == nil {
		return
	}
	if err := w.SaveWorld(); err != nil {
		w.log.Printf("world: final save: %v", err)
	}
}

// StepOnce advances the world by a single tick with the same ordering
// semantics as the server loop. Tests and deterministic replays drive the
// world with it.
func (w *World) StepOnce(dt float64, joins []JoinRequest, leaves []string, cmds []CmdEnvelope, queries []QueryEnvelope) (tick uint64, digest string) {
	tick = w.tick.Load()
	w.step(dt, joins, leaves, cmds, queries, nil)
	return tick, w.StateDigest()
}

// sendLatest delivers b without ever blocking the loop: if the channel is
// full, drop the oldest entry to make room.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
