// Package worldtest drives a world through its exported step API the way the
// server loop would: commands and queries go in as protocol frames, results
// and STATE pushes come back out of per-session channels. Tests built on it
// stay black-box, so they keep passing across internal rewrites.
package worldtest

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"testing"

	"emberwild.gg/internal/protocol"
	"emberwild.gg/internal/sim/catalogs"
	"emberwild.gg/internal/sim/world"
)

type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	W    *world.World

	DefaultSessionID string

	nextID   int
	sessions map[string]*session
}

type session struct {
	SessionID string
	Out       chan []byte
	results   map[string]protocol.ResultMsg
	lastState protocol.StateMsg
	hasState  bool
}

// NewHarness builds a world with the default catalogs, a discarded logger and
// one joined session.
func NewHarness(t *testing.T, cfg world.Config, name string) *Harness {
	t.Helper()

	cats := catalogs.Default()
	h := &Harness{
		T:        t,
		Cats:     cats,
		W:        world.New(cfg, cats, log.New(io.Discard, "", 0)),
		sessions: map[string]*session{},
	}
	h.DefaultSessionID = h.Join(name)
	return h
}

// NewHarnessWithWorld wraps an already-constructed world, for tests that
// attach a store or pre-drive the world before the first join.
func NewHarnessWithWorld(t *testing.T, w *world.World, name string) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	h := &Harness{
		T:        t,
		Cats:     w.Catalogs(),
		W:        w,
		sessions: map[string]*session{},
	}
	h.DefaultSessionID = h.Join(name)
	return h
}

func (h *Harness) Join(name string) string {
	h.T.Helper()

	out := make(chan []byte, 64)
	resp := make(chan world.JoinResponse, 1)
	_, _ = h.W.StepOnce(0, []world.JoinRequest{{Name: name, Out: out, Resp: resp}}, nil, nil, nil)
	jr := <-resp
	if jr.Welcome.SessionID == "" {
		h.T.Fatalf("join returned empty session id")
	}
	s := &session{SessionID: jr.Welcome.SessionID, Out: out, results: map[string]protocol.ResultMsg{}}
	h.sessions[s.SessionID] = s
	h.drainAll()
	return s.SessionID
}

// Cmd applies one command in its own zero-dt tick and returns its result.
// Type, protocol version and a fresh correlation id are filled in.
func (h *Harness) Cmd(msg protocol.CmdMsg) protocol.ResultMsg {
	return h.CmdFor(h.DefaultSessionID, msg)
}

func (h *Harness) CmdFor(sessionID string, msg protocol.CmdMsg) protocol.ResultMsg {
	h.T.Helper()

	msg.Type = protocol.TypeCmd
	msg.ProtocolVersion = protocol.Version
	if msg.ID == "" {
		h.nextID++
		msg.ID = fmt.Sprintf("c%04d", h.nextID)
	}
	_, _ = h.W.StepOnce(0, nil, nil, []world.CmdEnvelope{{SessionID: sessionID, Cmd: msg}}, nil)
	h.drainAll()
	return h.resultFor(sessionID, msg.ID, msg.Cmd)
}

// MustCmd is Cmd that fails the test on a non-OK result.
func (h *Harness) MustCmd(msg protocol.CmdMsg) protocol.ResultMsg {
	h.T.Helper()
	res := h.Cmd(msg)
	if !res.OK {
		h.T.Fatalf("cmd %s failed: %s %s", msg.Cmd, res.Code, res.Message)
	}
	return res
}

func (h *Harness) Query(msg protocol.QueryMsg) protocol.ResultMsg {
	return h.QueryFor(h.DefaultSessionID, msg)
}

func (h *Harness) QueryFor(sessionID string, msg protocol.QueryMsg) protocol.ResultMsg {
	h.T.Helper()

	msg.Type = protocol.TypeQuery
	msg.ProtocolVersion = protocol.Version
	if msg.ID == "" {
		h.nextID++
		msg.ID = fmt.Sprintf("q%04d", h.nextID)
	}
	_, _ = h.W.StepOnce(0, nil, nil, nil, []world.QueryEnvelope{{SessionID: sessionID, Query: msg}})
	h.drainAll()
	return h.resultFor(sessionID, msg.ID, msg.Query)
}

// MustQuery is Query that fails the test on a non-OK result.
func (h *Harness) MustQuery(msg protocol.QueryMsg) protocol.ResultMsg {
	h.T.Helper()
	res := h.Query(msg)
	if !res.OK {
		h.T.Fatalf("query %s failed: %s %s", msg.Query, res.Code, res.Message)
	}
	return res
}

// Advance runs one tick of dt simulated seconds with no requests.
func (h *Harness) Advance(dt float64) {
	h.T.Helper()
	_, _ = h.W.StepOnce(dt, nil, nil, nil, nil)
	h.drainAll()
}

// AdvanceBy splits long stretches into tick-sized steps, the way a live
// server would experience them.
func (h *Harness) AdvanceBy(total, dt float64) {
	h.T.Helper()
	for total > 0 {
		step := dt
		if step > total {
			step = total
		}
		h.Advance(step)
		total -= step
	}
}

// Track points the session's streaming anchor at pos, which also drives
// chunk loading around it.
func (h *Harness) Track(pos world.Vec3) {
	h.T.Helper()
	h.MustCmd(protocol.CmdMsg{Cmd: protocol.CmdTrack, Pos: &protocol.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z}})
}

func (h *Harness) Untrack() {
	h.T.Helper()
	h.MustCmd(protocol.CmdMsg{Cmd: protocol.CmdUntrack})
}

func (h *Harness) LastState() protocol.StateMsg {
	return h.LastStateFor(h.DefaultSessionID)
}

func (h *Harness) LastStateFor(sessionID string) protocol.StateMsg {
	h.T.Helper()
	s := h.sessions[sessionID]
	if s == nil {
		h.T.Fatalf("unknown session id: %q", sessionID)
	}
	if !s.hasState {
		h.T.Fatalf("session %s has received no STATE frame", sessionID)
	}
	return s.lastState
}

func (h *Harness) resultFor(sessionID, id, op string) protocol.ResultMsg {
	h.T.Helper()
	s := h.sessions[sessionID]
	if s == nil {
		h.T.Fatalf("unknown session id: %q", sessionID)
	}
	res, ok := s.results[id]
	if !ok {
		h.T.Fatalf("no result arrived for %s (%s)", id, op)
	}
	return res
}

func (h *Harness) drainAll() {
	h.T.Helper()
	for _, s := range h.sessions {
		h.drainOne(s)
	}
}

func (h *Harness) drainOne(s *session) {
	h.T.Helper()
	for {
		var b []byte
		select {
		case b = <-s.Out:
		default:
			return
		}
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(b, &head); err != nil {
			h.T.Fatalf("unmarshal frame: %v", err)
		}
		switch head.Type {
		case protocol.TypeResult:
			var res protocol.ResultMsg
			if err := json.Unmarshal(b, &res); err != nil {
				h.T.Fatalf("unmarshal RESULT: %v", err)
			}
			s.results[res.ID] = res
		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(b, &st); err != nil {
				h.T.Fatalf("unmarshal STATE: %v", err)
			}
			s.lastState = st
			s.hasState = true
		default:
			h.T.Fatalf("unexpected frame type %q", head.Type)
		}
	}
}
