package world

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"emberwild.gg/internal/protocol"
)

func trackCmd(session string, x, z float64) CmdEnvelope {
	return CmdEnvelope{SessionID: session, Cmd: protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		ID:              "c-track",
		Cmd:             protocol.CmdTrack,
		Pos:             &protocol.Vec3{X: x, Z: z},
	}}
}

func decodeResult(t *testing.T, b []byte) protocol.ResultMsg {
	t.Helper()
	var res protocol.ResultMsg
	if err := json.Unmarshal(b, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Type != protocol.TypeResult {
		t.Fatalf("frame type %q, want RESULT", res.Type)
	}
	return res
}

func TestJoinSessionHandshake(t *testing.T) {
	w := testWorld(3)
	out := make(chan []byte, 8)
	resp := w.joinSession(JoinRequest{Name: "scout", Out: out})

	if resp.Welcome.SessionID != "S000001" {
		t.Fatalf("assigned session id %q", resp.Welcome.SessionID)
	}
	wp := resp.Welcome.WorldParams
	if wp.Seed != 3 || wp.ChunkSize != ChunkSize || wp.TickRateHz != 10 || wp.LoadRadius != 2 {
		t.Fatalf("world params %+v", wp)
	}
	if resp.Welcome.Catalogs.Resources.Digest == "" || resp.Welcome.Catalogs.Resources.Count == 0 {
		t.Fatalf("catalog digests missing: %+v", resp.Welcome.Catalogs)
	}

	if len(resp.Catalogs) != 5 {
		t.Fatalf("handshake carries %d catalogs, want 5", len(resp.Catalogs))
	}
	names := []string{"resources", "enemies", "items", "placeables", "stations"}
	for i, c := range resp.Catalogs {
		if c.Name != names[i] || c.Part != 1 || c.TotalParts != 1 || c.Digest == "" || c.Data == nil {
			t.Fatalf("catalog %d: %+v", i, c)
		}
	}
	if w.SessionCount() != 1 {
		t.Fatalf("session count %d", w.SessionCount())
	}
	w.leaveSession(resp.Welcome.SessionID)
	if w.SessionCount() != 0 {
		t.Fatalf("session survived leave")
	}
}

func TestStepOnceFlow(t *testing.T) {
	w := testWorld(2)
	out := make(chan []byte, 16)
	respCh := make(chan JoinResponse, 1)

	joins := []JoinRequest{{SessionID: "T1", Name: "scout", Out: out, Resp: respCh}}
	cmds := []CmdEnvelope{trackCmd("T1", 0.5, 0.5)}
	queries := []QueryEnvelope{{SessionID: "T1", Query: protocol.QueryMsg{
		Type:            protocol.TypeQuery,
		ProtocolVersion: protocol.Version,
		ID:              "q1",
		Query:           protocol.QueryWalkable,
		Pos:             &protocol.Vec3{X: 0.5, Z: 0.5},
	}}}

	tick, digest := w.StepOnce(0.1, joins, nil, cmds, queries)
	if tick != 0 {
		t.Fatalf("first step ran at tick %d", tick)
	}
	if len(digest) != 64 {
		t.Fatalf("digest %q is not sha256 hex", digest)
	}

	select {
	case resp := <-respCh:
		if resp.Welcome.SessionID != "T1" {
			t.Fatalf("welcome for %q", resp.Welcome.SessionID)
		}
	default:
		t.Fatalf("join response not delivered")
	}

	if len(out) != 3 {
		t.Fatalf("out channel holds %d frames, want 3", len(out))
	}
	track := decodeResult(t, <-out)
	if track.ID != "c-track" || !track.OK || track.Tick != 0 {
		t.Fatalf("track result %+v", track)
	}
	walk := decodeResult(t, <-out)
	if walk.ID != "q1" || !walk.OK || walk.Data == nil || walk.Data.Walkable == nil {
		t.Fatalf("walkable result %+v", walk)
	}
	var state protocol.StateMsg
	if err := json.Unmarshal(<-out, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Type != protocol.TypeState || state.SessionID != "T1" || state.Tick != 0 {
		t.Fatalf("state frame %+v", state)
	}
	if state.LoadedChunks != 25 || state.ChunkType == "" {
		t.Fatalf("state world view %+v", state)
	}

	if w.Tick() != 1 || !approx(w.Clock(), 0.1) {
		t.Fatalf("after step: tick=%d clock=%v", w.Tick(), w.Clock())
	}
	if w.LoadedChunkCount() != 25 {
		t.Fatalf("tracked session holds %d chunks, want 25", w.LoadedChunkCount())
	}
	m := w.Metrics()
	if m.Tick != 1 || m.Sessions != 1 || m.LoadedChunks != 25 {
		t.Fatalf("metrics %+v", m)
	}

	// the session leaving shrinks the loaded set to the origin ring
	tick, _ = w.StepOnce(0.1, nil, []string{"T1"}, nil, nil)
	if tick != 1 {
		t.Fatalf("second step ran at tick %d", tick)
	}
	if w.SessionCount() != 0 {
		t.Fatalf("session survived leave")
	}
	if w.LoadedChunkCount() != 9 {
		t.Fatalf("untracked world holds %d chunks, want 9", w.LoadedChunkCount())
	}
}

// driveSteps runs a fixed request script and returns the digest after each
// step.
func driveSteps(t *testing.T, seed int64) []string {
	t.Helper()
	w := testWorld(seed)
	out := make(chan []byte, 64)
	var digests []string

	_, d := w.StepOnce(0.1,
		[]JoinRequest{{SessionID: "A", Name: "a", Out: out}},
		nil,
		[]CmdEnvelope{trackCmd("A", 24.5, -8.5)},
		nil)
	digests = append(digests, d)

	place := CmdEnvelope{SessionID: "A", Cmd: protocol.CmdMsg{
		Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, ID: "p1",
		Cmd: protocol.CmdPlaceEntity, DefID: "barrier", Pos: &protocol.Vec3{X: 30.5, Z: 2.5},
	}}
	harvest := CmdEnvelope{SessionID: "A", Cmd: protocol.CmdMsg{
		Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, ID: "h1",
		Cmd: protocol.CmdHarvest, Pos: &protocol.Vec3{X: 20.5, Z: 4.5}, Tool: "axe", Amount: 5,
	}}
	_, d = w.StepOnce(0.1, nil, nil, []CmdEnvelope{place, harvest}, nil)
	digests = append(digests, d)

	_, d = w.StepOnce(0.5, nil, nil, nil, nil)
	digests = append(digests, d)
	return digests
}

func TestStateDigestDeterminism(t *testing.T) {
	a := driveSteps(t, 555)
	b := driveSteps(t, 555)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("digest diverged at step %d:\n%s\n%s", i, a[i], b[i])
		}
	}
	c := driveSteps(t, 556)
	if c[0] == a[0] {
		t.Fatalf("different seeds produced the same digest")
	}
}

func TestApplyCmdErrorCodes(t *testing.T) {
	w := testWorld(71)
	s := &session{ID: "x", Out: nil, LoadRadius: 2}
	w.sessions[s.ID] = s

	cmd := func(m protocol.CmdMsg) protocol.ResultMsg {
		m.Type = protocol.TypeCmd
		m.ProtocolVersion = protocol.Version
		return w.applyCmd(s, m)
	}
	expect := func(res protocol.ResultMsg, code string) {
		t.Helper()
		if res.OK || res.Code != code || res.Message == "" {
			t.Fatalf("result %+v, want code %s", res, code)
		}
	}

	expect(cmd(protocol.CmdMsg{Cmd: protocol.CmdTrack}), protocol.ErrBadRequest)
	expect(cmd(protocol.CmdMsg{Cmd: protocol.CmdPlaceEntity, DefID: "turret"}), protocol.ErrBadRequest)
	expect(cmd(protocol.CmdMsg{Cmd: protocol.CmdPlaceEntity, DefID: "ballista", Pos: &protocol.Vec3{X: 0.5, Z: 0.5}}), protocol.ErrInvalidTarget)
	expect(cmd(protocol.CmdMsg{Cmd: protocol.CmdRemoveEntity, EntityID: "ent-000404"}), protocol.ErrInvalidTarget)
	expect(cmd(protocol.CmdMsg{Cmd: protocol.CmdLootDeathChest, ChestID: "chest-000404"}), protocol.ErrInvalidTarget)
	expect(cmd(protocol.CmdMsg{Cmd: protocol.CmdDiscoverDungeon, Pos: &protocol.Vec3{X: 0.5, Z: 0.5}}), protocol.ErrIneligible)
	expect(cmd(protocol.CmdMsg{Cmd: "teleport"}), protocol.ErrUnknownCmd)

	tx, tz := findOpenTile(t, w)
	first := cmd(protocol.CmdMsg{Cmd: protocol.CmdPlaceEntity, DefID: "barrier", Pos: &protocol.Vec3{X: float64(tx) + 0.5, Z: float64(tz) + 0.5}})
	if !first.OK || first.Data == nil || first.Data.Entity == nil {
		t.Fatalf("barrier placement failed: %+v", first)
	}
	expect(cmd(protocol.CmdMsg{Cmd: protocol.CmdPlaceEntity, DefID: "barrier", Pos: &protocol.Vec3{X: float64(tx) + 0.5, Z: float64(tz) + 0.5}}), protocol.ErrBlocked)
	expect(cmd(protocol.CmdMsg{Cmd: protocol.CmdHarvest, Pos: &protocol.Vec3{X: float64(tx) + 0.5, Z: float64(tz) + 0.5}, Tool: "axe"}), protocol.ErrNoResource)

	// id echo for correlation
	res := cmd(protocol.CmdMsg{ID: "req-9", Cmd: protocol.CmdUntrack})
	if !res.OK || res.ID != "req-9" {
		t.Fatalf("untrack result %+v", res)
	}
}

func TestApplyCmdDiscoverOutOfBounds(t *testing.T) {
	w := New(Config{Seed: 4242, BoundaryChunks: 2, DebugChecks: true}, nil, testLogger())
	s := &session{ID: "x", LoadRadius: 2}
	w.sessions[s.ID] = s

	var ecx, ecz int
	found := false
	for cx := -12; cx <= 12 && !found; cx++ {
		for cz := -12; cz <= 12; cz++ {
			if (cx < -2 || cx > 2 || cz < -2 || cz > 2) && w.Biome().DungeonEligible(cx, cz) {
				ecx, ecz = cx, cz
				found = true
				break
			}
		}
	}
	if !found {
		t.Fatalf("no eligible chunk outside the boundary")
	}
	res := w.applyCmd(s, protocol.CmdMsg{
		Cmd: protocol.CmdDiscoverDungeon,
		Pos: &protocol.Vec3{X: float64(ecx*ChunkSize) + 4.5, Z: float64(ecz*ChunkSize) + 4.5},
	})
	if res.OK || res.Code != protocol.ErrOutOfBounds {
		t.Fatalf("result %+v, want E_OUT_OF_BOUNDS", res)
	}
}

func TestApplyQueryMissesAndErrors(t *testing.T) {
	w := testWorld(73)

	query := func(m protocol.QueryMsg) protocol.ResultMsg {
		m.Type = protocol.TypeQuery
		m.ProtocolVersion = protocol.Version
		return w.applyQuery(m)
	}

	if res := query(protocol.QueryMsg{Query: protocol.QueryTile}); res.OK || res.Code != protocol.ErrBadRequest {
		t.Fatalf("tile without pos: %+v", res)
	}
	if res := query(protocol.QueryMsg{Query: protocol.QueryFindPath, From: &protocol.Vec3{X: 0.5, Z: 0.5}}); res.OK || res.Code != protocol.ErrBadRequest {
		t.Fatalf("find_path without to: %+v", res)
	}
	if res := query(protocol.QueryMsg{Query: "census"}); res.OK || res.Code != protocol.ErrUnknownQuery {
		t.Fatalf("unknown query: %+v", res)
	}

	// query misses are OK results with the data field empty
	res := query(protocol.QueryMsg{Query: protocol.QueryResourceAt, Pos: &protocol.Vec3{X: 0.5, Z: 0.5}, Tolerance: 0.1})
	if !res.OK {
		t.Fatalf("resource_at miss not OK: %+v", res)
	}
	if res.Data != nil && res.Data.Resource != nil {
		n := w.GetResourceAt(V3(0.5, 0, 0.5), 0.1)
		if n == nil {
			t.Fatalf("resource_at invented a node: %+v", res.Data.Resource)
		}
	}

	res = query(protocol.QueryMsg{Query: protocol.QueryNearestDeathChest, Pos: &protocol.Vec3{}})
	if !res.OK || (res.Data != nil && res.Data.Chest != nil) {
		t.Fatalf("chest miss: %+v", res)
	}

	// a goal far past the expansion budget is a miss, not an error
	res = query(protocol.QueryMsg{Query: protocol.QueryFindPath, From: &protocol.Vec3{X: 0.5, Z: 0.5}, To: &protocol.Vec3{X: 500.5, Z: 0.5}})
	if !res.OK || res.Data == nil || res.Data.PathFound == nil || *res.Data.PathFound {
		t.Fatalf("unreachable path: %+v", res)
	}

	res = query(protocol.QueryMsg{Query: protocol.QueryChunkType, CX: 5, CZ: -3})
	if !res.OK || res.Data == nil || res.Data.ChunkType == "" {
		t.Fatalf("chunk_type: %+v", res)
	}
	if res.Data.ChunkType != w.ChunkTypeAt(5, -3).String() {
		t.Fatalf("chunk_type %q disagrees with the generator", res.Data.ChunkType)
	}

	res = query(protocol.QueryMsg{Query: protocol.QueryNearestStation, Pos: &protocol.Vec3{}, Discipline: "smithing"})
	if !res.OK || res.Data == nil || res.Data.Station == nil || res.Data.Station.Tier != 1 {
		t.Fatalf("nearest_station: %+v", res)
	}
}

func TestSendLatestDropsOldest(t *testing.T) {
	ch := make(chan []byte, 2)
	sendLatest(ch, []byte("a"))
	sendLatest(ch, []byte("b"))
	sendLatest(ch, []byte("c")) // full: a is dropped for c

	if got := string(<-ch); got != "b" {
		t.Fatalf("first frame %q, want b", got)
	}
	if got := string(<-ch); got != "c" {
		t.Fatalf("second frame %q, want c", got)
	}
	if len(ch) != 0 {
		t.Fatalf("channel still holds %d frames", len(ch))
	}
}

func TestRunLoopRequestSave(t *testing.T) {
	dir := t.TempDir()
	w, st := storeWorld(t, 88, dir)

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := make(chan []byte, 16)
	respCh := make(chan JoinResponse, 1)
	w.JoinCh() <- JoinRequest{SessionID: "R1", Name: "runner", Out: out, Resp: respCh}
	select {
	case resp := <-respCh:
		if resp.Welcome.SessionID != "R1" {
			t.Fatalf("welcome for %q", resp.Welcome.SessionID)
		}
	case <-ctx.Done():
		t.Fatalf("join timed out")
	}

	if err := w.RequestSave(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(st.WorldPath()); err != nil {
		t.Fatalf("world record missing after save: %v", err)
	}

	w.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-ctx.Done():
		t.Fatalf("run did not stop")
	}
}
