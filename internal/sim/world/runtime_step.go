package world

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"emberwild.gg/internal/protocol"
)

// stateRadius bounds what a STATE push carries around the tracked position.
const stateRadius = 16.0

func (w *World) step(dt float64, joins []JoinRequest, leaves []string, cmds []CmdEnvelope, queries []QueryEnvelope, saves []chan error) {
	stepStart := time.Now()

	// Leaves before joins: a reconnect with the same transport id lands
	// cleanly in one tick.
	for _, id := range leaves {
		w.leaveSession(id)
	}
	for _, req := range joins {
		resp := w.joinSession(req)
		if req.Resp != nil {
			req.Resp <- resp
		}
	}

	// Commands in receive order, then queries against the post-command state.
	for _, env := range cmds {
		s := w.sessions[env.SessionID]
		if s == nil {
			continue
		}
		res := w.applyCmd(s, env.Cmd)
		w.send(s, res)
	}
	for _, env := range queries {
		s := w.sessions[env.SessionID]
		if s == nil {
			continue
		}
		res := w.applyQuery(env.Query)
		w.send(s, res)
	}

	w.Update(dt)

	var anchors []loadAnchor
	for _, id := range w.sessionIDs() {
		s := w.sessions[id]
		if s.Tracking {
			anchors = append(anchors, loadAnchor{px: s.TrackPos.X, pz: s.TrackPos.Z, radius: s.LoadRadius})
		}
	}
	w.ensureChunks(anchors)

	if len(saves) > 0 {
		err := w.SaveWorld()
		for _, resp := range saves {
			resp <- err
		}
	} else if w.cfg.SaveEverySec > 0 && w.sinceSave >= w.cfg.SaveEverySec {
		if err := w.SaveWorld(); err != nil {
			w.log.Printf("world: periodic save: %v", err)
		}
	}

	for _, id := range w.sessionIDs() {
		s := w.sessions[id]
		if !s.Tracking || s.Out == nil {
			continue
		}
		b, err := json.Marshal(w.buildState(s))
		if err != nil {
			continue
		}
		sendLatest(s.Out, b)
	}

	w.tick.Add(1)
	w.publishMetrics(float64(time.Since(stepStart).Microseconds()) / 1000.0)
}

// sessionIDs returns session ids sorted, so per-tick iteration order never
// depends on map layout.
func (w *World) sessionIDs() []string {
	ids := make([]string, 0, len(w.sessions))
	for id := range w.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w *World) send(s *session, res protocol.ResultMsg) {
	if s.Out == nil {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	sendLatest(s.Out, b)
}

func (w *World) applyCmd(s *session, msg protocol.CmdMsg) protocol.ResultMsg {
	res := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ID:              msg.ID,
		Tick:            w.tick.Load(),
	}
	fail := func(code, format string, args ...interface{}) protocol.ResultMsg {
		res.OK = false
		res.Code = code
		res.Message = fmt.Sprintf(format, args...)
		return res
	}

	switch msg.Cmd {
	case protocol.CmdTrack:
		if msg.Pos == nil {
			return fail(protocol.ErrBadRequest, "track requires pos")
		}
		s.Tracking = true
		s.TrackPos = vecFromProto(*msg.Pos)
		if msg.Radius > 0 {
			s.LoadRadius = msg.Radius
		}
		res.OK = true

	case protocol.CmdUntrack:
		s.Tracking = false
		res.OK = true

	case protocol.CmdPlaceEntity:
		if msg.Pos == nil || msg.DefID == "" {
			return fail(protocol.ErrBadRequest, "place_entity requires pos and def_id")
		}
		req := PlaceEntityRequest{
			DefID: msg.DefID,
			Pos:   vecFromProto(*msg.Pos),
			Item:  msg.Item,
			Count: msg.Count,
		}
		if msg.Stats != nil {
			req.Stats = CraftedStats{
				Power:      msg.Stats.Power,
				Durability: msg.Stats.Durability,
				Efficiency: msg.Stats.Efficiency,
			}
		}
		e, err := w.PlaceEntity(req)
		switch {
		case errors.Is(err, ErrUnknownPlaceable):
			return fail(protocol.ErrInvalidTarget, "%v", err)
		case errors.Is(err, ErrTileOccupied):
			return fail(protocol.ErrBlocked, "%v", err)
		case err != nil:
			return fail(protocol.ErrInternal, "%v", err)
		}
		res.OK = true
		info := entityInfo(e)
		res.Data = &protocol.ResultData{Entity: &info}

	case protocol.CmdRemoveEntity:
		if msg.EntityID == "" {
			return fail(protocol.ErrBadRequest, "remove_entity requires entity_id")
		}
		if !w.RemoveEntity(msg.EntityID) {
			return fail(protocol.ErrInvalidTarget, "no entity %s", msg.EntityID)
		}
		res.OK = true

	case protocol.CmdHarvest:
		if msg.Pos == nil {
			return fail(protocol.ErrBadRequest, "harvest requires pos")
		}
		r, ok := w.HarvestResource(vecFromProto(*msg.Pos), msg.Amount, msg.Tool)
		if !ok {
			return fail(protocol.ErrNoResource, "nothing harvestable at pos with tool %q", msg.Tool)
		}
		res.OK = true
		remaining := r.Remaining
		depleted := r.Depleted
		res.Data = &protocol.ResultData{
			Remaining: &remaining,
			Depleted:  &depleted,
			Drops:     lootStacks(r.Loot),
		}

	case protocol.CmdCreateDeathChest:
		if msg.Pos == nil {
			return fail(protocol.ErrBadRequest, "create_death_chest requires pos")
		}
		c := w.CreateDeathChest(vecFromProto(*msg.Pos), msg.Items)
		res.OK = true
		info := chestInfo(c)
		res.Data = &protocol.ResultData{Chest: &info}

	case protocol.CmdLootDeathChest:
		if msg.ChestID == "" {
			return fail(protocol.ErrBadRequest, "loot_death_chest requires chest_id")
		}
		c := w.GetDeathChest(msg.ChestID)
		if c == nil {
			return fail(protocol.ErrInvalidTarget, "no chest %s", msg.ChestID)
		}
		info := chestInfo(c)
		w.RemoveDeathChest(c.ID)
		res.OK = true
		res.Data = &protocol.ResultData{Chest: &info}

	case protocol.CmdDiscoverDungeon:
		if msg.Pos == nil {
			return fail(protocol.ErrBadRequest, "discover_dungeon requires pos")
		}
		d, err := w.DiscoverDungeonEntrance(vecFromProto(*msg.Pos))
		switch {
		case errors.Is(err, ErrDungeonIneligible):
			return fail(protocol.ErrIneligible, "%v", err)
		case errors.Is(err, ErrOutOfBounds):
			return fail(protocol.ErrOutOfBounds, "%v", err)
		case err != nil:
			return fail(protocol.ErrInternal, "%v", err)
		}
		res.OK = true
		info := dungeonInfo(d)
		res.Data = &protocol.ResultData{Dungeon: &info}

	default:
		return fail(protocol.ErrUnknownCmd, "unknown cmd %q", msg.Cmd)
	}
	return res
}

// applyQuery answers read-only queries. Misses (no tile, no resource, no
// path) are OK results with the matching field empty; callers branch on the
// data, not on error codes.
func (w *World) applyQuery(msg protocol.QueryMsg) protocol.ResultMsg {
	res := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ID:              msg.ID,
		Tick:            w.tick.Load(),
	}
	fail := func(code, format string, args ...interface{}) protocol.ResultMsg {
		res.OK = false
		res.Code = code
		res.Message = fmt.Sprintf(format, args...)
		return res
	}
	needPos := func() (Vec3, bool) {
		if msg.Pos == nil {
			return Vec3{}, false
		}
		return vecFromProto(*msg.Pos), true
	}
	needSegment := func() (Vec3, Vec3, bool) {
		if msg.From == nil || msg.To == nil {
			return Vec3{}, Vec3{}, false
		}
		return vecFromProto(*msg.From), vecFromProto(*msg.To), true
	}

	switch msg.Query {
	case protocol.QueryTile:
		pos, ok := needPos()
		if !ok {
			return fail(protocol.ErrBadRequest, "tile requires pos")
		}
		tx, tz := TileOf(pos)
		t, found := w.TileAt(tx, tz)
		res.OK = true
		if found {
			res.Data = &protocol.ResultData{Tile: &protocol.TileInfo{
				TX:       tx,
				TZ:       tz,
				Terrain:  t.Terrain.String(),
				Walkable: t.Walkable,
			}}
		}

	case protocol.QueryWalkable:
		pos, ok := needPos()
		if !ok {
			return fail(protocol.ErrBadRequest, "walkable requires pos")
		}
		walkable := w.IsWalkable(pos)
		res.OK = true
		res.Data = &protocol.ResultData{Walkable: &walkable}

	case protocol.QueryResourceAt:
		pos, ok := needPos()
		if !ok {
			return fail(protocol.ErrBadRequest, "resource_at requires pos")
		}
		res.OK = true
		// cap the search box so a wild tolerance cannot force chunk loads
		tol := msg.Tolerance
		if tol > stateRadius {
			tol = stateRadius
		}
		if n := w.GetResourceAt(pos, tol); n != nil {
			info := resourceInfo(n)
			res.Data = &protocol.ResultData{Resource: &info}
		}

	case protocol.QueryEntityAt:
		pos, ok := needPos()
		if !ok {
			return fail(protocol.ErrBadRequest, "entity_at requires pos")
		}
		res.OK = true
		if e := w.GetEntityAt(pos); e != nil {
			info := entityInfo(e)
			res.Data = &protocol.ResultData{Entity: &info}
		}

	case protocol.QueryEntitiesInRange:
		pos, ok := needPos()
		if !ok {
			return fail(protocol.ErrBadRequest, "entities_in_range requires pos")
		}
		radius := msg.Radius
		if radius <= 0 {
			radius = stateRadius
		}
		res.OK = true
		ents := w.GetEntitiesInRange(pos, radius)
		if len(ents) > 0 {
			data := &protocol.ResultData{}
			for _, e := range ents {
				data.Entities = append(data.Entities, entityInfo(e))
			}
			res.Data = data
		}

	case protocol.QueryFindPath:
		from, to, ok := needSegment()
		if !ok {
			return fail(protocol.ErrBadRequest, "find_path requires from and to")
		}
		path := w.FindPath(from, to)
		found := len(path) > 0
		res.OK = true
		res.Data = &protocol.ResultData{PathFound: &found, Path: protoPath(path)}

	case protocol.QueryLineOfSight:
		from, to, ok := needSegment()
		if !ok {
			return fail(protocol.ErrBadRequest, "line_of_sight requires from and to")
		}
		r := w.HasLineOfSight(from, to, msg.Tags...)
		res.OK = true
		res.Data = &protocol.ResultData{Sight: &protocol.SightInfo{
			Clear:    r.Clear,
			Blocker:  string(r.Blocker),
			TileX:    r.TileX,
			TileZ:    r.TileZ,
			Distance: r.Distance,
		}}

	case protocol.QueryCheckMovement:
		from, to, ok := needSegment()
		if !ok {
			return fail(protocol.ErrBadRequest, "check_movement requires from and to")
		}
		m := w.CheckMovement(from, to)
		res.OK = true
		res.Data = &protocol.ResultData{Move: &protocol.MoveInfo{
			Pos:   protoVec(m.Pos),
			Moved: m.Moved,
			Slid:  m.Slid,
		}}

	case protocol.QueryChunkType:
		res.OK = true
		res.Data = &protocol.ResultData{ChunkType: w.ChunkTypeAt(msg.CX, msg.CZ).String()}

	case protocol.QueryNearestDeathChest:
		pos, ok := needPos()
		if !ok {
			return fail(protocol.ErrBadRequest, "nearest_death_chest requires pos")
		}
		radius := msg.Radius
		if radius <= 0 {
			radius = math.Inf(1)
		}
		res.OK = true
		if c := w.GetNearbyDeathChest(pos, radius); c != nil {
			info := chestInfo(c)
			res.Data = &protocol.ResultData{Chest: &info}
		}

	case protocol.QueryNearestStation:
		pos, ok := needPos()
		if !ok {
			return fail(protocol.ErrBadRequest, "nearest_station requires pos")
		}
		res.OK = true
		if st := w.NearestStation(pos, msg.Discipline); st != nil {
			info := stationInfo(st)
			res.Data = &protocol.ResultData{Station: &info}
		}

	case protocol.QueryNearestDungeon:
		pos, ok := needPos()
		if !ok {
			return fail(protocol.ErrBadRequest, "nearest_dungeon requires pos")
		}
		res.OK = true
		if d := w.NearestDungeonEntrance(pos, msg.Radius); d != nil {
			info := dungeonInfo(d)
			res.Data = &protocol.ResultData{Dungeon: &info}
		}

	default:
		return fail(protocol.ErrUnknownQuery, "unknown query %q", msg.Query)
	}
	return res
}

func (w *World) buildState(s *session) protocol.StateMsg {
	ck := ChunkKeyOf(s.TrackPos)
	st := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Tick:            w.tick.Load(),
		Clock:           w.clock,
		SessionID:       s.ID,
		Pos:             protoVec(s.TrackPos),
		ChunkType:       w.ChunkTypeAt(ck.CX, ck.CZ).String(),
		LoadedChunks:    len(w.chunks),
	}
	for _, e := range w.GetEntitiesInRange(s.TrackPos, stateRadius) {
		st.Entities = append(st.Entities, entityInfo(e))
	}
	// the 3x3 chunk neighborhood covers every node within stateRadius
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			c := w.chunks[ChunkKey{CX: ck.CX + dx, CZ: ck.CZ + dz}]
			if c == nil {
				continue
			}
			for _, n := range c.Resources {
				if Dist2D(s.TrackPos, n.Pos) <= stateRadius {
					st.Resources = append(st.Resources, resourceInfo(n))
				}
			}
		}
	}
	for _, c := range w.chests {
		if Dist2D(s.TrackPos, c.Pos) <= stateRadius {
			st.Chests = append(st.Chests, chestInfo(c))
		}
	}
	for _, d := range w.entrances {
		if Dist2D(s.TrackPos, d.Pos) <= stateRadius {
			st.Dungeons = append(st.Dungeons, dungeonInfo(d))
		}
	}
	return st
}
