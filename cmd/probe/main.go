package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"emberwild.gg/internal/protocol"
)

// probe is a smoke client: handshake, track a position, fire one of each
// interesting query, print what comes back, exit. Run it against a dev
// server to confirm the wire surface end to end.
func main() {
	var (
		url     = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name    = flag.String("name", "probe", "client name")
		x       = flag.Float64("x", 2.5, "track position x")
		z       = flag.Float64("z", 2.5, "track position z")
		timeout = flag.Duration("timeout", 20*time.Second, "overall deadline")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[probe] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(*timeout))

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Name:            *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	pos := protocol.Vec3{X: *x, Z: *z}
	queries := []protocol.QueryMsg{
		{ID: "Q_chunk_type", Query: protocol.QueryChunkType, CX: 0, CZ: 0},
		{ID: "Q_tile", Query: protocol.QueryTile, Pos: &pos},
		{ID: "Q_walkable", Query: protocol.QueryWalkable, Pos: &pos},
		{ID: "Q_resource", Query: protocol.QueryResourceAt, Pos: &pos, Tolerance: 3},
		{ID: "Q_entities", Query: protocol.QueryEntitiesInRange, Pos: &pos, Radius: 16},
		{ID: "Q_path", Query: protocol.QueryFindPath, From: &pos, To: &protocol.Vec3{X: *x + 6, Z: *z + 6}},
		{ID: "Q_sight", Query: protocol.QueryLineOfSight, From: &pos, To: &protocol.Vec3{X: *x + 6, Z: *z + 6}},
		{ID: "Q_station", Query: protocol.QueryNearestStation, Pos: &pos},
	}

	sent := false
	pending := map[string]bool{}
	states := 0

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Fatalf("read: %v", err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME session=%s seed=%d tick_rate=%d chunk_size=%d",
				w.SessionID, w.WorldParams.Seed, w.WorldParams.TickRateHz, w.WorldParams.ChunkSize)

		case protocol.TypeCatalog:
			var c protocol.CatalogMsg
			if err := json.Unmarshal(msg, &c); err != nil {
				continue
			}
			logger.Printf("CATALOG %s part %d/%d", c.Name, c.Part, c.TotalParts)
			if !sent && c.Part == c.TotalParts {
				sent = true
				track := protocol.CmdMsg{
					Type:            protocol.TypeCmd,
					ProtocolVersion: protocol.Version,
					ID:              "C_track",
					Cmd:             protocol.CmdTrack,
					Pos:             &pos,
				}
				if err := conn.WriteJSON(track); err != nil {
					logger.Fatalf("send track: %v", err)
				}
				pending["C_track"] = true
				for i := range queries {
					q := queries[i]
					q.Type = protocol.TypeQuery
					q.ProtocolVersion = protocol.Version
					if err := conn.WriteJSON(q); err != nil {
						logger.Fatalf("send %s: %v", q.ID, err)
					}
					pending[q.ID] = true
				}
			}

		case protocol.TypeResult:
			var res protocol.ResultMsg
			if err := json.Unmarshal(msg, &res); err != nil {
				continue
			}
			data, _ := json.Marshal(res.Data)
			if res.OK {
				logger.Printf("RESULT %s ok tick=%d data=%s", res.ID, res.Tick, truncate(data, 160))
			} else {
				logger.Printf("RESULT %s %s: %s", res.ID, res.Code, res.Message)
			}
			delete(pending, res.ID)

		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			states++
			if states == 1 {
				logger.Printf("STATE tick=%d clock=%.1f chunk=%s loaded=%d entities=%d resources=%d",
					st.Tick, st.Clock, st.ChunkType, st.LoadedChunks, len(st.Entities), len(st.Resources))
			}

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Printf("ERROR %s: %s", e.Code, e.Message)
		}

		if sent && len(pending) == 0 && states > 0 {
			logger.Printf("probe ok: %d queries answered, %d state frames", len(queries)+1, states)
			return
		}
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return fmt.Sprintf("%s... (%d bytes)", b[:n], len(b))
}
