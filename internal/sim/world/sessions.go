package world

import (
	"fmt"

	"emberwild.gg/internal/protocol"
)

// session is the loop-side state for one connected client. Everything here is
// owned by the loop goroutine; the transport only holds the Out channel.
type session struct {
	ID   string
	Name string
	Out  chan []byte

	Tracking   bool
	TrackPos   Vec3
	LoadRadius int
}

type JoinRequest struct {
	// SessionID comes from the transport (a uuid per connection). Empty means
	// the world assigns one, which embedders and tests rely on.
	SessionID string
	Name      string
	Out       chan []byte
	Resp      chan JoinResponse
}

type JoinResponse struct {
	Welcome  protocol.WelcomeMsg
	Catalogs []protocol.CatalogMsg
}

// CmdEnvelope ties an inbound command to the session that sent it.
type CmdEnvelope struct {
	SessionID string
	Cmd       protocol.CmdMsg
}

type QueryEnvelope struct {
	SessionID string
	Query     protocol.QueryMsg
}

// Inbox accessors for the transport. Sends may block briefly while the loop
// drains; channels are buffered deep enough for normal operation.
func (w *World) JoinCh() chan<- JoinRequest    { return w.joinCh }
func (w *World) LeaveCh() chan<- string        { return w.leaveCh }
func (w *World) CmdCh() chan<- CmdEnvelope     { return w.cmdCh }
func (w *World) QueryCh() chan<- QueryEnvelope { return w.queryCh }
func (w *World) SaveCh() chan<- chan error     { return w.saveCh }

func (w *World) joinSession(req JoinRequest) JoinResponse {
	id := req.SessionID
	if id == "" {
		w.nextSess++
		id = fmt.Sprintf("S%06d", w.nextSess)
	}
	w.sessions[id] = &session{
		ID:         id,
		Name:       req.Name,
		Out:        req.Out,
		LoadRadius: w.cfg.LoadRadius,
	}
	w.logEvent(Event{Kind: EventSessionJoined, EntityID: id, Detail: req.Name})
	return JoinResponse{Welcome: w.buildWelcome(id), Catalogs: w.buildCatalogMsgs()}
}

func (w *World) leaveSession(id string) {
	if _, ok := w.sessions[id]; !ok {
		return
	}
	delete(w.sessions, id)
	w.logEvent(Event{Kind: EventSessionLeft, EntityID: id})
}

func (w *World) buildWelcome(sessionID string) protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		WorldParams: protocol.WorldParams{
			TickRateHz:     w.cfg.TickRateHz,
			ChunkSize:      ChunkSize,
			LoadRadius:     w.cfg.LoadRadius,
			BoundaryChunks: w.cfg.BoundaryChunks,
			Seed:           w.cfg.Seed,
			Clock:          w.clock,
		},
		Catalogs: protocol.CatalogDigests{
			Resources:  protocol.DigestRef{Digest: w.cats.Resources.Digest, Count: len(w.cats.Resources.Palette)},
			Enemies:    protocol.DigestRef{Digest: w.cats.Enemies.Digest, Count: len(w.cats.Enemies.Palette)},
			Items:      protocol.DigestRef{Digest: w.cats.Items.Digest, Count: len(w.cats.Items.Palette)},
			Placeables: protocol.DigestRef{Digest: w.cats.Placeables.Digest, Count: len(w.cats.Placeables.Palette)},
			Stations:   protocol.DigestRef{Digest: w.cats.Stations.Digest, Count: len(w.cats.Stations.Palette)},
		},
	}
}

func (w *World) buildCatalogMsgs() []protocol.CatalogMsg {
	one := func(name, digest string, data interface{}) protocol.CatalogMsg {
		return protocol.CatalogMsg{
			Type:            protocol.TypeCatalog,
			ProtocolVersion: protocol.Version,
			Name:            name,
			Digest:          digest,
			Part:            1,
			TotalParts:      1,
			Data:            data,
		}
	}
	// Full def maps, not just id lists: a fresh client can play from the
	// join handshake alone. encoding/json sorts map keys, so frames stay
	// byte-stable for a given catalog digest.
	return []protocol.CatalogMsg{
		one("resources", w.cats.Resources.Digest, w.cats.Resources.Defs),
		one("enemies", w.cats.Enemies.Digest, w.cats.Enemies.Defs),
		one("items", w.cats.Items.Digest, w.cats.Items.Defs),
		one("placeables", w.cats.Placeables.Digest, w.cats.Placeables.Defs),
		one("stations", w.cats.Stations.Digest, w.cats.Stations.Defs),
	}
}

func (w *World) SessionCount() int { return len(w.sessions) }
