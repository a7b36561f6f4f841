package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"emberwild.gg/internal/protocol"
	"emberwild.gg/internal/sim/world"
)

// outQueueDepth is the per-connection write buffer. The world loop drops the
// oldest frame once a client falls this far behind.
const outQueueDepth = 256

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader

	// strict mode: inbound CMD/QUERY frames are schema-validated before they
	// reach the loop
	cmdSchema   *jsonschema.Schema
	querySchema *jsonschema.Schema
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// EnableStrictValidation compiles the cmd/query schemas and rejects inbound
// frames that fail them with an ERROR instead of handing them to the loop.
func (s *Server) EnableStrictValidation(cmdSchemaPath, querySchemaPath string) error {
	cmd, err := jsonschema.Compile(cmdSchemaPath)
	if err != nil {
		return fmt.Errorf("compile %s: %w", cmdSchemaPath, err)
	}
	query, err := jsonschema.Compile(querySchemaPath)
	if err != nil {
		return fmt.Errorf("compile %s: %w", querySchemaPath, err)
	}
	s.cmdSchema = cmd
	s.querySchema = query
	return nil
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine: the only writer after the handshake.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				s.sendError(out, protocol.ErrProtoBadRequest, "malformed json", "")
				continue
			}
			if base.ProtocolVersion != "" && base.ProtocolVersion != protocol.Version {
				s.sendError(out, protocol.ErrProtoVersion, "unsupported protocol_version", "")
				continue
			}
			switch base.Type {
			case protocol.TypeCmd:
				if !s.validate(s.cmdSchema, msg, out) {
					continue
				}
				var cmd protocol.CmdMsg
				if err := json.Unmarshal(msg, &cmd); err != nil {
					s.sendError(out, protocol.ErrProtoBadRequest, "bad CMD frame", "")
					continue
				}
				s.world.CmdCh() <- world.CmdEnvelope{SessionID: sessionID, Cmd: cmd}
			case protocol.TypeQuery:
				if !s.validate(s.querySchema, msg, out) {
					continue
				}
				var q protocol.QueryMsg
				if err := json.Unmarshal(msg, &q); err != nil {
					s.sendError(out, protocol.ErrProtoBadRequest, "bad QUERY frame", "")
					continue
				}
				s.world.QueryCh() <- world.QueryEnvelope{SessionID: sessionID, Query: q}
			default:
				s.sendError(out, protocol.ErrProtoBadRequest, fmt.Sprintf("unexpected type %q", base.Type), "")
			}
		}

		// Cleanup.
		s.world.LeaveCh() <- sessionID
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}
	if hello.Name == "" {
		hello.Name = "client"
	}

	id := uuid.NewString()
	out = make(chan []byte, outQueueDepth)

	respCh := make(chan world.JoinResponse, 1)
	s.world.JoinCh() <- world.JoinRequest{
		SessionID: id,
		Name:      hello.Name,
		Out:       out,
		Resp:      respCh,
	}
	resp := <-respCh

	// Welcome + catalogs go out synchronously before the writer goroutine
	// exists, so ordering is fixed. The session is already registered, so a
	// failed write has to unwind it.
	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.world.LeaveCh() <- id
		return "", nil
	}
	for _, c := range resp.Catalogs {
		if err := writeJSON(conn, c); err != nil {
			s.world.LeaveCh() <- id
			return "", nil
		}
	}

	s.log.Printf("ws: session %s (%s) connected", id, hello.Name)
	return id, out
}

// validate runs the schema when strict mode is on. A frame that fails never
// reaches the world.
func (s *Server) validate(schema *jsonschema.Schema, msg []byte, out chan []byte) bool {
	if schema == nil {
		return true
	}
	var v any
	if err := json.Unmarshal(msg, &v); err != nil {
		s.sendError(out, protocol.ErrProtoBadRequest, "malformed json", "")
		return false
	}
	if err := schema.Validate(v); err != nil {
		s.sendError(out, protocol.ErrProtoBadRequest, "schema: "+err.Error(), "")
		return false
	}
	return true
}

// sendError enqueues an ERROR frame, dropping it if the client is backed up.
func (s *Server) sendError(out chan []byte, code, message, forID string) {
	b, err := json.Marshal(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
		For:             forID,
	})
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
