package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"emberwild.gg/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	cmdSchema := compile("cmd.schema.json")
	querySchema := compile("query.schema.json")
	resultSchema := compile("result.schema.json")
	stateSchema := compile("state.schema.json")
	errorSchema := compile("error.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "name":"probe1"
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "session_id":"9b2d7f33-0c5e-4a1a-9d7e-cc7a4f1b2a10",
	  "world_params":{
	    "tick_rate_hz":10,
	    "chunk_size":16,
	    "load_radius":2,
	    "boundary_chunks":1000,
	    "seed":12345,
	    "clock":0
	  },
	  "catalogs":{
	    "resources":{"digest":"deadbeef","count":9},
	    "enemies":{"digest":"deadbeef","count":6},
	    "items":{"digest":"deadbeef","count":12},
	    "placeables":{"digest":"deadbeef","count":5},
	    "stations":{"digest":"deadbeef","count":15}
	  }
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var cmd any
	_ = json.Unmarshal([]byte(`{
	  "type":"CMD",
	  "protocol_version":"1.0",
	  "id":"c1",
	  "cmd":"place_entity",
	  "def_id":"turret",
	  "pos":{"x":12.4,"y":0,"z":-3.7},
	  "stats":{"power":4,"durability":2,"efficiency":1}
	}`), &cmd)
	validate(cmdSchema, cmd)

	var query any
	_ = json.Unmarshal([]byte(`{
	  "type":"QUERY",
	  "protocol_version":"1.0",
	  "id":"q1",
	  "query":"find_path",
	  "from":{"x":0.5,"y":0,"z":0.5},
	  "to":{"x":9.5,"y":0,"z":9.5}
	}`), &query)
	validate(querySchema, query)

	var result any
	_ = json.Unmarshal([]byte(`{
	  "type":"RESULT",
	  "protocol_version":"1.0",
	  "id":"q1",
	  "ok":true,
	  "tick":42,
	  "data":{"path_found":true,"path":[{"x":0.5,"y":0,"z":0.5},{"x":1.5,"y":0,"z":1.5}]}
	}`), &result)
	validate(resultSchema, result)

	var state any
	_ = json.Unmarshal([]byte(`{
	  "type":"STATE",
	  "protocol_version":"1.0",
	  "tick":42,
	  "clock":4.2,
	  "session_id":"9b2d7f33-0c5e-4a1a-9d7e-cc7a4f1b2a10",
	  "pos":{"x":12.4,"y":0,"z":-3.7},
	  "chunk_type":"FOREST_PEACEFUL",
	  "loaded_chunks":34,
	  "entities":[{"id":"ent-000001","def_id":"turret","kind":"TURRET","pos":{"x":12.5,"y":0,"z":-3.5},"blocking":true}]
	}`), &state)
	validate(stateSchema, state)

	var errMsg any
	_ = json.Unmarshal([]byte(`{
	  "type":"ERROR",
	  "protocol_version":"1.0",
	  "code":"E_PROTO_BAD_REQUEST",
	  "message":"malformed json"
	}`), &errMsg)
	validate(errorSchema, errMsg)
}

func TestDecodeBase(t *testing.T) {
	m, err := protocol.DecodeBase([]byte(`{"type":"CMD","protocol_version":"1.0","cmd":"track"}`))
	if err != nil {
		t.Fatalf("decode base: %v", err)
	}
	if m.Type != protocol.TypeCmd || m.ProtocolVersion != protocol.Version {
		t.Fatalf("unexpected base decode: %+v", m)
	}
	if _, err := protocol.DecodeBase([]byte(`{nope`)); err == nil {
		t.Fatalf("expected decode error for malformed json")
	}
}
