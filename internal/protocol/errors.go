package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Command/query layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrUnknownCmd    = "E_UNKNOWN_CMD"
	ErrUnknownQuery  = "E_UNKNOWN_QUERY"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrBlocked       = "E_BLOCKED"
	ErrNoResource    = "E_NO_RESOURCE"
	ErrOutOfBounds   = "E_OUT_OF_BOUNDS"
	ErrIneligible    = "E_INELIGIBLE"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrBadRequest:      {},
	ErrUnknownCmd:      {},
	ErrUnknownQuery:    {},
	ErrInvalidTarget:   {},
	ErrBlocked:         {},
	ErrNoResource:      {},
	ErrOutOfBounds:     {},
	ErrIneligible:      {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
