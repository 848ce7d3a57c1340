package api

import "errors"

var (
	ErrNotExportable = errors.New("packet carries no exportable payload")
	ErrIncomplete    = errors.New("transfer incomplete")
	ErrParsePacket   = errors.New("failed to parse packet")
)
