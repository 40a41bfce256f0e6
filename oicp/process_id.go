package oicp

import (
	"context"
	"github.com/google/uuid"
)

// ProcessID correlates the request and response of one dispatched call.
type ProcessID string

func NewProcessID() ProcessID {
	return ProcessID(uuid.New().String())
}

func (p ProcessID) String() string {
	return string(p)
}

type processIDKey struct{}

func WithProcessID(ctx context.Context, id ProcessID) context.Context {
	return context.WithValue(ctx, processIDKey{}, id)
}

// ProcessIDFrom returns the id carried by ctx, minting a fresh one when absent.
func ProcessIDFrom(ctx context.Context) ProcessID {
	if id, ok := ctx.Value(processIDKey{}).(ProcessID); ok && id != "" {
		return id
	}
	return NewProcessID()
}
