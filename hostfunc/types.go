package hostfunc

import (
	"io"

	"github.com/caffeineduck/vehicle/resource"
	"go.uber.org/zap"
)

// State is the host-side context every op runs against. One State belongs to
// one script host and is only touched on that host's script thread.
type State struct {
	Resources *resource.Table
	FS        *FS
	Stdout    io.Writer
	Stderr    io.Writer
	Logger    *zap.Logger
}

// NewState creates a State with an empty resource table, an unlimited FS and
// discarded output.
func NewState() *State {
	return &State{
		Resources: resource.NewTable(),
		FS:        NewFS(),
		Stdout:    io.Discard,
		Stderr:    io.Discard,
		Logger:    zap.NewNop(),
	}
}

// ListenResult is returned by the listen op.
type ListenResult struct {
	ResourceID resource.Handle `json:"resourceId"`
	Port       int             `json:"port"`
}
