package relay

import (
	"context"

	"github.com/kgroups/rootkey/transport"
)

// connJob is one unit of work queued onto Relay.jobs: a connection's
// lifecycle event or an already-decoded frame. Decoding happens in the
// frame's own per-connection goroutine before it is queued; signature
// verification and AUTH bookkeeping happen inside the serialized Run
// loop below, the only place that touches Relay's maps, per the
// single-writer concurrency model of spec.md §5.
type connJob struct {
	kind  connJobKind
	conn  *transport.Conn
	frame *transport.ClientFrame
}

type connJobKind int

const (
	jobConnect connJobKind = iota
	jobDisconnect
	jobFrame
)

// Run drains queued connection jobs until ctx is canceled. Exactly one
// goroutine must call Run for a given Relay; every state-mutating
// operation happens inside it.
func (r *Relay) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-r.jobs:
			switch j.kind {
			case jobConnect:
				r.AddConnection(j.conn)
			case jobDisconnect:
				r.RemoveConnection(j.conn)
			case jobFrame:
				r.handleFrame(ctx, j.conn, j.frame)
			}
		}
	}
}

// Serve reads frames off conn and queues them for Run, blocking until
// conn closes or ctx is canceled. Call it in its own goroutine per
// accepted connection; signature verification for EVENT frames still
// happens inside the serialized admission pipeline (HandleEVENT), but
// queuing itself never blocks on other connections' work beyond the
// job channel's buffer.
func (r *Relay) Serve(ctx context.Context, conn *transport.Conn) {
	r.submit(ctx, connJob{kind: jobConnect, conn: conn})
	defer r.submit(context.Background(), connJob{kind: jobDisconnect, conn: conn})

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-conn.Frames():
			if !ok {
				return
			}
			r.submit(ctx, connJob{kind: jobFrame, conn: conn, frame: frame})
		case <-conn.Errors():
			return
		}
	}
}

func (r *Relay) submit(ctx context.Context, j connJob) {
	select {
	case r.jobs <- j:
	case <-ctx.Done():
	}
}

func (r *Relay) handleFrame(ctx context.Context, conn *transport.Conn, frame *transport.ClientFrame) {
	switch frame.Type {
	case transport.FrameMalformed:
		if b, err := transport.EncodeNoticeFrame("malformed frame: " + frame.DecodeErr.Error()); err == nil {
			_ = conn.Send(b)
		}

	case transport.FrameEvent:
		ok, message := true, ""
		if err := r.HandleEVENT(ctx, Now(), frame.Event); err != nil {
			ok, message = false, err.Error()
		}
		if b, err := transport.EncodeOKFrame(frame.Event.ID, ok, message); err == nil {
			_ = conn.Send(b)
		}

	case transport.FrameReq:
		if err := r.HandleREQ(conn, frame.SubID, frame.Filters); err != nil {
			if b, encErr := transport.EncodeClosedFrame(frame.SubID, err.Error()); encErr == nil {
				_ = conn.Send(b)
			}
			return
		}
		if b, err := transport.EncodeEOSEFrame(frame.SubID); err == nil {
			_ = conn.Send(b)
		}

	case transport.FrameClose:
		r.HandleCLOSE(conn, frame.SubID)

	case transport.FrameAuth:
		ok, message := true, ""
		if err := r.HandleAUTH(conn, frame.Event); err != nil {
			ok, message = false, err.Error()
		}
		if b, err := transport.EncodeOKFrame(frame.Event.ID, ok, message); err == nil {
			_ = conn.Send(b)
		}
	}
}
