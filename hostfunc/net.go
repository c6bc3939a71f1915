package hostfunc

import (
	"context"
	"fmt"
	"math"

	"github.com/caffeineduck/vehicle/resource"
	"go.uber.org/zap"
)

func handleArg(args Args, i int) (resource.Handle, error) {
	n, err := args.Int(i)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d", resource.ErrBadResource, n)
	}
	return resource.Handle(n), nil
}

func opListen(s *State, args Args) (any, error) {
	address, err := args.String(0)
	if err != nil {
		return nil, err
	}
	port, err := args.Int(1)
	if err != nil {
		return nil, err
	}

	ln, err := resource.Listen(address, int(port))
	if err != nil {
		return nil, err
	}

	h, err := s.Resources.Add(ln)
	if err != nil {
		ln.Close()
		return nil, err
	}
	s.Logger.Debug("listening", zap.Uint32("handle", uint32(h)), zap.String("addr", ln.Addr().String()))

	return ListenResult{ResourceID: h, Port: ln.Port()}, nil
}

func opAccept(s *State, args Args) (Job, error) {
	h, err := handleArg(args, 0)
	if err != nil {
		return nil, err
	}
	ln, err := resource.GetAs[*resource.Listener](s.Resources, h)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) Completion {
		stream, err := ln.Accept()
		if err != nil {
			return func(*State) (any, error) { return nil, err }
		}

		// The completion is dropped if the host shuts down first; the stream
		// must not outlive it.
		release := context.AfterFunc(ctx, func() { stream.Close() })

		return func(s *State) (any, error) {
			if !release() {
				return nil, resource.ErrCanceled
			}
			sh, err := s.Resources.Add(stream)
			if err != nil {
				stream.Close()
				return nil, err
			}
			s.Logger.Debug("accepted", zap.Uint32("handle", uint32(sh)), zap.String("addr", stream.RemoteAddr().String()))
			return sh, nil
		}
	}, nil
}

func opRead(s *State, args Args) (Job, error) {
	h, err := handleArg(args, 0)
	if err != nil {
		return nil, err
	}
	buf, err := args.Bytes(1)
	if err != nil {
		return nil, err
	}
	stream, err := resource.GetAs[*resource.Stream](s.Resources, h)
	if err != nil {
		return nil, err
	}

	// buf aliases script memory, so the backend reads into its own buffer
	// and the copy happens back on the script thread.
	tmp := make([]byte, len(buf))

	return func(ctx context.Context) Completion {
		n, err := stream.Read(tmp)
		return func(*State) (any, error) {
			if err != nil {
				return nil, err
			}
			copy(buf, tmp[:n])
			return n, nil
		}
	}, nil
}

func opWrite(s *State, args Args) (Job, error) {
	h, err := handleArg(args, 0)
	if err != nil {
		return nil, err
	}
	data, err := args.Bytes(1)
	if err != nil {
		return nil, err
	}
	stream, err := resource.GetAs[*resource.Stream](s.Resources, h)
	if err != nil {
		return nil, err
	}

	data = append([]byte(nil), data...)

	return func(ctx context.Context) Completion {
		n, err := stream.Write(data)
		return func(*State) (any, error) {
			if err != nil {
				return nil, err
			}
			return n, nil
		}
	}, nil
}

func opClose(s *State, args Args) (any, error) {
	h, err := handleArg(args, 0)
	if err != nil {
		return nil, err
	}
	if err := s.Resources.Close(h); err != nil {
		return nil, err
	}
	s.Logger.Debug("closed", zap.Uint32("handle", uint32(h)))
	return nil, nil
}
