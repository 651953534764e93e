package capture

import (
	"context"
	"fmt"
	"os"

	"github.com/neurlang/specgram/internal/storage"
)

// remoteCapture removes its download directory when closed.
type remoteCapture struct {
	Capture
	dir string
}

func (r *remoteCapture) Close() error {
	err := r.Capture.Close()
	if rerr := os.RemoveAll(r.dir); err == nil {
		err = rerr
	}
	return err
}

func openRemote(ctx context.Context, uri string, o Options) (Capture, error) {
	dir, err := os.MkdirTemp("", "specgram-*")
	if err != nil {
		return nil, err
	}
	local, err := storage.Fetch(ctx, o.Store, uri, dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("fetch %s: %w", uri, err)
	}

	remote := o
	remote.Store = nil
	c, err := Open(ctx, local, remote)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return &remoteCapture{Capture: c, dir: dir}, nil
}
