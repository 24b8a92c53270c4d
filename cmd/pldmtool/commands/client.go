package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/openbmc-go/pldmd/internal/instanceid"
	"github.com/openbmc-go/pldmd/internal/mctp"
	"github.com/openbmc-go/pldmd/internal/mctp/unixsock"
)

// dialEngine opens a client-mode MCTP engine against the daemon's socket: a
// pure requester, so handler is nil and Serve only needs to run long enough
// to deliver one response per SendRecv call.
func dialEngine(ctx context.Context) (*mctp.Engine, func(), error) {
	localPath := fmt.Sprintf("%s.%d", localSocketPath, os.Getpid())
	transport, err := unixsock.Dial(localPath, socketPath)
	if err != nil {
		return nil, nil, fmt.Errorf("pldmtool: dial %s: %w", socketPath, err)
	}

	engine := mctp.NewEngine(transport, instanceid.NewDB(), nil)
	serveCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = engine.Serve(serveCtx)
	}()

	cleanup := func() {
		cancel()
		<-done
		transport.Close()
	}
	return engine, cleanup, nil
}
