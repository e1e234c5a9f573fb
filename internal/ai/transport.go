package ai

import (
	"context"
	"errors"
	"net"

	"github.com/devprep/feedback-engine/internal/evalerr"
)

// ClassifyTransport tells a timed-out call apart from an unreachable
// backend. Both matter to the caller for retry decisions.
func ClassifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return evalerr.New(evalerr.KindTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return evalerr.New(evalerr.KindTimeout, err)
	}

	return evalerr.New(evalerr.KindUnavailable, err)
}
