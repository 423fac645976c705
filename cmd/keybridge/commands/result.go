package commands

import (
	"fmt"

	"github.com/pkg/errors"

	"keybridge/internal/correlate"
	"keybridge/internal/domain"
)

// outcome turns a finished request into the error reported to the user.
func outcome(req *correlate.OutstandingRequest, err error) error {
	if req == nil {
		if errors.Is(err, domain.ErrNotBound) || errors.Is(err, domain.ErrConnectionFailed) {
			return errors.WithMessage(err, "provider unavailable")
		}
		return err
	}
	switch req.Status() {
	case domain.StatusSucceeded:
		return nil
	case domain.StatusCancelled:
		return fmt.Errorf("%s cancelled by user", req.Kind())
	case domain.StatusFailed:
		if info := req.Err(); info != nil {
			return errors.WithMessagef(info, "%s failed", req.Kind())
		}
		return fmt.Errorf("%s failed", req.Kind())
	}
	if err != nil {
		return errors.WithMessagef(err, "%s still pending", req.Kind())
	}
	return fmt.Errorf("%s still pending", req.Kind())
}
