package shared

import (
	"context"

	"booking-engine/internal/infra"
	"booking-engine/internal/pkg/errs"
)

// ClassifyStoreErr turns repository errors into usecase sentinels at the
// component boundary. notFound is the sentinel used for a NOT_FOUND kind.
func ClassifyStoreErr(err error, notFound error) error {
	if err == nil {
		return nil
	}
	kind, ok := infra.KindOf(err)
	if !ok {
		if errs.Is(err, context.DeadlineExceeded) {
			return errs.Mark(err, errs.ErrTransientStore)
		}
		return err
	}
	switch kind {
	case infra.KindNotFound:
		if notFound != nil {
			return errs.Mark(err, notFound)
		}
	case infra.KindConflict:
		return errs.Mark(err, errs.ErrSlotNoLongerAvailable)
	case infra.KindStaleVersion:
		return errs.Mark(err, errs.ErrStaleBookingVersion)
	case infra.KindTimeout, infra.KindSerialization:
		return errs.Mark(err, errs.ErrTransientStore)
	}
	return err
}
