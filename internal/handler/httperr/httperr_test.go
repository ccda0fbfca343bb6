//go:build unit

package httperr_test

import (
	"errors"
	"net/http"
	"testing"

	"booking-engine/internal/handler/httperr"
	"booking-engine/internal/infra"
	"booking-engine/internal/pkg/errs"
	"booking-engine/internal/usecase/shared"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "slot taken",
			err:        errs.Markf(errs.ErrSlotNoLongerAvailable, "gateway said: card 4242"),
			wantStatus: http.StatusConflict,
			wantCode:   "SLOT_NO_LONGER_AVAILABLE",
		},
		{
			name:       "exclusion violation from the store",
			err:        shared.ClassifyStoreErr(infra.NewRepoErr(infra.KindConflict, "23P01", nil), nil),
			wantStatus: http.StatusConflict,
			wantCode:   "SLOT_NO_LONGER_AVAILABLE",
		},
		{
			name:       "wrapped after marking",
			err:        errs.Wrap(errs.Markf(errs.ErrAlreadyRefunded, "gateway said: card 4242"), "refund"),
			wantStatus: http.StatusConflict,
			wantCode:   "ALREADY_REFUNDED",
		},
		{
			name:       "forged webhook",
			err:        errs.Mark(errors.New("signature mismatch"), errs.ErrInvalidWebhook),
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_WEBHOOK",
		},
		{
			name:       "validation",
			err:        errs.Markf(errs.ErrValidation, "gateway said: card 4242"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "hold expired",
			err:        errs.Markf(errs.ErrHoldExpired, "gateway said: card 4242"),
			wantStatus: http.StatusConflict,
			wantCode:   "HOLD_EXPIRED",
		},
		{
			name:       "missing booking",
			err:        shared.ClassifyStoreErr(infra.NewRepoErr(infra.KindNotFound, "no rows", nil), errs.ErrBookingNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   "BOOKING_NOT_FOUND",
		},
		{
			name:       "serialization failure",
			err:        shared.ClassifyStoreErr(infra.NewRepoErr(infra.KindSerialization, "40001", nil), nil),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "TRANSIENT_STORE_ERROR",
		},
		{
			name:       "unmarked",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, code, msg := httperr.Classify(tc.err)

			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantCode, code)
			assert.NotContains(t, msg, "gateway said: card 4242")
		})
	}
}
