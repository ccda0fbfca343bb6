package queries

import (
	"context"

	"booking-engine/internal/pkg/errs"
	"booking-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

type BookingQueries interface {
	GetByID(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*BookingView, error)
	List(ctx context.Context, params ListBookingsParams) (*BookingPage, error)
}

type bookingQueriesImpl struct {
	uow shared.UnitOfWork
}

func NewBookingQueries(uow shared.UnitOfWork) BookingQueries {
	return &bookingQueriesImpl{uow: uow}
}

// GetByID hides bookings of other customers behind the not-found error.
func (q *bookingQueriesImpl) GetByID(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*BookingView, error) {
	b, err := q.uow.CommandReads().BookingByID(ctx, id)
	if err != nil {
		return nil, shared.ClassifyStoreErr(err, errs.ErrBookingNotFound)
	}
	if !b.OwnedBy(actor) {
		return nil, errs.Markf(errs.ErrBookingNotFound, "booking %s not visible to customer", id)
	}
	return NewBookingView(b), nil
}

// List returns the customer's bookings newest first. NextCursor is empty on
// the last page.
func (q *bookingQueriesImpl) List(ctx context.Context, params ListBookingsParams) (*BookingPage, error) {
	var after *shared.PagePosition
	if params.After != "" {
		pos, err := DecodeCursor(params.After)
		if err != nil {
			return nil, err
		}
		after = &pos
	}
	limit := ClampLimit(params.Limit)

	bookings, err := q.uow.CommandReads().BookingsByCustomer(ctx, params.CustomerID, after, limit+1)
	if err != nil {
		return nil, shared.ClassifyStoreErr(err, nil)
	}

	page := &BookingPage{Items: make([]*BookingView, 0, min(len(bookings), limit))}
	for i, b := range bookings {
		if i == limit {
			last := bookings[limit-1]
			page.NextCursor = EncodeCursor(shared.PagePosition{CreatedAt: last.CreatedAt(), ID: last.ID()})
			break
		}
		page.Items = append(page.Items, NewBookingView(b))
	}
	return page, nil
}
