//go:build unit

package repository_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"booking-engine/internal/infra"
	"booking-engine/internal/infra/repository"
	"booking-engine/internal/usecase/shared"
	"booking-engine/tests/common/builder"
	dbmock "booking-engine/tests/mock/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var discard = slog.New(slog.DiscardHandler)

// errRow is a pgx.Row whose Scan always fails with err.
type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func assertKind(t *testing.T, err error, kind infra.RepositoryErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, infra.IsKind(err, kind), "expected kind [%v] but got [%T] (%v)", kind, err, err)
}

func TestBookingRepository_Create(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name       string
		execErr    error
		expectKind infra.RepositoryErrorKind
	}{
		{name: "success: booking inserted"},
		{
			name:       "error: overlapping occupied interval",
			execErr:    &pgconn.PgError{Code: infra.PgErrExclusionViolation, ConstraintName: "bookings_no_overlap"},
			expectKind: infra.KindConflict,
		},
		{
			name:       "error: duplicate id",
			execErr:    &pgconn.PgError{Code: infra.PgErrUniqueViolation},
			expectKind: infra.KindDuplicateKey,
		},
		{
			name:       "error: unknown service",
			execErr:    &pgconn.PgError{Code: infra.PgErrForeignKeyViolation},
			expectKind: infra.KindForeignKeyViolated,
		},
		{
			name:       "error: statement timeout",
			execErr:    context.DeadlineExceeded,
			expectKind: infra.KindTimeout,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockDB := dbmock.NewMockDBTX(ctrl)
			repo := repository.NewBookingRepository(mockDB, discard)
			b := builder.NewBookingBuilder().BuildDomain()

			mockDB.EXPECT().
				Exec(ctx, gomock.Any(), b.ID(), b.PractitionerID(), b.ServiceID(), b.CustomerID(),
					b.Slot().Start(), b.Slot().End(), b.BufferMinutes(), b.Occupied().End(),
					"HELD", gomock.Any(), b.Version(), false,
					b.CreatedAt(), b.UpdatedAt(), b.ExpiresAt(), gomock.Any()).
				Return(pgconn.NewCommandTag("INSERT 0 1"), tc.execErr)

			err := repo.Create(ctx, b)

			if tc.expectKind != "" {
				assertKind(t, err, tc.expectKind)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBookingRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("success: version bumped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := dbmock.NewMockDBTX(ctrl)
		repo := repository.NewBookingRepository(mockDB, discard)
		b := builder.NewBookingBuilder().BuildDomain()
		before := b.Version()

		mockDB.EXPECT().Exec(ctx, gomock.Any(), b.ID(), before, gomock.Any(), gomock.Any(),
			gomock.Any(), gomock.Any(), gomock.Any()).
			Return(pgconn.NewCommandTag("UPDATE 1"), nil)

		require.NoError(t, repo.Update(ctx, b))
		assert.Equal(t, before+1, b.Version())
	})

	t.Run("error: concurrent writer won", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := dbmock.NewMockDBTX(ctrl)
		repo := repository.NewBookingRepository(mockDB, discard)
		b := builder.NewBookingBuilder().BuildDomain()
		before := b.Version()

		mockDB.EXPECT().Exec(ctx, gomock.Any(), gomock.Any()).
			Return(pgconn.NewCommandTag("UPDATE 0"), nil)

		assertKind(t, repo.Update(ctx, b), infra.KindStaleVersion)
		assert.Equal(t, before, b.Version())
	})

	t.Run("error: serialization failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := dbmock.NewMockDBTX(ctrl)
		repo := repository.NewBookingRepository(mockDB, discard)

		mockDB.EXPECT().Exec(ctx, gomock.Any(), gomock.Any()).
			Return(pgconn.CommandTag{}, &pgconn.PgError{Code: infra.PgErrSerializationFailure})

		assertKind(t, repo.Update(ctx, builder.NewBookingBuilder().BuildDomain()), infra.KindSerialization)
	})
}

func TestBookingRepository_FindByID(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name       string
		scanErr    error
		expectKind infra.RepositoryErrorKind
	}{
		{name: "error: no such booking", scanErr: pgx.ErrNoRows, expectKind: infra.KindNotFound},
		{name: "error: connection dropped", scanErr: errors.New("conn closed"), expectKind: infra.KindDBFailure},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockDB := dbmock.NewMockDBTX(ctrl)
			repo := repository.NewBookingRepository(mockDB, discard)
			id := uuid.New()

			mockDB.EXPECT().QueryRow(ctx, gomock.Any(), id).Return(errRow{err: tc.scanErr})

			got, err := repo.FindByID(ctx, id)

			assert.Nil(t, got)
			assertKind(t, err, tc.expectKind)
		})
	}
}

func TestBookingRepository_LockPractitioner(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	mockDB := dbmock.NewMockDBTX(ctrl)
	repo := repository.NewBookingRepository(mockDB, discard)
	practitioner := uuid.New()

	gomock.InOrder(
		mockDB.EXPECT().Exec(ctx, gomock.Any(), practitioner).Return(pgconn.NewCommandTag("SELECT 1"), nil),
		mockDB.EXPECT().Exec(ctx, gomock.Any(), practitioner).
			Return(pgconn.CommandTag{}, &pgconn.PgError{Code: infra.PgErrDeadlockDetected}),
	)

	assert.NoError(t, repo.LockPractitioner(ctx, practitioner))
	assertKind(t, repo.LockPractitioner(ctx, practitioner), infra.KindSerialization)
}

func TestBookingRepository_ListElapsedHolds(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	mockDB := dbmock.NewMockDBTX(ctrl)
	repo := repository.NewBookingRepository(mockDB, discard)
	now := builder.At(12, 0)

	mockDB.EXPECT().Query(ctx, gomock.Any(), "HELD", now, 50).Return(nil, context.DeadlineExceeded)

	ids, err := repo.ListElapsedHolds(ctx, now, 50)

	assert.Nil(t, ids)
	assertKind(t, err, infra.KindTimeout)
}

func TestBookingRepository_ListByCustomer(t *testing.T) {
	ctx := context.Background()
	customer := uuid.New()

	t.Run("first page binds no position", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := dbmock.NewMockDBTX(ctrl)
		repo := repository.NewBookingRepository(mockDB, discard)

		mockDB.EXPECT().Query(ctx, gomock.Any(), customer, gomock.Nil(), uuid.Nil, 21).Return(nil, context.DeadlineExceeded)

		_, err := repo.ListByCustomer(ctx, customer, nil, 21)
		assertKind(t, err, infra.KindTimeout)
	})

	t.Run("later page binds the position", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := dbmock.NewMockDBTX(ctrl)
		repo := repository.NewBookingRepository(mockDB, discard)
		pos := shared.PagePosition{CreatedAt: builder.At(7, 30), ID: uuid.New()}

		mockDB.EXPECT().Query(ctx, gomock.Any(), customer, &pos.CreatedAt, pos.ID, 11).
			Return(nil, &pgconn.PgError{Code: "57P01"})

		_, err := repo.ListByCustomer(ctx, customer, &pos, 11)
		assertKind(t, err, infra.KindDBFailure)
	})
}
