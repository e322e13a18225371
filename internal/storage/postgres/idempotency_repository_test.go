package postgres

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

var idempotencyColumns = []string{
	"key", "request_hash", "status", "http_status", "response_body", "ttl_at", "created_at", "updated_at",
}

func newIdempotencyRepo(t *testing.T, now time.Time) (*idempotencyRepository, sqlmock.Sqlmock) {
	t.Helper()
	store, mock := newMockStore(t)
	repo := NewIdempotencyRepository(store).(*idempotencyRepository)
	repo.now = func() time.Time { return now }
	return repo, mock
}

func TestIdempotencyRepository_CreateProcessingInserts(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	repo, mock := newIdempotencyRepo(t, now)
	ttl := now.Add(time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO checkout_idempotency")).
		WithArgs("key-1", "hash-1", "processing", ttl, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	record, err := repo.CreateProcessing("key-1", "hash-1", ttl)
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusProcessing, record.Status)
	require.True(t, record.TTLAt.Equal(ttl))
}

func TestIdempotencyRepository_CreateProcessingExistingKey(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ttl := now.Add(time.Hour)

	cases := []struct {
		name    string
		hash    string
		wantErr error
	}{
		{name: "same request", hash: "hash-1", wantErr: domain.ErrIdempotencyKeyAlreadyExists},
		{name: "different request", hash: "hash-2", wantErr: domain.ErrIdempotencyHashMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newIdempotencyRepo(t, now)

			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO checkout_idempotency")).
				WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(regexp.QuoteMeta("FROM checkout_idempotency")).
				WithArgs("key-1").
				WillReturnRows(sqlmock.NewRows(idempotencyColumns).
					AddRow("key-1", "hash-1", "done", 201, []byte(`{"order_id":"o-1"}`), ttl, now, now))

			existing, err := repo.CreateProcessing("key-1", tc.hash, ttl)
			require.ErrorIs(t, err, tc.wantErr)
			require.Equal(t, domain.IdempotencyStatusDone, existing.Status)
			require.Equal(t, 201, existing.HTTPStatus)
		})
	}
}

func TestIdempotencyRepository_CreateProcessingValidation(t *testing.T) {
	repo, _ := newIdempotencyRepo(t, time.Now())

	_, err := repo.CreateProcessing("", "hash", time.Time{})
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyRequired)
	_, err = repo.CreateProcessing("key", " ", time.Time{})
	require.ErrorIs(t, err, domain.ErrIdempotencyRequestHashRequired)
}

func TestIdempotencyRepository_MarkDoneMissing(t *testing.T) {
	repo, mock := newIdempotencyRepo(t, time.Now())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE checkout_idempotency")).
		WithArgs("key-404", "done", []byte(`{}`), 201, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.MarkDone("key-404", []byte(`{}`), 201), domain.ErrIdempotencyKeyNotFound)
}

func TestIdempotencyRepository_DeleteExpiredBatch(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	repo, mock := newIdempotencyRepo(t, now)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM checkout_idempotency")).
		WithArgs(now, 50).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.DeleteExpired(now, 50)
	require.NoError(t, err)
	require.Equal(t, 7, n)
}

func TestIdempotencyRepository_DeleteProcessing(t *testing.T) {
	repo, mock := newIdempotencyRepo(t, time.Now())

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM checkout_idempotency")).
		WithArgs("key-1", "processing").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM checkout_idempotency")).
		WithArgs("key-done", "processing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.DeleteProcessing(" key-1 "))
	require.ErrorIs(t, repo.DeleteProcessing("key-done"), domain.ErrIdempotencyKeyNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
