package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"domainscout/internal/extract"
)

func TestUpsertWritesBatch(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewWithPool(mock, "domains")
	require.NoError(t, err)

	records := []extract.DomainRecord{
		{
			Domain:  "solarco.example",
			Score:   3.6,
			Matches: extract.MatchCounter{"solar": 2, "battery": 1},
		},
		{
			Domain:  "batteryhub.example",
			Score:   1.1,
			Matches: extract.MatchCounter{"battery": 1},
		},
	}

	mock.ExpectExec("INSERT INTO domains").
		WithArgs(
			"solarco.example", 3.6,
			[]byte(`{"battery":1,"solar":2}`),
			[]byte(`["battery","solar"]`),
			pgxmock.AnyArg(),
			"batteryhub.example", 1.1,
			[]byte(`{"battery":1}`),
			[]byte(`["battery"]`),
			pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	require.NoError(t, sink.Upsert(context.Background(), records))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSplitsIntoBatches(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewWithPool(mock, "domains")
	require.NoError(t, err)
	sink.batchSize = 1

	records := []extract.DomainRecord{
		{Domain: "a.example", Score: 1.1, Matches: extract.MatchCounter{"solar": 1}},
		{Domain: "b.example", Score: 2.2, Matches: extract.MatchCounter{"solar": 2}},
	}

	mock.ExpectExec("INSERT INTO domains").
		WithArgs("a.example", 1.1, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO domains").
		WithArgs("b.example", 2.2, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, sink.Upsert(context.Background(), records))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEmptyIsNoOp(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewWithPool(mock, "domains")
	require.NoError(t, err)

	require.NoError(t, sink.Upsert(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExistingDomains(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewWithPool(mock, "domains")
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"domain"}).
		AddRow("solarco.example").
		AddRow("batteryhub.example")
	mock.ExpectQuery("SELECT domain FROM domains").
		WithArgs(defaultExistingLimit).
		WillReturnRows(rows)

	existing, err := sink.ExistingDomains(context.Background())
	require.NoError(t, err)
	require.Len(t, existing, 2)
	require.Contains(t, existing, "solarco.example")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPoolRejectsBadTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "domains; drop table")
	require.Error(t, err)
}
