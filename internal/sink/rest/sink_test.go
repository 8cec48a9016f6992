package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"domainscout/internal/extract"
)

func newTestSink(t *testing.T, handler http.Handler) *Sink {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sink, err := New(Config{BaseURL: srv.URL, APIKey: "test-key"}, zap.NewNop())
	require.NoError(t, err)
	return sink
}

func TestUpsert_SendsMergeDuplicates(t *testing.T) {
	t.Parallel()

	var (
		gotPath   string
		gotQuery  string
		gotPrefer string
		gotAuth   string
		gotRows   []domainRow
	)
	sink := newTestSink(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotPrefer = r.Header.Get("Prefer")
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "test-key", r.Header.Get("apikey"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRows))
		w.WriteHeader(http.StatusCreated)
	}))

	records := []extract.DomainRecord{
		{Domain: "solarco.example", Score: 3.6, Matches: extract.MatchCounter{"solar": 2, "battery": 1}},
	}
	require.NoError(t, sink.Upsert(context.Background(), records))

	require.Equal(t, "/rest/v1/domains", gotPath)
	require.Equal(t, "on_conflict=domain", gotQuery)
	require.Equal(t, "resolution=merge-duplicates", gotPrefer)
	require.Equal(t, "Bearer test-key", gotAuth)

	require.Len(t, gotRows, 1)
	require.Equal(t, "solarco.example", gotRows[0].Domain)
	require.InDelta(t, 3.6, gotRows[0].Score, 1e-9)
	require.Equal(t, []string{"battery", "solar"}, gotRows[0].Keywords)
	require.JSONEq(t, `{"solar":2,"battery":1}`, gotRows[0].Matches)
}

func TestUpsert_BatchesLargeInputs(t *testing.T) {
	t.Parallel()

	var batchSizes []int
	sink := newTestSink(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rows []domainRow
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
		batchSizes = append(batchSizes, len(rows))
		w.WriteHeader(http.StatusCreated)
	}))
	sink.batchSize = 2

	records := make([]extract.DomainRecord, 5)
	for i := range records {
		records[i] = extract.DomainRecord{
			Domain:  string(rune('a'+i)) + ".example",
			Score:   1.1,
			Matches: extract.MatchCounter{"solar": 1},
		}
	}
	require.NoError(t, sink.Upsert(context.Background(), records))
	require.Equal(t, []int{2, 2, 1}, batchSizes)
}

func TestUpsert_SurfacesServerError(t *testing.T) {
	t.Parallel()

	sink := newTestSink(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "permission denied", http.StatusForbidden)
	}))

	err := sink.Upsert(context.Background(), []extract.DomainRecord{
		{Domain: "a.example", Score: 1.1, Matches: extract.MatchCounter{"solar": 1}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
}

func TestExistingDomains(t *testing.T) {
	t.Parallel()

	sink := newTestSink(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "domain", r.URL.Query().Get("select"))
		require.Equal(t, "10000", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[{"domain":"solarco.example"},{"domain":"batteryhub.example"}]`))
	}))

	existing, err := sink.ExistingDomains(context.Background())
	require.NoError(t, err)
	require.Len(t, existing, 2)
	require.Contains(t, existing, "batteryhub.example")
}

func TestNew_RequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := New(Config{BaseURL: "https://x.example"}, zap.NewNop())
	require.Error(t, err)
	_, err = New(Config{APIKey: "k"}, zap.NewNop())
	require.Error(t, err)
}
