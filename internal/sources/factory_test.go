package sources

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"domainscout/internal/commoncrawl"
	"domainscout/internal/config"
	"domainscout/internal/extract"
)

func gzipBytes(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func pathsServer(t *testing.T, crawlID string, paths string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crawl-data/" + crawlID + "/wet.paths.gz",
			"/crawl-data/" + crawlID + "/wat.paths.gz",
			"/crawl-data/" + crawlID + "/cc-index.paths.gz":
			w.Write(gzipBytes(t, paths)) //nolint:errcheck
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestFactory(t *testing.T, srvURL string) *Factory {
	t.Helper()
	client := commoncrawl.NewClient("CC-MAIN-2025-33", zap.NewNop(), commoncrawl.WithBaseURL(srvURL))
	return New(
		client,
		config.CommonCrawlConfig{CrawlID: "CC-MAIN-2025-33", MaxFilesDefault: 2, MaxRecordsDefault: 100},
		config.DorkConfig{ResultsPerQuery: 10, MaxQueriesDefault: 5, TimeoutSeconds: 15},
		nil,
		zap.NewNop(),
	)
}

func TestFactoryArchiveSourceCapsFiles(t *testing.T) {
	t.Parallel()

	srv := pathsServer(t, "CC-MAIN-2025-33", "seg/a.warc.wet.gz\nseg/b.warc.wet.gz\nseg/c.warc.wet.gz\n")
	factory := newTestFactory(t, srv.URL)

	srcs, err := factory.Sources(context.Background(), extract.RunParameters{
		Channel:  extract.ChannelWET,
		MaxFiles: 1,
	})
	require.NoError(t, err)
	require.Len(t, srcs, 1)
	require.Equal(t, "wet", srcs[0].Name())
}

func TestFactoryArchiveSourceDefaultCap(t *testing.T) {
	t.Parallel()

	srv := pathsServer(t, "CC-MAIN-2025-33", "seg/a.warc.wat.gz\nseg/b.warc.wat.gz\nseg/c.warc.wat.gz\n")
	factory := newTestFactory(t, srv.URL)

	srcs, err := factory.Sources(context.Background(), extract.RunParameters{Channel: extract.ChannelWAT})
	require.NoError(t, err)
	require.Len(t, srcs, 1)
	require.Equal(t, "wat", srcs[0].Name())
}

func TestFactoryIndexSourceSkipsClusterIdx(t *testing.T) {
	t.Parallel()

	srv := pathsServer(t, "CC-MAIN-2025-33",
		"cc-index/collections/CC-MAIN-2025-33/indexes/cdx-00000.gz\n"+
			"cc-index/collections/CC-MAIN-2025-33/indexes/cluster.idx\n")
	factory := newTestFactory(t, srv.URL)

	srcs, err := factory.Sources(context.Background(), extract.RunParameters{Channel: extract.ChannelIndex})
	require.NoError(t, err)
	require.Len(t, srcs, 1)
	require.Equal(t, "index", srcs[0].Name())
}

func TestFactoryIndexSourceRequiresShards(t *testing.T) {
	t.Parallel()

	srv := pathsServer(t, "CC-MAIN-2025-33", "cc-index/collections/CC-MAIN-2025-33/indexes/cluster.idx\n")
	factory := newTestFactory(t, srv.URL)

	_, err := factory.Sources(context.Background(), extract.RunParameters{Channel: extract.ChannelIndex})
	require.ErrorContains(t, err, "no CDX shards")
}

func TestFactoryDorkSource(t *testing.T) {
	t.Parallel()

	factory := newTestFactory(t, "http://unused.invalid")

	srcs, err := factory.Sources(context.Background(), extract.RunParameters{
		Channel:  extract.ChannelDork,
		Keywords: []string{"solar", "battery"},
	})
	require.NoError(t, err)
	require.Len(t, srcs, 1)
	require.Equal(t, "dork", srcs[0].Name())
}

func TestFactoryDorkSourceRequiresKeywords(t *testing.T) {
	t.Parallel()

	factory := newTestFactory(t, "http://unused.invalid")

	_, err := factory.Sources(context.Background(), extract.RunParameters{Channel: extract.ChannelDork})
	require.Error(t, err)
}

func TestFactoryUnknownChannel(t *testing.T) {
	t.Parallel()

	factory := newTestFactory(t, "http://unused.invalid")

	_, err := factory.Sources(context.Background(), extract.RunParameters{Channel: "rss"})
	require.ErrorContains(t, err, "unknown channel")
}
