package commoncrawl

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"domainscout/internal/extract"
)

const sampleCDX = `example,solarco)/products 20250810120000 {"url": "https://www.solarco.example/products", "mime": "text/html", "status": "200"}
example,unrelated)/news 20250810120001 {"url": "https://unrelated.example/news", "mime": "text/html", "status": "200"}
example,broken)/ 20250810120002 not json at all
example,nourl)/ 20250810120003 {"mime": "text/html", "status": "200"}
example,battery)/storage 20250810120004 {"url": "https://battery.example/storage?ref=cdx", "mime": "text/html", "status": "301"}
`

func TestScanCDX_ParsesEntries(t *testing.T) {
	t.Parallel()

	var urls []string
	err := scanCDX(strings.NewReader(sampleCDX), func(url string) bool {
		urls = append(urls, url)
		return true
	})
	require.NoError(t, err)

	// The unparseable line and the entry without a url field are dropped.
	require.Equal(t, []string{
		"https://www.solarco.example/products",
		"https://unrelated.example/news",
		"https://battery.example/storage?ref=cdx",
	}, urls)
}

func TestScanCDX_StopsWhenFlushReturnsFalse(t *testing.T) {
	t.Parallel()

	count := 0
	err := scanCDX(strings.NewReader(sampleCDX), func(string) bool {
		count++
		return false
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestIndexSource_Produce(t *testing.T) {
	t.Parallel()

	srv := archiveServer(t, map[string][]byte{
		"cc-index/collections/CC-MAIN-2025-33/indexes/cdx-00000.gz": gzipBytes(t, sampleCDX),
	})
	client := NewClient("CC-MAIN-2025-33", zap.NewNop(), WithBaseURL(srv.URL))

	src := NewIndexSource(client,
		[]string{"cc-index/collections/CC-MAIN-2025-33/indexes/cdx-00000.gz"}, 0, zap.NewNop())
	require.Equal(t, "index", src.Name())

	var obs []extract.Observation
	err := src.Produce(context.Background(), func(o extract.Observation) { obs = append(obs, o) })
	require.NoError(t, err)
	require.Len(t, obs, 3)

	require.Equal(t, "solarco.example", obs[0].Domain)
	require.Equal(t, "https://www.solarco.example/products", obs[0].Text)
	require.Equal(t, "https://www.solarco.example/products", obs[0].URL)
	require.Equal(t, "index:cc-index/collections/CC-MAIN-2025-33/indexes/cdx-00000.gz", obs[0].SourceTag)

	require.Equal(t, "battery.example", obs[2].Domain)
}

func TestIndexSource_MaxRecords(t *testing.T) {
	t.Parallel()

	srv := archiveServer(t, map[string][]byte{
		"indexes/cdx-00000.gz": gzipBytes(t, sampleCDX),
	})
	client := NewClient("CC-MAIN-2025-33", zap.NewNop(), WithBaseURL(srv.URL))

	src := NewIndexSource(client, []string{"indexes/cdx-00000.gz"}, 2, zap.NewNop())
	count := 0
	err := src.Produce(context.Background(), func(extract.Observation) { count++ })
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
