package commoncrawl

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"domainscout/internal/extract"
)

const sampleWAT = `WARC/1.0
WARC-Type: metadata
WARC-Target-URI: https://solarco.example/products
Content-Type: application/json

{"Envelope":{"Payload-Metadata":{"HTTP-Response-Metadata":{"Headers":{"Content-Type":"text/html"},"HTML-Metadata":{"Head":{"Title":"Solar battery systems","Metas":[{"name":"description","content":"grid storage solutions"}]}}}}}}

WARC/1.0
WARC-Type: metadata
WARC-Target-URI: https://plain.example/
Content-Type: application/json

{not valid json}

WARC/1.0
WARC-Type: metadata
WARC-Target-URI: https://second.example/
Content-Type: application/json

{"Envelope":{"Payload-Metadata":{"HTTP-Response-Metadata":{"HTML-Metadata":{"Head":{"Title":"Wind power"}}}}}}
`

func TestScanWAT_PairsURIWithPayload(t *testing.T) {
	t.Parallel()

	type rec struct {
		url     string
		payload string
	}
	var got []rec
	err := scanWAT(strings.NewReader(sampleWAT), func(url string, payload []byte) bool {
		got = append(got, rec{url, string(payload)})
		return true
	})
	require.NoError(t, err)

	// The record with the invalid payload is dropped.
	require.Len(t, got, 2)
	require.Equal(t, "https://solarco.example/products", got[0].url)
	require.Contains(t, got[0].payload, "Solar battery systems")
	require.Equal(t, "https://second.example/", got[1].url)
}

func TestWATSearchText_FlattensMetadata(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"Envelope":{"Payload-Metadata":{"HTTP-Response-Metadata":{` +
		`"Headers":{"Server":"nginx"},` +
		`"HTML-Metadata":{"Head":{"Title":"Solar battery systems",` +
		`"Metas":[{"name":"description","content":"grid storage"}]}}}}}}`)

	text := watSearchText("https://solarco.example/products", payload)
	require.Contains(t, text, "https://solarco.example/products")
	require.Contains(t, text, "Server: nginx")
	require.Contains(t, text, "Solar battery systems")
	require.Contains(t, text, "content: grid storage")
}

func TestWATSearchText_BadPayloadFallsBackToURL(t *testing.T) {
	t.Parallel()

	text := watSearchText("https://solarco.example/", []byte("{broken"))
	require.Equal(t, "https://solarco.example/", text)
}

func TestWATSource_Produce(t *testing.T) {
	t.Parallel()

	srv := archiveServer(t, map[string][]byte{
		"wat/part-00000.warc.wat.gz": gzipBytes(t, sampleWAT),
	})
	client := NewClient("CC-MAIN-2025-33", zap.NewNop(), WithBaseURL(srv.URL))

	src := NewWATSource(client, []string{"wat/part-00000.warc.wat.gz"}, 0, zap.NewNop())
	require.Equal(t, "wat", src.Name())

	var obs []extract.Observation
	err := src.Produce(context.Background(), func(o extract.Observation) { obs = append(obs, o) })
	require.NoError(t, err)
	require.Len(t, obs, 2)

	require.Equal(t, "solarco.example", obs[0].Domain)
	require.Contains(t, obs[0].Text, "Solar battery systems")
	require.Equal(t, "wat:wat/part-00000.warc.wat.gz", obs[0].SourceTag)
}
