package search

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruit-workers/internal/common/logger"
	"recruit-workers/internal/models"
)

type fakeTransport struct {
	status   int
	response string
	requests []*http.Request
	bodies   []string
}

func (f *fakeTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	f.requests = append(f.requests, r)
	if r.Body != nil {
		b, _ := io.ReadAll(r.Body)
		f.bodies = append(f.bodies, string(b))
	}
	h := http.Header{}
	h.Set("X-Elastic-Product", "Elasticsearch")
	h.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: f.status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(f.response)),
	}, nil
}

func newTestIndexer(t *testing.T, ft *fakeTransport) *Indexer {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://es.local:9200"},
		Transport: ft,
	})
	require.NoError(t, err)

	ix := NewIndexer(es, "candidates", logger.NewTestLogger(t))
	ix.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return ix
}

func bulkLines(t *testing.T, body string) []map[string]interface{} {
	var out []map[string]interface{}
	sc := bufio.NewScanner(bytes.NewBufferString(body))
	for sc.Scan() {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func TestIndexer_Mirror(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, response: `{"errors":false,"items":[]}`}
	ix := newTestIndexer(t, ft)

	res, err := ix.Mirror(context.Background(), models.ResolutionPlan{
		Inserts: []models.CandidateRecord{{ID: "n1", Name: "New", Phone: "+1 (555) 0101"}},
		Updates: []models.CandidateRecord{{ID: "c1", Name: "Ana", Phone: "0202", ExperienceLevel: models.ExperienceMid}},
		Replaces: []models.Replacement{{
			Retired: models.CandidateRecord{ID: "old", Name: "Ben", Phone: "0303"},
			Insert:  models.CandidateRecord{ID: "n2", Name: "Ben", Phone: "0303"},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, MirrorResult{Indexed: 3, Deleted: 1}, res)

	require.Len(t, ft.requests, 1)
	assert.Equal(t, "/candidates/_bulk", ft.requests[0].URL.Path)

	lines := bulkLines(t, ft.bodies[0])
	require.Len(t, lines, 7)
	assert.Equal(t, map[string]interface{}{"_id": "n1"}, lines[0]["index"])
	assert.Equal(t, "15550101", lines[1]["phone_normalized"])
	assert.Equal(t, "mid", lines[3]["experience_level"])
	assert.Equal(t, map[string]interface{}{"_id": "old"}, lines[4]["delete"])
	assert.Equal(t, map[string]interface{}{"_id": "n2"}, lines[5]["index"])
}

func TestIndexer_MirrorEmptyPlanSendsNothing(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK}
	ix := newTestIndexer(t, ft)

	res, err := ix.Mirror(context.Background(), models.ResolutionPlan{
		Skipped: []models.CandidateRecord{{Name: "A", Phone: "1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, MirrorResult{}, res)
	assert.Empty(t, ft.requests)
}

func TestIndexer_MirrorItemFailures(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, response: `{"errors":true,"items":[
		{"delete":{"_id":"old","status":404}},
		{"index":{"_id":"n2","status":400}}
	]}`}
	ix := newTestIndexer(t, ft)

	res, err := ix.Mirror(context.Background(), models.ResolutionPlan{
		Replaces: []models.Replacement{{
			Retired: models.CandidateRecord{ID: "old"},
			Insert:  models.CandidateRecord{ID: "n2", Name: "B", Phone: "2"},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed, "missing document on delete is not a failure")
}

func TestIndexer_MirrorClusterError(t *testing.T) {
	ft := &fakeTransport{status: http.StatusInternalServerError, response: `{}`}
	ix := newTestIndexer(t, ft)

	_, err := ix.Mirror(context.Background(), models.ResolutionPlan{
		Inserts: []models.CandidateRecord{{ID: "n1", Name: "A", Phone: "1"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bulk request error")
}
