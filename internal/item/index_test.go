package item

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"lostfound_backend/internal/common"
	es "lostfound_backend/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeCluster answers the handful of Elasticsearch endpoints the indexer uses.
type fakeCluster struct {
	mu        sync.Mutex
	docs      map[string]map[string]interface{}
	indexMade bool
	lastQuery map[string]interface{}
	hits      []string
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodHead && path == IndexName:
		if f.indexMade {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && path == IndexName:
		f.indexMade = true
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	case strings.HasPrefix(path, IndexName+"/_doc/"):
		id := strings.TrimPrefix(path, IndexName+"/_doc/")
		if r.Method == http.MethodDelete {
			if _, ok := f.docs[id]; !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"result":"not_found"}`)
				return
			}
			delete(f.docs, id)
			_, _ = io.WriteString(w, `{"result":"deleted"}`)
			return
		}
		var doc map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&doc)
		f.docs[id] = doc
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	case strings.HasSuffix(path, "_search"):
		f.lastQuery = map[string]interface{}{}
		_ = json.NewDecoder(r.Body).Decode(&f.lastQuery)
		hits := make([]string, 0, len(f.hits))
		for _, id := range f.hits {
			hits = append(hits, fmt.Sprintf(`{"_id":%q}`, id))
		}
		fmt.Fprintf(w, `{"hits":{"total":{"value":%d},"hits":[%s]}}`, len(f.hits), strings.Join(hits, ","))
	case strings.HasSuffix(path, "_bulk"):
		var results []string
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			var action map[string]map[string]interface{}
			if err := json.Unmarshal(sc.Bytes(), &action); err != nil {
				continue
			}
			meta, ok := action["index"]
			if !ok {
				continue
			}
			id, _ := meta["_id"].(string)
			if sc.Scan() {
				var doc map[string]interface{}
				_ = json.Unmarshal(sc.Bytes(), &doc)
				f.docs[id] = doc
			}
			results = append(results, fmt.Sprintf(`{"index":{"_id":%q,"status":201,"result":"created"}}`, id))
		}
		fmt.Fprintf(w, `{"took":1,"errors":false,"items":[%s]}`, strings.Join(results, ","))
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"unexpected request"}`)
	}
}

func newFakeIndexer(t *testing.T) (*ESIndexer, *fakeCluster) {
	t.Helper()
	cluster := &fakeCluster{docs: map[string]map[string]interface{}{}}
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewIndexer(&es.ESClientWrapper{Client: client}, zap.NewNop()), cluster
}

func sampleItem() *Item {
	it := &Item{
		Name:         "Silver watch",
		Category:     "Jewellery",
		CategorySlug: "jewellery",
		Date:         time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
		ReportedBy:   uuid.New(),
		Status:       StatusFound,
	}
	it.ID = uuid.New()
	return it
}

func TestESIndexer_IndexAndRemove(t *testing.T) {
	idx, cluster := newFakeIndexer(t)
	ctx := context.Background()
	it := sampleItem()

	require.NoError(t, idx.EnsureIndex(ctx))
	assert.True(t, cluster.indexMade)
	require.NoError(t, idx.EnsureIndex(ctx), "existing index is left alone")

	require.NoError(t, idx.Index(ctx, it))
	doc := cluster.docs[it.ID.String()]
	require.NotNil(t, doc)
	assert.Equal(t, "Silver watch", doc["name"])
	assert.Equal(t, "2024-01-09", doc["date"])
	assert.Equal(t, "found", doc["status"])

	require.NoError(t, idx.Remove(ctx, it.ID))
	require.NoError(t, idx.Remove(ctx, it.ID), "missing document is not an error")
}

func TestESIndexer_SearchBuildsFilteredQuery(t *testing.T) {
	idx, cluster := newFakeIndexer(t)
	first, second := uuid.New(), uuid.New()
	cluster.hits = []string{first.String(), "not-a-uuid", second.String()}

	ids, total, err := idx.Search(context.Background(), SearchQuery{
		Text:         "watch",
		Statuses:     []Status{StatusFound},
		CategorySlug: "jewellery",
		Page:         2,
		PageSize:     5,
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first, second}, ids)
	assert.Equal(t, int64(3), total)

	assert.EqualValues(t, 5, cluster.lastQuery["from"])
	assert.EqualValues(t, 5, cluster.lastQuery["size"])
	raw, _ := json.Marshal(cluster.lastQuery["query"])
	assert.Contains(t, string(raw), `"multi_match"`)
	assert.Contains(t, string(raw), `"category_slug":"jewellery"`)
	assert.Contains(t, string(raw), `"status":["found"]`)
}

func TestESIndexer_BulkIndex(t *testing.T) {
	idx, cluster := newFakeIndexer(t)
	items := []Item{*sampleItem(), *sampleItem()}

	n, err := idx.BulkIndex(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, cluster.docs, 2)
}

func TestESIndexer_DisabledWithoutClient(t *testing.T) {
	idx := NewIndexer(nil, zap.NewNop())
	ctx := context.Background()

	assert.False(t, idx.Enabled())
	assert.NoError(t, idx.Index(ctx, sampleItem()))
	assert.NoError(t, idx.Remove(ctx, uuid.New()))
	assert.NoError(t, idx.EnsureIndex(ctx))
	_, _, err := idx.Search(ctx, SearchQuery{})
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)
}
