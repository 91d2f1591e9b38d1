package item

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"lostfound_backend/internal/common"
	"lostfound_backend/internal/platform/database"
	es "lostfound_backend/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IndexName is the Elasticsearch index holding item documents.
const IndexName = "items"

// ErrSearchDisabled is returned by Search when no Elasticsearch cluster is configured.
var ErrSearchDisabled = common.ErrServiceUnavailable.WithMessage("Item search is not available")

// Indexer keeps the search index in step with the items table.
// The table is the source of truth; the index may lag after a failed write.
type Indexer interface {
	Enabled() bool
	EnsureIndex(ctx context.Context) error
	Index(ctx context.Context, item *Item) error
	Remove(ctx context.Context, id uuid.UUID) error
	// Search returns matching item ids in relevance order and the total hit count.
	Search(ctx context.Context, q SearchQuery) ([]uuid.UUID, int64, error)
	BulkIndex(ctx context.Context, items []Item) (int, error)
}

// ESIndexer implements Indexer on Elasticsearch. A nil client turns every
// write into a no-op and every search into ErrSearchDisabled.
type ESIndexer struct {
	client *es.ESClientWrapper
	index  string
	logger *zap.Logger
}

// NewIndexer creates the item indexer.
func NewIndexer(client *es.ESClientWrapper, logger *zap.Logger) *ESIndexer {
	return &ESIndexer{client: client, index: IndexName, logger: logger.Named("ItemIndexer")}
}

var _ Indexer = (*ESIndexer)(nil)

var indexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"name":                map[string]interface{}{"type": "text"},
			"category":            map[string]interface{}{"type": "text"},
			"category_slug":       map[string]interface{}{"type": "keyword"},
			"description":         map[string]interface{}{"type": "text"},
			"location":            map[string]interface{}{"type": "text"},
			"date":                map[string]interface{}{"type": "date", "format": "yyyy-MM-dd"},
			"status":              map[string]interface{}{"type": "keyword"},
			"reported_by":         map[string]interface{}{"type": "keyword"},
			"deleted_by_reporter": map[string]interface{}{"type": "boolean"},
			"created_at":          map[string]interface{}{"type": "date"},
		},
	},
}

type document struct {
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	CategorySlug      string    `json:"category_slug"`
	Description       string    `json:"description"`
	Location          string    `json:"location"`
	Date              string    `json:"date"`
	Status            Status    `json:"status"`
	ReportedBy        string    `json:"reported_by"`
	DeletedByReporter bool      `json:"deleted_by_reporter"`
	CreatedAt         time.Time `json:"created_at"`
}

func toDocument(it *Item) ([]byte, error) {
	doc := document{
		Name:              it.Name,
		Category:          it.Category,
		CategorySlug:      it.CategorySlug,
		Description:       it.Description,
		Location:          it.Location,
		Date:              it.Date.Format(DateLayout),
		Status:            it.Status,
		ReportedBy:        it.ReportedBy.String(),
		DeletedByReporter: it.DeletedByReporter,
		CreatedAt:         it.CreatedAt,
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error marshalling item %s for ES: %w", it.ID, err)
	}
	return b, nil
}

func (x *ESIndexer) Enabled() bool { return x.client != nil }

func (x *ESIndexer) EnsureIndex(ctx context.Context) error {
	if !x.Enabled() {
		return nil
	}
	return es.EnsureIndex(ctx, x.client, x.index, indexMapping, x.logger)
}

func (x *ESIndexer) Index(ctx context.Context, it *Item) error {
	if !x.Enabled() {
		return nil
	}
	body, err := toDocument(it)
	if err != nil {
		return err
	}
	res, err := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: it.ID.String(),
		Body:       bytes.NewReader(body),
	}.Do(ctx, x.client.Client)
	if err != nil {
		return fmt.Errorf("indexing item %s: %w", it.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		x.logger.Error("Index request rejected", zap.String("item_id", it.ID.String()), zap.Any("error_details", es.DecodeError(res)))
		return fmt.Errorf("indexing item %s: status %s", it.ID, res.Status())
	}
	return nil
}

func (x *ESIndexer) Remove(ctx context.Context, id uuid.UUID) error {
	if !x.Enabled() {
		return nil
	}
	res, err := esapi.DeleteRequest{Index: x.index, DocumentID: id.String()}.Do(ctx, x.client.Client)
	if err != nil {
		return fmt.Errorf("removing item %s from index: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("removing item %s from index: status %s", id, res.Status())
	}
	return nil
}

func (x *ESIndexer) Search(ctx context.Context, q SearchQuery) ([]uuid.UUID, int64, error) {
	if !x.Enabled() {
		return nil, 0, ErrSearchDisabled
	}

	var must interface{} = map[string]interface{}{"match_all": map[string]interface{}{}}
	if q.Text != "" {
		must = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     q.Text,
				"fields":    []string{"name^3", "category^2", "description", "location"},
				"fuzziness": "AUTO",
			},
		}
	}
	filter := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"deleted_by_reporter": false}},
	}
	if len(q.Statuses) > 0 {
		filter = append(filter, map[string]interface{}{"terms": map[string]interface{}{"status": q.Statuses}})
	}
	if q.CategorySlug != "" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"category_slug": q.CategorySlug}})
	}
	body, err := json.Marshal(map[string]interface{}{
		"query":   map[string]interface{}{"bool": map[string]interface{}{"must": must, "filter": filter}},
		"from":    common.Offset(q.Page, q.PageSize),
		"size":    q.PageSize,
		"_source": false,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("building search query: %w", err)
	}

	res, err := esapi.SearchRequest{
		Index:          []string{x.index},
		Body:           bytes.NewReader(body),
		TrackTotalHits: true,
	}.Do(ctx, x.client.Client)
	if err != nil {
		return nil, 0, fmt.Errorf("searching items: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		x.logger.Error("Search request rejected", zap.Any("error_details", es.DecodeError(res)))
		return nil, 0, fmt.Errorf("searching items: status %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("decoding search response: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			x.logger.Warn("Skipping search hit with malformed id", zap.String("id", hit.ID))
			continue
		}
		ids = append(ids, id)
	}
	return ids, parsed.Hits.Total.Value, nil
}

// BulkIndex (re)indexes items and returns how many documents were accepted.
func (x *ESIndexer) BulkIndex(ctx context.Context, items []Item) (int, error) {
	if !x.Enabled() {
		return 0, ErrSearchDisabled
	}
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     x.client.Client,
		Index:      x.index,
		NumWorkers: 2,
		FlushBytes: 1 << 20,
	})
	if err != nil {
		return 0, fmt.Errorf("creating bulk indexer: %w", err)
	}

	for i := range items {
		body, err := toDocument(&items[i])
		if err != nil {
			return 0, err
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: items[i].ID.String(),
			Body:       bytes.NewReader(body),
			OnFailure: func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				x.logger.Warn("Bulk index item failed",
					zap.String("item_id", item.DocumentID),
					zap.String("reason", res.Error.Reason),
					zap.Error(err),
				)
			},
		})
		if err != nil {
			return 0, fmt.Errorf("queueing item %s: %w", items[i].ID, err)
		}
	}
	if err := bi.Close(ctx); err != nil {
		return 0, fmt.Errorf("flushing bulk indexer: %w", err)
	}
	stats := bi.Stats()
	if stats.NumFailed > 0 {
		return int(stats.NumIndexed), fmt.Errorf("%d of %d items failed to index", stats.NumFailed, len(items))
	}
	return int(stats.NumIndexed), nil
}

// SyncAfterCommit refreshes the item's search document once the surrounding
// transaction commits. A missing row removes the document.
func SyncAfterCommit(ctx context.Context, indexer Indexer, repo Repository, id uuid.UUID, logger *zap.Logger) {
	if indexer == nil || !indexer.Enabled() {
		return
	}
	database.AfterCommit(ctx, func(ctx context.Context) {
		it, err := repo.FindByID(ctx, id)
		switch {
		case errors.Is(err, common.ErrNotFound):
			err = indexer.Remove(ctx, id)
		case err == nil:
			err = indexer.Index(ctx, it)
		}
		if err != nil {
			logger.Warn("Search index update failed", zap.String("item_id", id.String()), zap.Error(err))
		}
	})
}
