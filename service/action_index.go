package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	model "github.com/Itish41/FranchiseOps/models"
	"github.com/elastic/go-elasticsearch/v8"
)

// DefaultActionIndex is the Elasticsearch index action items are written to.
const DefaultActionIndex = "action_items"

var ErrSearchUnavailable = errors.New("elasticsearch client is not initialized")

// ESIndexer mirrors action items into Elasticsearch for full text search.
// A nil client makes every call a no-op, and search returns ErrSearchUnavailable.
type ESIndexer struct {
	client *elasticsearch.Client
	index  string
}

// NewESClient builds a client for url.
func NewESClient(url string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{url}})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	return client, nil
}

func NewESIndexer(client *elasticsearch.Client, index string) *ESIndexer {
	if index == "" {
		index = DefaultActionIndex
	}
	return &ESIndexer{client: client, index: index}
}

type actionDocument struct {
	ID                string `json:"id"`
	OrganizationID    string `json:"organization_id"`
	LocationID        string `json:"location_id"`
	RuleID            string `json:"rule_id"`
	Category          string `json:"category"`
	Priority          string `json:"priority"`
	Status            string `json:"status"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	RecommendedAction string `json:"recommended_action"`
	UpdatedAt         string `json:"updated_at"`
}

func toActionDocument(item model.ActionItem) actionDocument {
	return actionDocument{
		ID:                item.ID,
		OrganizationID:    item.OrganizationID,
		LocationID:        item.LocationID,
		RuleID:            item.RuleID,
		Category:          string(item.Category),
		Priority:          string(item.Priority),
		Status:            string(item.Status),
		Title:             item.Title,
		Description:       item.Description,
		RecommendedAction: item.RecommendedAction,
		UpdatedAt:         item.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// bulkBody renders items as a _bulk NDJSON payload keyed by item id.
func (x *ESIndexer) bulkBody(items []model.ActionItem) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, item := range items {
		meta := map[string]interface{}{"index": map[string]interface{}{"_index": x.index, "_id": item.ID}}
		if err := enc.Encode(meta); err != nil {
			return nil, err
		}
		if err := enc.Encode(toActionDocument(item)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (x *ESIndexer) IndexActionItems(ctx context.Context, items []model.ActionItem) error {
	if x.client == nil {
		log.Println("[IndexActionItems] Elasticsearch client not initialized. Skipping indexing.")
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	body, err := x.bulkBody(items)
	if err != nil {
		return fmt.Errorf("failed to marshal action items for indexing: %w", err)
	}

	res, err := x.client.Bulk(bytes.NewReader(body), x.client.Bulk.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch bulk request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch bulk indexing failed: %s", res.String())
	}

	var parsed struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if parsed.Errors {
		return fmt.Errorf("elasticsearch bulk indexing reported item errors")
	}
	log.Printf("[IndexActionItems] Indexed %d action items", len(items))
	return nil
}

// SearchActionItems runs a full text query over indexed action items,
// optionally limited to one location.
func (x *ESIndexer) SearchActionItems(ctx context.Context, query, locationID string) ([]map[string]interface{}, error) {
	if x.client == nil {
		return nil, ErrSearchUnavailable
	}

	boolQuery := map[string]interface{}{
		"must": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^2", "description", "recommended_action", "rule_id"},
			},
		},
	}
	if locationID != "" {
		boolQuery["filter"] = map[string]interface{}{
			"term": map[string]interface{}{"location_id": locationID},
		}
	}
	body, err := json.Marshal(map[string]interface{}{"query": map[string]interface{}{"bool": boolQuery}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := x.client.Search(
		x.client.Search.WithContext(ctx),
		x.client.Search.WithIndex(x.index),
		x.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search failed: %s", res.String())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	items := make([]map[string]interface{}, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		if hit.Source != nil {
			items = append(items, hit.Source)
		}
	}
	return items, nil
}
