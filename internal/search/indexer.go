// Package search mirrors committed candidate writes into Elasticsearch. The
// index is a read model only; the database stays the source of truth.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"recruit-workers/internal/common/logger"
	"recruit-workers/internal/models"
	"recruit-workers/internal/pipeline/identity"
)

// Document is the indexed shape of an active candidate.
type Document struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	PhoneNormalized string `json:"phone_normalized"`
	Age             *int   `json:"age,omitempty"`
	Address         string `json:"address,omitempty"`
	Company         string `json:"company,omitempty"`
	Position        string `json:"position,omitempty"`
	Education       string `json:"education,omitempty"`
	ExperienceLevel string `json:"experience_level,omitempty"`
	UpdatedAt       string `json:"updated_at"`
}

// MirrorResult counts the bulk actions sent and the ones the cluster rejected.
type MirrorResult struct {
	Indexed int `json:"indexed"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
	now    func() time.Time
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"index": index}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func toDocument(c models.CandidateRecord, at time.Time) Document {
	return Document{
		ID:              c.ID,
		Name:            c.Name,
		Phone:           c.Phone,
		PhoneNormalized: identity.NormalizePhone(c.Phone),
		Age:             c.Age,
		Address:         c.Address,
		Company:         c.Company,
		Position:        c.Position,
		Education:       c.Education,
		ExperienceLevel: string(c.ExperienceLevel),
		UpdatedAt:       at.Format(time.RFC3339),
	}
}

// Mirror applies a committed plan: inserts, updates and replacement rows are
// indexed, retired candidates are deleted.
func (ix *Indexer) Mirror(ctx context.Context, plan models.ResolutionPlan) (MirrorResult, error) {
	var (
		buf    bytes.Buffer
		result MirrorResult
	)
	at := ix.now()

	index := func(c models.CandidateRecord) error {
		if err := writeAction(&buf, "index", c.ID); err != nil {
			return err
		}
		if err := json.NewEncoder(&buf).Encode(toDocument(c, at)); err != nil {
			return fmt.Errorf("encode document %s: %w", c.ID, err)
		}
		result.Indexed++
		return nil
	}

	for _, c := range plan.Inserts {
		if err := index(c); err != nil {
			return result, err
		}
	}
	for _, c := range plan.Updates {
		if err := index(c); err != nil {
			return result, err
		}
	}
	for _, rep := range plan.Replaces {
		if err := writeAction(&buf, "delete", rep.Retired.ID); err != nil {
			return result, err
		}
		result.Deleted++
		if err := index(rep.Insert); err != nil {
			return result, err
		}
	}

	if buf.Len() == 0 {
		return result, nil
	}

	req := esapi.BulkRequest{
		Index: ix.index,
		Body:  &buf,
	}
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return result, fmt.Errorf("bulk request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return result, fmt.Errorf("bulk request error: %s", res.Status())
	}

	var body bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return result, fmt.Errorf("decode bulk response: %w", err)
	}
	if body.Errors {
		for _, item := range body.Items {
			for action, r := range item {
				// deleting a document that was never indexed is fine
				if action == "delete" && r.Status == 404 {
					continue
				}
				if r.Status >= 300 {
					result.Failed++
					ix.logger.Warn("Bulk item rejected", map[string]interface{}{
						"action": action,
						"id":     r.ID,
						"status": r.Status,
					})
				}
			}
		}
	}

	ix.logger.Info("Candidates mirrored", map[string]interface{}{
		"indexed": result.Indexed,
		"deleted": result.Deleted,
		"failed":  result.Failed,
	})
	return result, nil
}

func writeAction(buf *bytes.Buffer, action, id string) error {
	meta := map[string]map[string]string{action: {"_id": id}}
	if err := json.NewEncoder(buf).Encode(meta); err != nil {
		return fmt.Errorf("encode %s action %s: %w", action, id, err)
	}
	return nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
	} `json:"items"`
}
