// internal/funnel/session/analytics.go
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/jackhunterking/renoassist-forms/internal/models"
)

// Analytics indexes step events into Elasticsearch for funnel drop-off
// reporting. It is a secondary sink: indexing failures are returned to
// the tracker, which logs and moves on.
type Analytics struct {
	client *elasticsearch.Client
	index  string
}

func NewAnalytics(client *elasticsearch.Client, index string) *Analytics {
	return &Analytics{
		client: client,
		index:  index,
	}
}

// IndexEvent writes a single event document keyed by the event ID.
func (a *Analytics) IndexEvent(ctx context.Context, event *models.FunnelEvent) error {
	doc, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal funnel event: %w", err)
	}

	res, err := a.client.Index(
		a.index,
		bytes.NewReader(doc),
		a.client.Index.WithContext(ctx),
		a.client.Index.WithDocumentID(event.ID),
	)
	if err != nil {
		return fmt.Errorf("index funnel event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index funnel event: %s", res.Status())
	}
	return nil
}
