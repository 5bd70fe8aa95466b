package returns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"storemirror/internal/remote"

	"github.com/rs/zerolog"
)

// The return domain is owned by an external collaborator; this package only
// walks the platform's returns collection and hands every page over. Nothing
// about the return schema is interpreted here.

const collection = "returns"

// Collaborator ingests raw return records and reports how many it accepted.
type Collaborator interface {
	IngestReturns(ctx context.Context, records []json.RawMessage) (int, error)
}

// PageFetcher is the slice of the remote client the service needs.
type PageFetcher interface {
	FetchPage(ctx context.Context, collection string, page, pageSize int, filters map[string]string) (*remote.Page, error)
}

// Service syncs the returns collection through the collaborator.
type Service struct {
	fetcher      PageFetcher
	collaborator Collaborator
	pageSize     int
	logger       *zerolog.Logger
}

func NewService(fetcher PageFetcher, collaborator Collaborator, pageSize int, logger *zerolog.Logger) *Service {
	return &Service{fetcher: fetcher, collaborator: collaborator, pageSize: pageSize, logger: logger}
}

// SyncReturns walks every page of the returns collection and returns the
// total number of records the collaborator accepted.
func (s *Service) SyncReturns(ctx context.Context) (int, error) {
	total := 0
	for page := 1; ; page++ {
		fetched, err := s.fetcher.FetchPage(ctx, collection, page, s.pageSize, nil)
		if err != nil {
			return total, err
		}
		if len(fetched.Records) > 0 {
			n, err := s.collaborator.IngestReturns(ctx, fetched.Records)
			if err != nil {
				return total, fmt.Errorf("collaborator ingest page %d: %w", page, err)
			}
			total += n
		}
		if !fetched.HasNextPage {
			break
		}
	}
	s.logger.Info().Int("total_synced", total).Msg("returns sync finished")
	return total, nil
}

// HTTPCollaborator forwards return records to the external return system
// over HTTP.
type HTTPCollaborator struct {
	endpoint   string
	httpClient *http.Client
}

func NewHTTPCollaborator(endpoint string) *HTTPCollaborator {
	return &HTTPCollaborator{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPCollaborator) IngestReturns(ctx context.Context, records []json.RawMessage) (int, error) {
	body, err := json.Marshal(map[string]any{"records": records})
	if err != nil {
		return 0, fmt.Errorf("encode returns batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build returns request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("forward returns: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("returns collaborator responded %d", resp.StatusCode)
	}
	return len(records), nil
}
