package intimacao

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/legalflow/lexsync/projudi"
)

// CourtClient is the adapter surface the service needs; satisfied by
// *projudi.Client.
type CourtClient interface {
	Configured() bool
	FetchNotifications(ctx context.Context, since time.Time) ([]map[string]any, error)
}

// FetchResult summarizes one incremental fetch.
type FetchResult struct {
	StartedAt             time.Time              `json:"startedAt"`
	FinishedAt            time.Time              `json:"finishedAt"`
	RequestedFrom         time.Time              `json:"requestedFrom"`
	TotalFetched          int                    `json:"totalFetched"`
	TotalProcessed        int                    `json:"totalProcessed"`
	Inserted              int                    `json:"inserted"`
	Updated               int                    `json:"updated"`
	Skipped               int                    `json:"skipped"`
	LatestSourceTimestamp *time.Time             `json:"latestSourceTimestamp,omitempty"`
	Items                 []projudi.Notification `json:"-"`
}

// Service fetches new court notifications and upserts them by natural key.
type Service struct {
	client CourtClient
	store  *Store
	logger *zap.SugaredLogger
}

// NewService creates a court notification service.
func NewService(client CourtClient, store *Store, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{client: client, store: store, logger: logger}
}

// Configured reports whether the underlying adapter is configured.
func (s *Service) Configured() bool {
	return s.client.Configured()
}

// FetchNew retrieves notifications created or updated after the reference
// time and upserts them. Items with no resolvable external id are skipped.
//
// LatestSourceTimestamp is observability only: the next watermark is derived
// from wall-clock time minus the overlap window by the runner, never from
// source timestamps, to stay robust against source clock skew.
func (s *Service) FetchNew(ctx context.Context, reference time.Time) (*FetchResult, error) {
	result := &FetchResult{
		StartedAt:     time.Now().UTC(),
		RequestedFrom: reference,
	}

	raw, err := s.client.FetchNotifications(ctx, reference)
	if err != nil {
		return nil, err
	}
	result.TotalFetched = len(raw)

	for _, item := range raw {
		n := projudi.Normalize(item)
		if n.ExternalID == "" {
			result.Skipped++
			s.logger.Debugw("Skipping notification without resolvable external id")
			continue
		}

		inserted, err := s.store.Upsert(OrigemProjudi, n)
		if err != nil {
			return nil, err
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
		result.TotalProcessed++
		result.Items = append(result.Items, n)

		for _, ts := range []*time.Time{n.FonteAtualizadaEm, n.FonteCriadaEm, n.RecebidaEm, n.Prazo} {
			if ts == nil {
				continue
			}
			if result.LatestSourceTimestamp == nil || ts.After(*result.LatestSourceTimestamp) {
				result.LatestSourceTimestamp = ts
			}
		}
	}

	result.FinishedAt = time.Now().UTC()

	s.logger.Infow("Court notification fetch complete",
		"requested_from", reference.Format(time.RFC3339),
		"total_fetched", result.TotalFetched,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"skipped", result.Skipped,
	)

	return result, nil
}
