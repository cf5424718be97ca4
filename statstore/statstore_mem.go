package statstore

import (
	"context"
	"sync"
)

// In-memory StatStore. A single mutex guards both the user map and the
// calibration histogram; call volume is human-review scale.
type MemStatStore struct {
	mu      sync.Mutex
	users   map[string]*UserStats
	buckets [bucketCount]CalibrationBucket
}

var _ StatStore = (*MemStatStore)(nil)

func NewMemStatStore() *MemStatStore {
	return &MemStatStore{
		users: make(map[string]*UserStats),
	}
}

// Lazily creates the record on first reference.
func (s *MemStatStore) user(userID string) *UserStats {
	u, ok := s.users[userID]
	if !ok {
		u = &UserStats{}
		s.users[userID] = u
	}
	return u
}

func (s *MemStatStore) AddSentiment(ctx context.Context, userID string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	u.SentimentTotal += score
	u.MessagesSent++
	return nil
}

func (s *MemStatStore) AddStrike(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	u.Strikes++
	return u.Strikes, nil
}

func (s *MemStatStore) GetStrikes(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user(userID).Strikes, nil
}

func (s *MemStatStore) IncrementReportsAgainst(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).ReportsAgainst++
	return nil
}

func (s *MemStatStore) IncrementReportsAuthored(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).ReportsAuthored++
	return nil
}

func (s *MemStatStore) IncrementConfirmedReports(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).ConfirmedReports++
	return nil
}

func (s *MemStatStore) GetUserStats(ctx context.Context, userID string) (UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.user(userID), nil
}

func (s *MemStatStore) AddCase(ctx context.Context, score float64, accurate bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := bucketIndex(score)
	s.buckets[i].Total++
	if accurate {
		s.buckets[i].Accurate++
	}
	return nil
}

func (s *MemStatStore) Overview(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return renderOverview(s.buckets), nil
}
