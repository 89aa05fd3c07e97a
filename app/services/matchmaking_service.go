package services

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"time"

	"speeddating/app/models"
	"speeddating/app/repository"
)

// MatchCandidate is the part of a participant matchmaking looks at
type MatchCandidate struct {
	UserID    string
	Name      string
	Interests []string
}

// CandidatesFromSession lists the session's participants in join order
func CandidatesFromSession(s *models.Session) []MatchCandidate {
	out := make([]MatchCandidate, 0, len(s.ParticipantIDs))
	for _, id := range s.ParticipantIDs {
		p := s.Participants[id]
		out = append(out, MatchCandidate{UserID: id, Name: p.Name, Interests: p.Interests})
	}
	return out
}

// SharesInterest reports whether two interest lists intersect.
// Missing interest data on either side counts as compatible.
func SharesInterest(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	for _, i := range a {
		if slices.Contains(b, i) {
			return true
		}
	}
	return false
}

// Compatibility is the Jaccard similarity of two interest lists, 0.5 when both are empty
func Compatibility(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.5
	}
	union := make(map[string]bool, len(a)+len(b))
	inA := make(map[string]bool, len(a))
	for _, i := range a {
		union[i] = true
		inA[i] = true
	}
	shared := 0
	seen := make(map[string]bool, len(b))
	for _, i := range b {
		if seen[i] {
			continue
		}
		seen[i] = true
		union[i] = true
		if inA[i] {
			shared++
		}
	}
	return float64(shared) / float64(len(union))
}

// TotalRoundsFor is the number of rounds planned for participants people
func TotalRoundsFor(participants int) int {
	if participants < models.MinParticipants {
		return 0
	}
	return min(models.MaxRounds, participants-1)
}

// GeneratePairings builds one round: shuffle, then greedily give each unpaired candidate
// the first later candidate it shares an interest with and has not met in prior.
// A first round that pairs nobody falls back to pairing by shuffled order.
func GeneratePairings(candidates []MatchCandidate, prior map[models.PairKey]bool, round int, rng *rand.Rand) []models.Pairing {
	order := slices.Clone(candidates)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	paired := make([]bool, len(order))
	var out []models.Pairing
	for i := range order {
		if paired[i] {
			continue
		}
		for j := i + 1; j < len(order); j++ {
			if paired[j] {
				continue
			}
			if prior[models.NewPairKey(order[i].UserID, order[j].UserID)] {
				continue
			}
			if !SharesInterest(order[i].Interests, order[j].Interests) {
				continue
			}
			paired[i], paired[j] = true, true
			out = append(out, newPairing(order[i], order[j], round))
			break
		}
	}

	if round == 1 && len(out) == 0 && len(order) >= models.MinParticipants {
		for i := 0; i+1 < len(order); i += 2 {
			out = append(out, newPairing(order[i], order[i+1], round))
		}
	}
	return out
}

// PlanRounds generates every round of a session and returns the pairings with the round count
func PlanRounds(candidates []MatchCandidate, rng *rand.Rand) ([]models.Pairing, int) {
	total := TotalRoundsFor(len(candidates))
	prior := make(map[models.PairKey]bool)
	var out []models.Pairing
	for round := 1; round <= total; round++ {
		pairings := GeneratePairings(candidates, prior, round, rng)
		for _, p := range pairings {
			prior[p.Key()] = true
		}
		out = append(out, pairings...)
	}
	return out, total
}

func newPairing(a, b MatchCandidate, round int) models.Pairing {
	return models.Pairing{
		User1ID:       a.UserID,
		User1Name:     a.Name,
		User2ID:       b.UserID,
		User2Name:     b.Name,
		Round:         round,
		Compatibility: Compatibility(a.Interests, b.Interests),
	}
}

// MatchmakingService writes the pairing plan of a session that just started
type MatchmakingService struct {
	sessions repository.SessionRepository
	notifier SessionNotifier
	stats    StatsRecorder
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewMatchmakingService creates a matchmaking engine drawing shuffles from rng
func NewMatchmakingService(sessions repository.SessionRepository, notifier SessionNotifier, stats StatsRecorder, rng *rand.Rand) *MatchmakingService {
	return &MatchmakingService{
		sessions: sessions,
		notifier: notifier,
		stats:    stats,
		now:      time.Now,
		rng:      rng,
	}
}

// RunMatchmaking plans all rounds for an in-progress session. If the session is gone or
// no longer in progress it logs and returns without writing anything.
func (m *MatchmakingService) RunMatchmaking(ctx context.Context, sessionID string) error {
	s, err := m.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			slog.Warn("matchmaking skipped, session not found", "session_id", sessionID)
			return nil
		}
		return err
	}
	if s.Status != models.SessionStatusInProgress {
		slog.Warn("matchmaking skipped, session not in progress", "session_id", sessionID, "status", s.Status)
		return nil
	}
	if s.ParticipantCount < models.MinParticipants {
		slog.Warn("matchmaking skipped, not enough participants", "session_id", sessionID, "participants", s.ParticipantCount)
		return nil
	}

	m.rngMu.Lock()
	pairings, total := PlanRounds(CandidatesFromSession(s), m.rng)
	m.rngMu.Unlock()

	current := 0
	if len(pairings) > 0 {
		current = 1
	}
	now := m.now()
	if pairings == nil {
		pairings = []models.Pairing{}
	}
	updated, err := m.sessions.UpdateSession(ctx, sessionID, models.SessionStatusInProgress, models.SessionUpdate{
		CurrentRound:   &current,
		TotalRounds:    &total,
		RoundStartedAt: &now,
		Pairings:       pairings,
	}, now)
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) || errors.Is(err, models.ErrNotFound) {
			slog.Warn("matchmaking result discarded, session changed", "session_id", sessionID)
			return nil
		}
		return err
	}

	m.stats.Add(ctx, models.StatPairingsGenerated, int64(len(pairings)))
	slog.Info("matchmaking completed", "session_id", sessionID, "pairings", len(pairings), "total_rounds", total)
	m.notifier.NotifySession(models.EventSessionStarted, updated)
	return nil
}
