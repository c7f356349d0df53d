package registry

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/goblet-backend/internal/apperror"
	"github.com/rocketscienceinc/goblet-backend/internal/entity"
)

const (
	joinCodeAttempts = 25

	// Idle thresholds are tiered by lifecycle state: an abandoned lobby
	// should vanish fast, an active match must survive a refresh or a
	// network blip, a finished one stays long enough to show the result.
	waitingIdleTTL  = 10 * time.Second
	playingIdleTTL  = 5 * time.Minute
	finishedIdleTTL = time.Minute
)

// Registry is the process-wide directory of live matches. It is a cache,
// not a store: everything in it is reconstructible from persisted
// snapshots.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	matches map[string]*entity.Match

	capacity int

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(logger *slog.Logger, capacity int, cleanupInterval time.Duration) *Registry {
	that := &Registry{
		logger:   logger.With("component", "registry"),
		matches:  make(map[string]*entity.Match),
		capacity: capacity,
		stopCh:   make(chan struct{}),
	}

	that.wg.Add(1)
	go that.cleanupLoop(cleanupInterval)

	return that
}

// Stop terminates the cleanup loop and waits for it to drain.
func (that *Registry) Stop() {
	that.stopOnce.Do(func() {
		close(that.stopCh)
	})
	that.wg.Wait()
}

// ByID returns the tracked match, if any.
func (that *Registry) ByID(id string) (*entity.Match, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	match, ok := that.matches[id]
	return match, ok
}

// ByConnection scans for the match the connection already belongs to.
func (that *Registry) ByConnection(connectionID string) (*entity.Match, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, match := range that.matches {
		if match.HasConnection(connectionID) {
			return match, true
		}
	}

	return nil, false
}

// ByJoinCode resolves a waiting match by its short out-of-band code.
func (that *Registry) ByJoinCode(code string) (*entity.Match, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, match := range that.matches {
		if match.JoinCode == code && match.CurrentStatus() == entity.StatusWaiting {
			return match, true
		}
	}

	return nil, false
}

// FindOrCreateForPlayer is the matchmaking path: return the match the
// connection is already in, else seat it in any waiting match, else open a
// fresh public one. Ties between waiting matches are broken by map
// iteration order.
func (that *Registry) FindOrCreateForPlayer(connectionID string, preferred entity.Color, identity *entity.Identity) (*entity.Match, error) {
	if match, ok := that.ByConnection(connectionID); ok {
		return match, nil
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	for _, match := range that.matches {
		if !match.Public || match.CurrentStatus() != entity.StatusWaiting || match.PlayerCount() >= 2 {
			continue
		}
		if err := match.AddPlayer(connectionID, preferred, identity); err == nil {
			return match, nil
		}
	}

	match, err := that.create(connectionID, preferred, identity, true, false, entity.DefaultBoardSize)
	if err != nil {
		return nil, err
	}

	return match, nil
}

// CreateExplicit always opens a new match, for "create game" flows as
// opposed to matchmaking.
func (that *Registry) CreateExplicit(connectionID string, preferred entity.Color, identity *entity.Identity, public, wantsJoinCode bool, boardSize int) (*entity.Match, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.create(connectionID, preferred, identity, public, wantsJoinCode, boardSize)
}

// create assumes the write lock is held.
func (that *Registry) create(connectionID string, preferred entity.Color, identity *entity.Identity, public, wantsJoinCode bool, boardSize int) (*entity.Match, error) {
	if err := that.ensureCapacity(); err != nil {
		return nil, err
	}

	match := entity.NewMatch(uuid.NewString(), boardSize, public)

	if wantsJoinCode {
		code, err := that.generateJoinCode()
		if err != nil {
			return nil, fmt.Errorf("failed to assign join code: %w", err)
		}
		match.JoinCode = code
	}

	if err := match.AddPlayer(connectionID, preferred, identity); err != nil {
		return nil, fmt.Errorf("failed to seat creating player: %w", err)
	}

	that.matches[match.ID] = match

	that.logger.Info("match created",
		"match_id", match.ID,
		"public", public,
		"board_size", match.BoardSize,
		"join_code", match.JoinCode)

	return match, nil
}

// Insert tracks a match reconstructed from a persisted snapshot. If
// another goroutine restored the same match first, the already-tracked
// instance wins.
func (that *Registry) Insert(match *entity.Match) *entity.Match {
	that.mu.Lock()
	defer that.mu.Unlock()

	if existing, ok := that.matches[match.ID]; ok {
		return existing
	}

	that.matches[match.ID] = match

	return match
}

// Remove drops a match from the directory.
func (that *Registry) Remove(id string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.matches, id)
}

// ListWaitingPublic returns lobby summaries of joinable public matches.
func (that *Registry) ListWaitingPublic() []entity.Summary {
	that.mu.RLock()
	defer that.mu.RUnlock()

	summaries := make([]entity.Summary, 0)
	for _, match := range that.matches {
		summary := match.Summary()
		if summary.Public && summary.Status == entity.StatusWaiting {
			summaries = append(summaries, summary)
		}
	}

	return summaries
}

// Len reports the number of tracked matches.
func (that *Registry) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.matches)
}

// ensureCapacity enforces the match ceiling before a creation. When full,
// the stalest finished match is evicted; if nothing is finished the
// creation is refused, which is the admission-control signal under load.
// Assumes the write lock is held.
func (that *Registry) ensureCapacity() error {
	if len(that.matches) < that.capacity {
		return nil
	}

	var victimID string
	var victimActivity time.Time

	for id, match := range that.matches {
		if match.CurrentStatus() != entity.StatusFinished {
			continue
		}
		if victimID == "" || match.LastActivityAt().Before(victimActivity) {
			victimID = id
			victimActivity = match.LastActivityAt()
		}
	}

	if victimID == "" {
		return apperror.ErrServerBusy
	}

	delete(that.matches, victimID)
	that.logger.Info("evicted finished match to free capacity", "match_id", victimID)

	return nil
}

// generateJoinCode picks a 3-digit code unique among currently waiting
// matches, with a bounded collision-retry budget. Assumes the write lock
// is held.
func (that *Registry) generateJoinCode() (string, error) {
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		n, err := rand.Int(rand.Reader, big.NewInt(1000))
		if err != nil {
			return "", fmt.Errorf("failed to read randomness: %w", err)
		}

		code := fmt.Sprintf("%03d", n.Int64())

		taken := false
		for _, match := range that.matches {
			if match.JoinCode == code && match.CurrentStatus() == entity.StatusWaiting {
				taken = true
				break
			}
		}

		if !taken {
			return code, nil
		}
	}

	return "", apperror.ErrJoinCodeExhausted
}

func (that *Registry) cleanupLoop(interval time.Duration) {
	defer that.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			that.Cleanup()
		case <-that.stopCh:
			return
		}
	}
}

// Cleanup reclaims matches whose players are all gone past the
// state-dependent idle threshold. Exported so a sweep can be driven
// directly in tests.
func (that *Registry) Cleanup() {
	that.mu.Lock()
	defer that.mu.Unlock()

	removed := 0

	for id, match := range that.matches {
		if match.HasActivePlayers() {
			continue
		}

		idle := match.IdleDuration()

		var ttl time.Duration
		switch match.CurrentStatus() {
		case entity.StatusWaiting:
			ttl = waitingIdleTTL
		case entity.StatusPlaying:
			ttl = playingIdleTTL
		case entity.StatusFinished:
			ttl = finishedIdleTTL
		default:
			continue
		}

		if idle > ttl {
			delete(that.matches, id)
			removed++
			that.logger.Info("reclaimed abandoned match", "match_id", id, "status", match.CurrentStatus(), "idle", idle)
		}
	}

	if removed > 0 {
		that.logger.Info("cleanup sweep finished", "removed", removed)
	}
}
