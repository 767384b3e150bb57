// Package caching provides the shared in-memory state for the engine.
//
// LOCKING HIERARCHY (acquire in this order, release in reverse):
//  1. Store.mu - guards the profile/session/rule maps and the indices
//  2. per-session lock from SessionLock() - serializes event application
//     and personalization for one session
//
// Never acquire Store.mu while holding a per-session lock.
package caching

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/profiles"
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/rules"
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/sessions"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
)

// Store holds all shared mutable state: behavior profiles, personalization
// sessions, the rule registry, and the segmentation indices.
type Store struct {
	mu sync.RWMutex

	profiles map[string]*profiles.BehaviorProfile
	sessions map[string]*sessions.PersonalizationSession
	rules    map[string]*rules.PersonalizationRule

	// Inverted indices rebuilt by the pattern-analysis worker.
	clusterIndex map[string][]string // clusterID -> sessionIDs
	segmentIndex map[string][]string // segment -> sessionIDs

	sessionLocksMu sync.Mutex
	sessionLocks   map[string]*sync.Mutex

	// knownUsers outlives profile eviction so a reappearing user id marks the
	// fresh profile as a return visitor.
	knownUsers map[string]struct{}

	maxProfiles int
	startedAt   time.Time
	logger      *logging.ChanneledLogger

	eventsProcessed atomic.Int64
	eventsShed      atomic.Int64
	fastPathEvents  atomic.Int64
	ruleActivations atomic.Int64
}

// NewStore creates an empty store bounded by config.MaxProfiles.
func NewStore(logger *logging.ChanneledLogger) *Store {
	if logger != nil {
		logger.Cache().Info("Initializing behavior store", "maxProfiles", config.MaxProfiles)
	}
	return &Store{
		profiles:     make(map[string]*profiles.BehaviorProfile),
		sessions:     make(map[string]*sessions.PersonalizationSession),
		rules:        make(map[string]*rules.PersonalizationRule),
		clusterIndex: make(map[string][]string),
		segmentIndex: make(map[string][]string),
		sessionLocks: make(map[string]*sync.Mutex),
		knownUsers:   make(map[string]struct{}),
		maxProfiles:  config.MaxProfiles,
		startedAt:    time.Now().UTC(),
		logger:       logger,
	}
}

// SessionLock returns the mutex serializing all mutation for one session.
// Locks are created on first use and reaped together with the profile.
func (s *Store) SessionLock(sessionID string) *sync.Mutex {
	s.sessionLocksMu.Lock()
	defer s.sessionLocksMu.Unlock()

	lock, exists := s.sessionLocks[sessionID]
	if !exists {
		lock = &sync.Mutex{}
		s.sessionLocks[sessionID] = lock
	}
	return lock
}

// =============================================================================
// Profile operations
// =============================================================================

// GetProfile retrieves a behavior profile by session id.
func (s *Store) GetProfile(sessionID string) (*profiles.BehaviorProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, exists := s.profiles[sessionID]
	return profile, exists
}

// GetOrCreateProfile returns the profile for a session, creating a fresh one
// on first sight. Creation uses a double-check under the write lock.
func (s *Store) GetOrCreateProfile(sessionID, userID string) *profiles.BehaviorProfile {
	s.mu.RLock()
	profile, exists := s.profiles[sessionID]
	s.mu.RUnlock()
	if exists {
		return profile
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if profile, exists = s.profiles[sessionID]; exists {
		return profile
	}

	if len(s.profiles) >= s.maxProfiles {
		s.evictOldestProfileUnsafe()
	}

	returnVisitor := false
	if userID != "" {
		_, returnVisitor = s.knownUsers[userID]
		s.knownUsers[userID] = struct{}{}
	}

	now := time.Now().UTC()
	profile = &profiles.BehaviorProfile{
		SessionID:     sessionID,
		UserID:        userID,
		ReturnVisitor: returnVisitor,
		CreatedAt:     now,
		LastActivity:  now,
		RealTime: profiles.RealTimeState{
			EngagementScore:    50,
			DataFreshnessScore: 100,
		},
		Segmentation: profiles.Segmentation{
			PrimarySegment: "new_visitor",
			ClusterID:      "general",
		},
		ContentPreferences: make(map[string]float64),
	}
	s.profiles[sessionID] = profile
	metrics.ActiveProfiles.Set(float64(len(s.profiles)))

	if s.logger != nil {
		s.logger.Cache().Debug("Profile created", "sessionId", sessionID)
	}
	return profile
}

// evictOldestProfileUnsafe drops the least recently active profile.
// Caller must hold mu.
func (s *Store) evictOldestProfileUnsafe() {
	var oldestID string
	var oldest time.Time
	for id, profile := range s.profiles {
		if oldestID == "" || profile.LastActivity.Before(oldest) {
			oldestID = id
			oldest = profile.LastActivity
		}
	}
	if oldestID != "" {
		s.removeProfileUnsafe(oldestID)
		metrics.ProfilesEvicted.WithLabelValues("capacity").Inc()
		if s.logger != nil {
			s.logger.Cache().Warn("Evicted oldest profile at capacity", "sessionId", oldestID)
		}
	}
}

// removeProfileUnsafe removes a profile and its session state. The session
// lock entry is left in place because a worker may still hold it; idle
// entries are reaped later by EvictIdleProfiles. Caller must hold mu.
func (s *Store) removeProfileUnsafe(sessionID string) {
	delete(s.profiles, sessionID)
	delete(s.sessions, sessionID)
}

// EvictIdleProfiles removes profiles whose last activity is older than the
// retention window and returns how many were evicted.
func (s *Store) EvictIdleProfiles(retention time.Duration) int {
	cutoff := time.Now().UTC().Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, profile := range s.profiles {
		if profile.LastActivity.Before(cutoff) {
			s.removeProfileUnsafe(id)
			evicted++
		}
	}
	if evicted > 0 {
		metrics.ProfilesEvicted.WithLabelValues("retention").Add(float64(evicted))
		metrics.ActiveProfiles.Set(float64(len(s.profiles)))
		metrics.ActiveSessions.Set(float64(len(s.sessions)))
	}

	s.reapSessionLocksUnsafe()
	return evicted
}

// reapSessionLocksUnsafe drops lock entries whose profile is gone and that no
// goroutine currently holds. A held lock survives until a later pass so an
// in-flight worker never races a freshly minted mutex for the same session.
// Caller must hold mu.
func (s *Store) reapSessionLocksUnsafe() {
	s.sessionLocksMu.Lock()
	defer s.sessionLocksMu.Unlock()

	for sessionID, lock := range s.sessionLocks {
		if _, exists := s.profiles[sessionID]; exists {
			continue
		}
		if lock.TryLock() {
			lock.Unlock()
			delete(s.sessionLocks, sessionID)
		}
	}
}

// ProfileCount returns the number of profiles currently held.
func (s *Store) ProfileCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// ProfileSessionIDs returns a snapshot of all profile session ids.
func (s *Store) ProfileSessionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	return ids
}

// =============================================================================
// Personalization session operations
// =============================================================================

// GetSession retrieves a personalization session.
func (s *Store) GetSession(sessionID string) (*sessions.PersonalizationSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

// PutSession stores a personalization session, replacing any existing one.
func (s *Store) PutSession(session *sessions.PersonalizationSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = session
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
}

// SessionCount returns the number of active personalization sessions.
func (s *Store) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// =============================================================================
// Rule registry operations
// =============================================================================

// GetRule retrieves a rule by id.
func (s *Store) GetRule(ruleID string) (*rules.PersonalizationRule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, exists := s.rules[ruleID]
	return rule, exists
}

// PutRule registers a rule.
func (s *Store) PutRule(rule *rules.PersonalizationRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.RuleID] = rule
}

// ActiveRules returns all active rules ordered by priority then id.
func (s *Store) ActiveRules() []*rules.PersonalizationRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]*rules.PersonalizationRule, 0, len(s.rules))
	for _, rule := range s.rules {
		if rule.Status == rules.StatusActive {
			active = append(active, rule)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority > active[j].Priority
		}
		return active[i].RuleID < active[j].RuleID
	})
	return active
}

// AllRules returns a snapshot of every registered rule.
func (s *Store) AllRules() []*rules.PersonalizationRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*rules.PersonalizationRule, 0, len(s.rules))
	for _, rule := range s.rules {
		all = append(all, rule)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].RuleID < all[j].RuleID })
	return all
}

// RuleCount returns the number of registered rules.
func (s *Store) RuleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// RecordRuleActivation updates a rule's performance metrics after application.
// The success-rate running average only counts applications scoring above 60.
func (s *Store) RecordRuleActivation(ruleID string, effectiveness float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, exists := s.rules[ruleID]
	if !exists {
		return
	}
	rule.Metrics.ActivationCount++
	success := 0.0
	if effectiveness > 60 {
		success = 1.0
	}
	n := float64(rule.Metrics.ActivationCount)
	rule.Metrics.SuccessRate += (success - rule.Metrics.SuccessRate) / n

	s.ruleActivations.Add(1)
}

// =============================================================================
// Segmentation indices
// =============================================================================

// ReplaceIndices atomically swaps in freshly built cluster and segment indices.
func (s *Store) ReplaceIndices(clusterIndex, segmentIndex map[string][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clusterIndex = clusterIndex
	s.segmentIndex = segmentIndex
}

// ClusterIndex returns a copy of the cluster index.
func (s *Store) ClusterIndex() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyIndex(s.clusterIndex)
}

// SegmentIndex returns a copy of the segment index.
func (s *Store) SegmentIndex() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyIndex(s.segmentIndex)
}

func copyIndex(index map[string][]string) map[string][]string {
	out := make(map[string][]string, len(index))
	for key, ids := range index {
		out[key] = append([]string(nil), ids...)
	}
	return out
}

// =============================================================================
// Counters
// =============================================================================

func (s *Store) AddEventsProcessed(n int64)  { s.eventsProcessed.Add(n) }
func (s *Store) AddEventsShed(n int64)       { s.eventsShed.Add(n) }
func (s *Store) AddFastPathEvents(n int64)   { s.fastPathEvents.Add(n) }
func (s *Store) EventsProcessed() int64      { return s.eventsProcessed.Load() }
func (s *Store) EventsShed() int64           { return s.eventsShed.Load() }
func (s *Store) FastPathEvents() int64       { return s.fastPathEvents.Load() }
func (s *Store) RuleActivationsTotal() int64 { return s.ruleActivations.Load() }

// StartedAt returns when the store was created.
func (s *Store) StartedAt() time.Time { return s.startedAt }
