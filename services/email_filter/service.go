package email_filter

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailvector/dto"
	"github.com/customeros/mailvector/interfaces"
	"github.com/customeros/mailvector/internal/enum"
	"github.com/customeros/mailvector/internal/logger"
	"github.com/customeros/mailvector/internal/models"
	"github.com/customeros/mailvector/internal/tracing"
)

const (
	DefaultCacheMaxEntries = 1000
	DefaultCacheTTL        = 30 * time.Minute

	// Cache keys truncate the body to this prefix. Longer bodies sharing a
	// prefix collide; that approximation is accepted, rule sets rarely
	// distinguish past the first lines.
	bodySnippetLength = 100

	// Share of oldest entries dropped in one pass when the cache overflows
	evictionShare = 0.10
)

type Config struct {
	CacheMaxEntries int
	CacheTTL        time.Duration
}

type cachedDecision struct {
	decision   dto.FilterDecision
	insertedAt time.Time
}

type emailFilterService struct {
	log   logger.Logger
	cfg   Config
	mu    sync.Mutex
	cache map[string]cachedDecision
	now   func() time.Time
}

func NewEmailFilterService(log logger.Logger, cfg Config) interfaces.EmailFilterService {
	if cfg.CacheMaxEntries <= 0 {
		cfg.CacheMaxEntries = DefaultCacheMaxEntries
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	return &emailFilterService{
		log:   log,
		cfg:   cfg,
		cache: make(map[string]cachedDecision),
		now:   time.Now,
	}
}

// Decide applies user allow/deny rules to a message. Deterministic for a
// given (sender, subject, snippet, rules) input; decisions are memoized with
// a short TTL since rule sets change rarely within a sync pass.
func (s *emailFilterService) Decide(ctx context.Context, sender, subject, bodySnippet string, rules []models.UserFilterRule) dto.FilterDecision {
	span, _ := opentracing.StartSpanFromContext(ctx, "emailFilterService.Decide")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	snippet := bodySnippet
	if len(snippet) > bodySnippetLength {
		snippet = snippet[:bodySnippetLength]
	}
	key := sender + "|" + subject + "|" + snippet

	if decision, ok := s.cachedLookup(key); ok {
		span.SetTag("cache-hit", true)
		return decision
	}

	decision := s.evaluate(sender, subject, bodySnippet, rules)
	s.store(key, decision)

	span.LogKV("indexable", decision.Indexable, "reason", decision.Reason)
	return decision
}

func (s *emailFilterService) evaluate(sender, subject, bodySnippet string, rules []models.UserFilterRule) dto.FilterDecision {
	sender = strings.ToLower(sender)
	subject = strings.ToLower(subject)
	bodySnippet = strings.ToLower(bodySnippet)

	hasAllowRules := false
	allowMatched := false

	for _, rule := range rules {
		target := sender
		switch rule.Field {
		case enum.FilterRuleFieldSubject:
			target = subject
		case enum.FilterRuleFieldBody:
			target = bodySnippet
		}

		matched := strings.Contains(target, strings.ToLower(rule.Pattern))

		switch rule.RuleType {
		case enum.FilterRuleDeny:
			if matched {
				outcome := denyOutcomeForField(rule.Field)
				return dto.FilterDecision{
					Indexable: false,
					Outcome:   outcome,
					Reason:    fmt.Sprintf("%s: matched deny pattern '%s'", outcome, rule.Pattern),
				}
			}
		case enum.FilterRuleAllow:
			hasAllowRules = true
			if matched {
				allowMatched = true
			}
		}
	}

	if hasAllowRules && !allowMatched {
		return dto.FilterDecision{
			Indexable: false,
			Outcome:   enum.FilterNotAllowed,
			Reason:    enum.FilterNotAllowed.String(),
		}
	}

	return dto.FilterDecision{Indexable: true, Outcome: enum.FilterIndexable}
}

func denyOutcomeForField(field enum.FilterRuleField) enum.FilterOutcome {
	switch field {
	case enum.FilterRuleFieldSubject:
		return enum.FilterDeniedSubject
	case enum.FilterRuleFieldBody:
		return enum.FilterDeniedBody
	default:
		return enum.FilterDeniedSender
	}
}

func (s *emailFilterService) cachedLookup(key string) (dto.FilterDecision, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache[key]
	if !ok {
		return dto.FilterDecision{}, false
	}
	if s.now().Sub(entry.insertedAt) > s.cfg.CacheTTL {
		delete(s.cache, key)
		return dto.FilterDecision{}, false
	}
	return entry.decision, true
}

func (s *emailFilterService) store(key string, decision dto.FilterDecision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[key] = cachedDecision{decision: decision, insertedAt: s.now()}

	if len(s.cache) <= s.cfg.CacheMaxEntries {
		return
	}

	// Drop the oldest 10% in one pass to amortize cleanup cost
	type keyedEntry struct {
		key        string
		insertedAt time.Time
	}
	entries := make([]keyedEntry, 0, len(s.cache))
	for k, v := range s.cache {
		entries = append(entries, keyedEntry{key: k, insertedAt: v.insertedAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].insertedAt.Before(entries[j].insertedAt)
	})

	toEvict := int(float64(s.cfg.CacheMaxEntries) * evictionShare)
	if toEvict < 1 {
		toEvict = 1
	}
	for i := 0; i < toEvict && i < len(entries); i++ {
		delete(s.cache, entries[i].key)
	}
}
