package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/doara/doara/application/port/outbound"
	"github.com/doara/doara/domain/entity"
)

const (
	defaultLogLimit = 100
	statsWindowMax  = 1000

	suspiciousFailedLoginThreshold = 3
	suspiciousHardDeleteThreshold  = 5
	suspiciousLockThreshold        = 3
)

// TopActor is an account ranked by audit activity inside a window.
type TopActor struct {
	UserID       string `json:"userId"`
	ActionsCount int    `json:"actionsCount"`
}

// SuspiciousFinding is a heuristic flag derived from a window of entries.
type SuspiciousFinding struct {
	Type     string `json:"type"`
	Email    string `json:"email,omitempty"`
	Count    int    `json:"count"`
	Severity string `json:"severity"`
}

// WindowStats summarizes one time window of the trail.
type WindowStats struct {
	Total         int `json:"total"`
	UserCreated   int `json:"userCreated"`
	UserUpdated   int `json:"userUpdated"`
	UserDeleted   int `json:"userDeleted"`
	LoginSuccess  int `json:"loginSuccess"`
	LoginFailed   int `json:"loginFailed"`
	AccountLocked int `json:"accountLocked"`
}

type AuditStats struct {
	Last24Hours        WindowStats         `json:"last24Hours"`
	Last7Days          WindowStats         `json:"last7Days"`
	TopActors          []TopActor          `json:"topUsers"`
	SuspiciousActivity []SuspiciousFinding `json:"suspiciousActivity"`
}

// AuditUseCase is the gateway's read side of the trail: query passthroughs
// plus derived analytics computed as pure functions over fetched windows.
// Nothing here persists state.
type AuditUseCase struct {
	queries outbound.AuditQueryClient
	now     func() time.Time
}

func NewAuditUseCase(queries outbound.AuditQueryClient) *AuditUseCase {
	return &AuditUseCase{
		queries: queries,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (uc *AuditUseCase) LogsByUser(ctx context.Context, userID string, limit int) ([]*entity.AuditEntry, error) {
	return uc.queries.LogsByUser(ctx, userID, normalizeLimit(limit))
}

func (uc *AuditUseCase) LogsByAction(ctx context.Context, action entity.AuditAction, limit int) ([]*entity.AuditEntry, error) {
	return uc.queries.LogsByAction(ctx, action, normalizeLimit(limit))
}

func (uc *AuditUseCase) LogsByDateRange(ctx context.Context, start, end time.Time, limit int) ([]*entity.AuditEntry, error) {
	return uc.queries.LogsByDateRange(ctx, start, end, normalizeLimit(limit))
}

// Recent returns the last 24 hours of entries, newest first.
func (uc *AuditUseCase) Recent(ctx context.Context, limit int) ([]*entity.AuditEntry, error) {
	now := uc.now()
	return uc.queries.LogsByDateRange(ctx, now.Add(-24*time.Hour), now, normalizeLimit(limit))
}

// Stats aggregates the 24-hour and 7-day windows and runs the suspicious
// activity heuristics over the fresher one.
func (uc *AuditUseCase) Stats(ctx context.Context) (*AuditStats, error) {
	now := uc.now()

	last24h, err := uc.queries.LogsByDateRange(ctx, now.Add(-24*time.Hour), now, statsWindowMax)
	if err != nil {
		return nil, err
	}
	last7d, err := uc.queries.LogsByDateRange(ctx, now.Add(-7*24*time.Hour), now, statsWindowMax)
	if err != nil {
		return nil, err
	}

	return &AuditStats{
		Last24Hours:        SummarizeWindow(last24h),
		Last7Days:          SummarizeWindow(last7d),
		TopActors:          TopActors(last7d, 10),
		SuspiciousActivity: DetectSuspiciousActivity(last24h),
	}, nil
}

// SummarizeWindow counts the per-action totals of a window.
func SummarizeWindow(entries []*entity.AuditEntry) WindowStats {
	stats := WindowStats{Total: len(entries)}
	for _, e := range entries {
		switch e.Action {
		case entity.ActionUserCreated:
			stats.UserCreated++
		case entity.ActionUserUpdated:
			stats.UserUpdated++
		case entity.ActionUserDeleted:
			stats.UserDeleted++
		case entity.ActionLoginSuccess:
			stats.LoginSuccess++
		case entity.ActionLoginFailed:
			stats.LoginFailed++
		case entity.ActionAccountLocked:
			stats.AccountLocked++
		}
	}
	return stats
}

// TopActors ranks accounts by how often they appear as actor or recorded
// target. Ties break on user id so the ranking is deterministic.
func TopActors(entries []*entity.AuditEntry, limit int) []TopActor {
	counts := make(map[string]int)
	for _, e := range entries {
		id := ""
		if e.ActorID != nil {
			id = *e.ActorID
		} else {
			id = e.TargetUserID()
		}
		if id != "" {
			counts[id]++
		}
	}

	actors := make([]TopActor, 0, len(counts))
	for id, count := range counts {
		actors = append(actors, TopActor{UserID: id, ActionsCount: count})
	}
	sort.Slice(actors, func(i, j int) bool {
		if actors[i].ActionsCount != actors[j].ActionsCount {
			return actors[i].ActionsCount > actors[j].ActionsCount
		}
		return actors[i].UserID < actors[j].UserID
	})

	if limit > 0 && len(actors) > limit {
		actors = actors[:limit]
	}
	return actors
}

// DetectSuspiciousActivity applies the fixed heuristics: repeated failed
// logins per email, bursts of hard deletes, and bursts of account locks.
func DetectSuspiciousActivity(entries []*entity.AuditEntry) []SuspiciousFinding {
	var findings []SuspiciousFinding

	failedByEmail := make(map[string]int)
	hardDeletes := 0
	locks := 0
	for _, e := range entries {
		switch e.Action {
		case entity.ActionLoginFailed:
			if email, ok := e.Metadata["email"].(string); ok && email != "" {
				failedByEmail[email]++
			}
		case entity.ActionUserHardDeleted:
			hardDeletes++
		case entity.ActionAccountLocked:
			locks++
		}
	}

	emails := make([]string, 0, len(failedByEmail))
	for email := range failedByEmail {
		emails = append(emails, email)
	}
	sort.Strings(emails)
	for _, email := range emails {
		if count := failedByEmail[email]; count >= suspiciousFailedLoginThreshold {
			findings = append(findings, SuspiciousFinding{
				Type:     "MULTIPLE_FAILED_LOGINS",
				Email:    email,
				Count:    count,
				Severity: "HIGH",
			})
		}
	}

	if hardDeletes >= suspiciousHardDeleteThreshold {
		findings = append(findings, SuspiciousFinding{
			Type:     "MULTIPLE_HARD_DELETES",
			Count:    hardDeletes,
			Severity: "CRITICAL",
		})
	}
	if locks >= suspiciousLockThreshold {
		findings = append(findings, SuspiciousFinding{
			Type:     "MULTIPLE_ACCOUNT_LOCKS",
			Count:    locks,
			Severity: "MEDIUM",
		})
	}
	return findings
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLogLimit
	}
	return limit
}
