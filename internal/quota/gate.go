package quota

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/duskwallet/duskwallet-api/internal/models"
)

// maxCASAttempts bounds re-reads after a concurrent writer moved the row.
const maxCASAttempts = 5

var (
	// ErrUserNotFound is returned when the user record does not exist.
	ErrUserNotFound = errors.New("quota: user not found")
	// ErrExhausted matches any *ExhaustedError via errors.Is.
	ErrExhausted = errors.New("quota: analysis limit reached")
	// ErrContention is returned when the row kept changing under every attempt.
	ErrContention = errors.New("quota: too much concurrent activity")
)

// ExhaustedError reports a denied reservation and when the window reopens.
type ExhaustedError struct {
	DaysUntilReset int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("quota: analysis limit reached, resets in %d day(s)", e.DaysUntilReset)
}

// Is lets errors.Is(err, ErrExhausted) match.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// Reservation is the token returned by Reserve and consumed by Release.
type Reservation struct {
	UserID         string
	Unlimited      bool
	Consumed       bool  // A unit was taken from the window.
	Window         int64 // Window generation the unit was taken from.
	Remaining      int
	DaysUntilReset int

	settled atomic.Bool // Set once by Confirm or Release.
}

// Status is the read-only view of a user's quota.
type Status struct {
	HasSubscription bool
	Remaining       int
	MaxPerWindow    int
	DaysUntilReset  int
}

// Gate enforces the weekly analysis quota against the users table.
type Gate struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGate constructs a Gate.
func NewGate(db *gorm.DB) *Gate {
	return &Gate{db: db, now: time.Now}
}

// Reserve takes one unit of quota for userID, or reports why it cannot.
func (g *Gate) Reserve(ctx context.Context, userID string) (*Reservation, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		state, errLoad := g.load(ctx, userID)
		if errLoad != nil {
			return nil, errLoad
		}
		if state.Unlimited {
			return &Reservation{UserID: userID, Unlimited: true}, nil
		}

		now := g.now().UTC()
		next, reset := Advance(state, now)
		if reset {
			ok, errReset := g.casUpdate(ctx, userID, state, false, map[string]any{
				"ai_analysis_count":   1,
				"last_analysis_reset": now,
				"analysis_window":     next.Window,
			})
			if errReset != nil {
				return nil, errReset
			}
			if !ok {
				continue
			}
			return &Reservation{
				UserID:         userID,
				Consumed:       true,
				Window:         next.Window,
				Remaining:      MaxPerWindow - 1,
				DaysUntilReset: WindowDays,
			}, nil
		}

		if state.Count >= MaxPerWindow {
			return nil, &ExhaustedError{DaysUntilReset: state.DaysUntilReset(now)}
		}

		ok, errIncr := g.casUpdate(ctx, userID, state, true, map[string]any{
			"ai_analysis_count": gorm.Expr("ai_analysis_count + ?", 1),
		})
		if errIncr != nil {
			return nil, errIncr
		}
		if !ok {
			continue
		}
		return &Reservation{
			UserID:         userID,
			Consumed:       true,
			Window:         state.Window,
			Remaining:      MaxPerWindow - (state.Count + 1),
			DaysUntilReset: state.DaysUntilReset(now),
		}, nil
	}
	return nil, ErrContention
}

// Confirm keeps the unit taken by r; any later Release becomes a no-op.
func (g *Gate) Confirm(r *Reservation) {
	if r != nil {
		r.settled.Store(true)
	}
}

// Release returns the unit taken by r. It is a no-op for unlimited or unconsumed
// reservations, for confirmed or already released tokens, and for windows that
// have since been reset.
func (g *Gate) Release(ctx context.Context, r *Reservation) error {
	if r == nil || r.Unlimited || !r.Consumed {
		return nil
	}
	if !r.settled.CompareAndSwap(false, true) {
		return nil
	}
	res := g.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND analysis_window = ? AND ai_analysis_count > 0", r.UserID, r.Window).
		UpdateColumn("ai_analysis_count", gorm.Expr("ai_analysis_count - ?", 1))
	if res.Error != nil {
		r.settled.Store(false)
		return fmt.Errorf("quota: release: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		log.WithField("user_id", r.UserID).Debug("quota: release skipped, window already rolled over")
	}
	return nil
}

// Status reports the user's quota without consuming a unit.
// An expired window is collapsed and persisted on the way.
func (g *Gate) Status(ctx context.Context, userID string) (Status, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		state, errLoad := g.load(ctx, userID)
		if errLoad != nil {
			return Status{}, errLoad
		}
		if state.Unlimited {
			return Status{HasSubscription: true, MaxPerWindow: MaxPerWindow}, nil
		}

		now := g.now().UTC()
		next, reset := Advance(state, now)
		if reset {
			ok, errReset := g.casUpdate(ctx, userID, state, false, map[string]any{
				"ai_analysis_count":   0,
				"last_analysis_reset": now,
				"analysis_window":     next.Window,
			})
			if errReset != nil {
				return Status{}, errReset
			}
			if !ok {
				continue
			}
		}
		return Status{
			Remaining:      next.Remaining(),
			MaxPerWindow:   MaxPerWindow,
			DaysUntilReset: next.DaysUntilReset(now),
		}, nil
	}
	return Status{}, ErrContention
}

// load reads the quota columns of a user.
func (g *Gate) load(ctx context.Context, userID string) (State, error) {
	var user models.User
	errFind := g.db.WithContext(ctx).
		Select("id", "has_subscription", "ai_analysis_count", "last_analysis_reset", "analysis_window").
		Where("id = ?", userID).
		First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return State{}, ErrUserNotFound
		}
		return State{}, fmt.Errorf("quota: load user: %w", errFind)
	}
	return State{
		Unlimited: user.HasSubscription,
		Count:     user.AIAnalysisCount,
		ResetAt:   user.LastAnalysisReset,
		Window:    user.AnalysisWindow,
	}, nil
}

// casUpdate applies updates only if the row still holds the observed window
// (and count, when matchCount is set). It reports whether the row was written.
func (g *Gate) casUpdate(ctx context.Context, userID string, observed State, matchCount bool, updates map[string]any) (bool, error) {
	query := g.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND analysis_window = ?", userID, observed.Window)
	if matchCount {
		query = query.Where("ai_analysis_count = ?", observed.Count)
	}
	res := query.UpdateColumns(updates)
	if res.Error != nil {
		return false, fmt.Errorf("quota: update: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
