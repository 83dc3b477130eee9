package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"smartchef/internal/repository"
)

// Razones de denegacion de cuota.
const (
	ReasonDailyLimit  = "daily_limit"
	ReasonWeeklyLimit = "weekly_limit"
)

const weeklyWindow = 7 * 24 * time.Hour

// QuotaDecision es el resultado de un intento de consumo.
type QuotaDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// QuotaStatus refleja el uso actual frente a los techos configurados.
type QuotaStatus struct {
	UsedDaily   int `json:"used_daily"`
	DailyLimit  int `json:"daily_limit"`
	UsedWeekly  int `json:"used_weekly"`
	WeeklyLimit int `json:"weekly_limit"`
}

// QuotaService decide si una accion respaldada por el LLM esta permitida y
// reinicia contadores al cruzar fronteras de dia o semana. Todas las
// comparaciones de calendario se hacen en UTC.
//
// Es una compuerta de admision gruesa, no un rate limiter preciso: no hay
// sliding window ni token bucket.
type QuotaService struct {
	logger *zap.Logger
	users  repository.UserRepository
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewQuotaService(logger *zap.Logger, users repository.UserRepository) *QuotaService {
	return &QuotaService{
		logger: logger,
		users:  users,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// WithClock reemplaza la fuente de tiempo; pensado para tests.
func (s *QuotaService) WithClock(now func() time.Time) *QuotaService {
	s.now = now
	return s
}

// CheckAndConsume evalua primero la politica de reset y luego los limites.
// Si permite, incrementa ambos contadores y persiste. Las mutaciones por
// usuario estan serializadas; usuarios distintos nunca contienden.
func (s *QuotaService) CheckAndConsume(ctx context.Context, userID string) (QuotaDecision, error) {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return QuotaDecision{}, ErrUserNotFound
		}
		return QuotaDecision{}, err
	}

	now := s.now().UTC()
	usedDaily, usedWeekly, lastReset, didReset := applyResets(user.UsedDaily, user.UsedWeekly, user.LastReset, now)

	if usedDaily >= user.DailyLimit {
		if didReset {
			if err := s.users.UpdateQuota(ctx, userID, usedDaily, usedWeekly, lastReset); err != nil {
				return QuotaDecision{}, err
			}
		}
		return QuotaDecision{Allowed: false, Reason: ReasonDailyLimit}, nil
	}
	if usedWeekly >= user.WeeklyLimit {
		if didReset {
			if err := s.users.UpdateQuota(ctx, userID, usedDaily, usedWeekly, lastReset); err != nil {
				return QuotaDecision{}, err
			}
		}
		return QuotaDecision{Allowed: false, Reason: ReasonWeeklyLimit}, nil
	}

	usedDaily++
	usedWeekly++
	if err := s.users.UpdateQuota(ctx, userID, usedDaily, usedWeekly, lastReset); err != nil {
		return QuotaDecision{}, err
	}

	if didReset && s.logger != nil {
		s.logger.Info("quota counters reset",
			zap.String("user_id", userID),
			zap.Time("last_reset", lastReset),
		)
	}
	return QuotaDecision{Allowed: true}, nil
}

// Status devuelve los contadores persistidos tal cual; no consume ni
// adelanta resets.
func (s *QuotaService) Status(ctx context.Context, userID string) (QuotaStatus, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return QuotaStatus{}, ErrUserNotFound
		}
		return QuotaStatus{}, err
	}
	return QuotaStatus{
		UsedDaily:   user.UsedDaily,
		DailyLimit:  user.DailyLimit,
		UsedWeekly:  user.UsedWeekly,
		WeeklyLimit: user.WeeklyLimit,
	}, nil
}

// applyResets aplica la politica de fronteras sobre una copia de los
// contadores. Frontera diaria: cambio de fecha calendario en UTC. Frontera
// semanal: 7 dias transcurridos desde lastReset. Las dos pruebas son
// independientes. Un lastReset ausente cuenta como frontera cruzada.
func applyResets(usedDaily, usedWeekly int, lastReset *time.Time, now time.Time) (int, int, time.Time, bool) {
	if lastReset == nil {
		return 0, 0, now, true
	}

	last := lastReset.UTC()
	newDay := !sameCalendarDay(now, last)
	newWeek := now.Sub(last) >= weeklyWindow

	if newDay {
		usedDaily = 0
	}
	if newWeek {
		usedWeekly = 0
	}
	if newDay || newWeek {
		return usedDaily, usedWeekly, now, true
	}
	return usedDaily, usedWeekly, last, false
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (s *QuotaService) lockFor(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}
