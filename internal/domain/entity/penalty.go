package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/report-moderation/internal/domain/valueobject"
)

// PenaltyPolicy — параметры лестницы наказаний за ложные жалобы.
type PenaltyPolicy struct {
	PendingCap            int
	TempBanThreshold      int
	PermanentBanThreshold int
	TempBanDuration       time.Duration
	BanWindow             valueobject.BanWindowMode
}

func DefaultPenaltyPolicy() PenaltyPolicy {
	return PenaltyPolicy{
		PendingCap:            3,
		TempBanThreshold:      3,
		PermanentBanThreshold: 5,
		TempBanDuration:       7 * 24 * time.Hour,
		BanWindow:             valueobject.BanWindowReset,
	}
}

// PenaltyState — счётчик предупреждений и состояние блокировки репортера.
// Статус блокировки не хранится отдельно, а вычисляется из полей и текущего времени.
type PenaltyState struct {
	UserID              uuid.UUID
	WarningCount        int
	BanUntil            *time.Time
	IsPermanentlyBanned bool
	UpdatedAt           time.Time
}

func NewPenaltyState(userID uuid.UUID) *PenaltyState {
	return &PenaltyState{UserID: userID}
}

// BanChange описывает, как изменилась блокировка после операции.
type BanChange string

const (
	BanUnchanged BanChange = ""
	BanTemporary BanChange = "temporary"
	BanPermanent BanChange = "permanent"
	BanLifted    BanChange = "lifted"
)

func (s *PenaltyState) IsBanned(now time.Time) bool {
	return s.ActiveBan(now) != valueobject.DenialNone
}

// ActiveBan возвращает причину блокировки; постоянная блокировка важнее временной.
func (s *PenaltyState) ActiveBan(now time.Time) valueobject.DenialCode {
	if s.IsPermanentlyBanned {
		return valueobject.DenialPermanentBan
	}
	if s.BanUntil != nil && s.BanUntil.After(now) {
		return valueobject.DenialTempBan
	}
	return valueobject.DenialNone
}

// ApplyFalseReport увеличивает счётчик на одно предупреждение и пересчитывает блокировку.
func (s *PenaltyState) ApplyFalseReport(p PenaltyPolicy, now time.Time) BanChange {
	s.WarningCount++
	s.UpdatedAt = now

	switch {
	case s.WarningCount >= p.PermanentBanThreshold:
		s.BanUntil = nil
		if s.IsPermanentlyBanned {
			return BanUnchanged
		}
		s.IsPermanentlyBanned = true
		return BanPermanent
	case s.WarningCount >= p.TempBanThreshold:
		if s.IsPermanentlyBanned {
			return BanUnchanged
		}
		start := now
		if p.BanWindow == valueobject.BanWindowExtend && s.BanUntil != nil && s.BanUntil.After(now) {
			start = *s.BanUntil
		}
		until := start.Add(p.TempBanDuration)
		s.BanUntil = &until
		return BanTemporary
	}
	return BanUnchanged
}

// Reduce уменьшает счётчик (не ниже нуля). Это единственный путь,
// которым снимается постоянная блокировка.
func (s *PenaltyState) Reduce(p PenaltyPolicy, amount int, now time.Time) BanChange {
	if amount <= 0 {
		return BanUnchanged
	}
	wasBanned := s.IsBanned(now)

	s.WarningCount -= amount
	if s.WarningCount < 0 {
		s.WarningCount = 0
	}
	s.UpdatedAt = now

	if s.IsPermanentlyBanned && s.WarningCount < p.PermanentBanThreshold {
		s.IsPermanentlyBanned = false
	}
	if !s.IsPermanentlyBanned && s.WarningCount < p.TempBanThreshold {
		s.BanUntil = nil
	}

	if wasBanned && !s.IsBanned(now) {
		return BanLifted
	}
	return BanUnchanged
}

type PenaltyEventKind string

const (
	PenaltyEventFalseReport PenaltyEventKind = "false_report"
	PenaltyEventReduction   PenaltyEventKind = "reduction"
)

// PenaltyEvent — запись журнала изменений штрафов; журнал только дополняется.
type PenaltyEvent struct {
	ID                  uuid.UUID
	UserID              uuid.UUID
	Kind                PenaltyEventKind
	Delta               int
	WarningCount        int
	BanUntil            *time.Time
	IsPermanentlyBanned bool
	ReportID            *uuid.UUID
	AdminID             *uuid.UUID
	CreatedAt           time.Time
}

// Snapshot фиксирует текущее состояние в событии журнала.
func (s *PenaltyState) Snapshot(kind PenaltyEventKind, delta int, reportID, adminID *uuid.UUID, now time.Time) *PenaltyEvent {
	var banUntil *time.Time
	if s.BanUntil != nil {
		v := *s.BanUntil
		banUntil = &v
	}
	return &PenaltyEvent{
		ID:                  uuid.New(),
		UserID:              s.UserID,
		Kind:                kind,
		Delta:               delta,
		WarningCount:        s.WarningCount,
		BanUntil:            banUntil,
		IsPermanentlyBanned: s.IsPermanentlyBanned,
		ReportID:            reportID,
		AdminID:             adminID,
		CreatedAt:           now,
	}
}

// Clone возвращает независимую копию состояния.
func (s *PenaltyState) Clone() *PenaltyState {
	c := *s
	if s.BanUntil != nil {
		v := *s.BanUntil
		c.BanUntil = &v
	}
	return &c
}
