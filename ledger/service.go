// Package ledger owns per-trainer available/pending balances and their
// append-only history. Every mutation updates the summary row and writes the
// matching history row inside one transaction; balance checks live in the
// UPDATE statements themselves (guarded by RowsAffected), so concurrent
// requests for the same trainer serialize at the storage layer.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marketformation/mf-backend/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Config struct {
	DefaultCurrency string
	MinPayoutCents  int64
	Locale          string
}

type Service struct {
	db      *gorm.DB
	cfg     Config
	printer *message.Printer
}

func NewService(db *gorm.DB, cfg Config) *Service {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "EUR"
	}
	if cfg.MinPayoutCents == 0 {
		cfg.MinPayoutCents = 5000
	}
	if cfg.Locale == "" {
		cfg.Locale = "fr"
	}

	return &Service{
		db:      db,
		cfg:     cfg,
		printer: message.NewPrinter(language.Make(cfg.Locale)),
	}
}

func (s *Service) Currency() string      { return s.cfg.DefaultCurrency }
func (s *Service) MinPayoutCents() int64 { return s.cfg.MinPayoutCents }

// EnsureSummary creates the zero-balance summary row for a trainer if it does
// not exist yet. Upsert semantics, safe under concurrent calls for the same
// trainer.
func (s *Service) EnsureSummary(trainerID string) (*models.PayoutsSummary, error) {
	if trainerID == "" {
		return nil, errors.New("trainer id is required")
	}
	return s.ensureSummary(s.db, trainerID, s.cfg.DefaultCurrency)
}

func (s *Service) ensureSummary(tx *gorm.DB, trainerID, currency string) (*models.PayoutsSummary, error) {
	row := models.PayoutsSummary{TrainerID: trainerID, Currency: currency}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trainer_id"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}

	var summary models.PayoutsSummary
	if err := tx.Where("trainer_id = ?", trainerID).First(&summary).Error; err != nil {
		return nil, err
	}
	return &summary, nil
}

// CreditSale credits a trainer for one sold line item: available += amount,
// one sale/available history row carrying the provenance meta. The ledger
// does not deduplicate deliveries; callers must check provenance first.
func (s *Service) CreditSale(trainerID string, amountCents int64, currency string, meta map[string]any) (*models.PayoutsHistory, error) {
	var entry *models.PayoutsHistory
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.CreditSaleTx(tx, trainerID, amountCents, currency, meta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// CreditSaleTx is CreditSale running inside the caller's transaction, so the
// caller can pair the credit atomically with its own bookkeeping (the webhook
// handler writes its provenance marker in the same transaction).
func (s *Service) CreditSaleTx(tx *gorm.DB, trainerID string, amountCents int64, currency string, meta map[string]any) (*models.PayoutsHistory, error) {
	if trainerID == "" {
		return nil, errors.New("trainer id is required")
	}
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	entry := &models.PayoutsHistory{
		ID:          uuid.New(),
		TrainerID:   trainerID,
		Type:        models.EntryTypeSale,
		Status:      models.EntryStatusAvailable,
		AmountCents: amountCents,
		Currency:    currency,
		Date:        time.Now(),
		Meta:        encodeMeta(meta),
	}

	if _, err := s.ensureSummary(tx, trainerID, currency); err != nil {
		return nil, err
	}

	res := tx.Model(&models.PayoutsSummary{}).
		Where("trainer_id = ?", trainerID).
		Update("available_cents", gorm.Expr("available_cents + ?", amountCents))
	if res.Error != nil {
		return nil, res.Error
	}

	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// RequestWithdrawal moves amount from available to pending and appends a
// withdraw/requested history row. The guarded UPDATE rejects requests above
// the available balance with no partial effect.
func (s *Service) RequestWithdrawal(trainerID string, amountCents int64) (*models.PayoutsHistory, error) {
	if trainerID == "" {
		return nil, errors.New("trainer id is required")
	}
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	entry := &models.PayoutsHistory{
		ID:          uuid.New(),
		TrainerID:   trainerID,
		Type:        models.EntryTypeWithdraw,
		Status:      models.EntryStatusRequested,
		AmountCents: amountCents,
		Date:        time.Now(),
		Meta:        "{}",
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PayoutsSummary{}).
			Where("trainer_id = ? AND available_cents >= ?", trainerID, amountCents).
			Updates(map[string]interface{}{
				"available_cents": gorm.Expr("available_cents - ?", amountCents),
				"pending_cents":   gorm.Expr("pending_cents + ?", amountCents),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientBalance
		}

		var summary models.PayoutsSummary
		if err := tx.Where("trainer_id = ?", trainerID).First(&summary).Error; err != nil {
			return err
		}
		entry.Currency = summary.Currency

		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Settle marks a requested withdrawal as paid out: pending -= amount and the
// entry flips to paid/paid with the settlement date stamped. Funds leave the
// ledger; nothing is credited back.
func (s *Service) Settle(entryID uuid.UUID) (*models.PayoutsHistory, error) {
	var entry models.PayoutsHistory

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entry, "id = ?", entryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntryNotFound
			}
			return err
		}
		if entry.Type != models.EntryTypeWithdraw || entry.Status != models.EntryStatusRequested {
			return ErrEntryNotRequested
		}

		res := tx.Model(&models.PayoutsSummary{}).
			Where("trainer_id = ? AND pending_cents >= ?", entry.TrainerID, entry.AmountCents).
			Update("pending_cents", gorm.Expr("pending_cents - ?", entry.AmountCents))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("pending balance out of sync for trainer %s", entry.TrainerID)
		}

		now := time.Now()
		res = tx.Model(&models.PayoutsHistory{}).
			Where("id = ? AND type = ? AND status = ?", entry.ID, models.EntryTypeWithdraw, models.EntryStatusRequested).
			Updates(map[string]interface{}{
				"type":   models.EntryTypePaid,
				"status": models.EntryStatusPaid,
				"date":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrEntryNotRequested
		}

		entry.Type = models.EntryTypePaid
		entry.Status = models.EntryStatusPaid
		entry.Date = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// HistoryEntry is a history row shaped for display: raw cents plus
// locale-formatted labels and the decoded provenance meta.
type HistoryEntry struct {
	ID          uuid.UUID      `json:"id"`
	Type        string         `json:"type"`
	Status      string         `json:"status"`
	AmountCents int64          `json:"amount"`
	AmountLabel string         `json:"amount_label"`
	Currency    string         `json:"currency"`
	Date        time.Time      `json:"date"`
	DateLabel   string         `json:"date_label"`
	Meta        map[string]any `json:"meta"`
}

// Summary returns the trainer's summary row (created lazily) and the most
// recent limit history entries, newest first.
func (s *Service) Summary(trainerID string, limit int) (*models.PayoutsSummary, []HistoryEntry, error) {
	summary, err := s.EnsureSummary(trainerID)
	if err != nil {
		return nil, nil, err
	}

	if limit <= 0 {
		limit = 20
	}

	var rows []models.PayoutsHistory
	err = s.db.Where("trainer_id = ?", trainerID).
		Order("date desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	entries := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, HistoryEntry{
			ID:          row.ID,
			Type:        row.Type,
			Status:      row.Status,
			AmountCents: row.AmountCents,
			AmountLabel: s.AmountLabel(row.AmountCents, row.Currency),
			Currency:    row.Currency,
			Date:        row.Date,
			DateLabel:   s.dateLabel(row.Date),
			Meta:        decodeMeta(row.Meta),
		})
	}
	return summary, entries, nil
}

func encodeMeta(meta map[string]any) string {
	if len(meta) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func decodeMeta(raw string) map[string]any {
	meta := map[string]any{}
	if raw == "" {
		return meta
	}
	_ = json.Unmarshal([]byte(raw), &meta)
	return meta
}
