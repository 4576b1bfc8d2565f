// Package notification raises large-transaction and low-balance alerts
// when transactions are posted.
package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/domain/events"
	"github.com/amirasaad/finboard/pkg/eventbus"
	"github.com/amirasaad/finboard/pkg/repository"
	"github.com/google/uuid"
)

// Notifier delivers an alert somewhere.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert domain.Alert) error
}

// SettingsProvider returns the owner's settings, creating defaults if needed.
type SettingsProvider interface {
	Get(ctx context.Context, owner uuid.UUID) (*domain.Settings, error)
}

type Service struct {
	uow       repository.UnitOfWork
	settings  SettingsProvider
	notifiers []Notifier
	logger    *slog.Logger
	now       func() time.Time
}

func New(uow repository.UnitOfWork, settings SettingsProvider, logger *slog.Logger, notifiers ...Notifier) *Service {
	return &Service{
		uow:       uow,
		settings:  settings,
		notifiers: notifiers,
		logger:    logger.With("service", "notification"),
		now:       time.Now,
	}
}

// Subscribe evaluates alerts for every created transaction. The returned
// func removes the subscription.
func (s *Service) Subscribe(bus eventbus.Bus) func() {
	return bus.Register(events.TypeTransactionChanged, func(ctx context.Context, e eventbus.Event) error {
		evt, ok := events.As[events.TransactionChanged](e)
		if !ok || evt.Op != events.OpCreated {
			return nil
		}
		_, err := s.Evaluate(ctx, evt)
		return err
	})
}

// Evaluate raises the alerts evt calls for and hands them to every
// notifier. Notifier failures are logged, not returned.
func (s *Service) Evaluate(ctx context.Context, evt events.TransactionChanged) ([]domain.Alert, error) {
	st, err := s.settings.Get(ctx, evt.OwnerID)
	if err != nil {
		s.logger.Error("Loading settings for alerts failed", "owner", evt.OwnerID, "error", err)
		return nil, err
	}

	base := domain.Alert{
		OwnerID:       evt.OwnerID,
		AccountID:     evt.AccountID,
		TransactionID: evt.TransactionID,
		Kind:          evt.Kind,
		Currency:      st.Currency,
		Email:         st.NotifyEmail,
		CreatedAt:     s.now().UTC(),
	}

	var alerts []domain.Alert
	if st.NotifyLargeTransaction && evt.Amount.GreaterThanOrEqual(st.LargeTransactionThreshold) {
		a := base
		a.Type = domain.AlertLargeTransaction
		a.Amount = evt.Amount
		a.Threshold = st.LargeTransactionThreshold
		alerts = append(alerts, a)
	}
	if st.NotifyLowBalance {
		var summary domain.LedgerSummary
		err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
			var err error
			summary, err = uow.TransactionRepository().Summarize(ctx, evt.AccountID)
			return err
		})
		if err != nil {
			s.logger.Error("Loading balance for alerts failed", "account_id", evt.AccountID, "error", err)
			s.dispatch(ctx, alerts)
			return alerts, err
		}
		if summary.Total.LessThan(st.LowBalanceThreshold) {
			a := base
			a.Type = domain.AlertLowBalance
			a.Amount = summary.Total
			a.Threshold = st.LowBalanceThreshold
			alerts = append(alerts, a)
		}
	}
	s.dispatch(ctx, alerts)
	return alerts, nil
}

func (s *Service) dispatch(ctx context.Context, alerts []domain.Alert) {
	for _, a := range alerts {
		for _, n := range s.notifiers {
			if err := n.Notify(ctx, a); err != nil {
				s.logger.Error("Notifier failed", "notifier", n.Name(), "type", a.Type, "owner", a.OwnerID, "error", err)
			}
		}
	}
}

// LogNotifier writes alerts to the log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("notifier", "log")}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Notify(ctx context.Context, a domain.Alert) error {
	n.logger.WarnContext(ctx, "Alert raised",
		"type", a.Type,
		"owner", a.OwnerID,
		"account_id", a.AccountID,
		"kind", a.Kind,
		"amount", a.Amount.StringFixed(2),
		"threshold", a.Threshold.StringFixed(2),
		"currency", a.Currency,
	)
	return nil
}
