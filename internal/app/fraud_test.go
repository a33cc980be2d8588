package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/oakline/ledger-service/internal/domain"
	"github.com/oakline/ledger-service/pkg/rabbitmq"
)

// recordingProducer captures published events so tests can assert on them.
type recordingProducer struct {
	rabbitmq.EventProducerFallback
	fraudAlerts []rabbitmq.FraudAlertEvent
	auditEvents []rabbitmq.AuditEvent
}

func (r *recordingProducer) PublishFraudAlert(ctx context.Context, event rabbitmq.FraudAlertEvent) error {
	r.fraudAlerts = append(r.fraudAlerts, event)
	return nil
}

func (r *recordingProducer) PublishAuditEvent(ctx context.Context, event rabbitmq.AuditEvent) error {
	r.auditEvents = append(r.auditEvents, event)
	return nil
}

func sampleTransaction(amount float64, description string) *domain.Transaction {
	return &domain.Transaction{
		ID:          uuid.New(),
		AccountID:   uuid.New(),
		Amount:      amount,
		Kind:        domain.KindWithdrawal,
		Timestamp:   time.Now(),
		Description: description,
	}
}

func TestEvaluate_LargeAmount(t *testing.T) {
	screen := NewFraudScreen(newFakeRepo(), nil, 0)

	suspicious, reasons := screen.Evaluate(sampleTransaction(15000, "Withdrawal"))
	if !suspicious {
		t.Fatal("expected a 15000 transaction to be flagged")
	}
	if len(reasons) != 1 || reasons[0] != "Large transaction amount" {
		t.Fatalf("unexpected reasons %v", reasons)
	}
}

func TestEvaluate_ThresholdIsExclusive(t *testing.T) {
	screen := NewFraudScreen(newFakeRepo(), nil, 0)

	if suspicious, _ := screen.Evaluate(sampleTransaction(10000, "Withdrawal")); suspicious {
		t.Fatal("a transaction exactly at the threshold must not be flagged")
	}
}

func TestEvaluate_HighRiskMerchantKeywords(t *testing.T) {
	screen := NewFraudScreen(newFakeRepo(), nil, 0)

	for _, description := range []string{"casual gambling bet", "Crypto exchange top-up"} {
		suspicious, reasons := screen.Evaluate(sampleTransaction(50, description))
		if !suspicious {
			t.Fatalf("description %q should be flagged", description)
		}
		if len(reasons) != 1 || reasons[0] != "High risk merchant" {
			t.Fatalf("description %q: unexpected reasons %v", description, reasons)
		}
	}
}

func TestEvaluate_CleanTransaction(t *testing.T) {
	screen := NewFraudScreen(newFakeRepo(), nil, 0)

	suspicious, reasons := screen.Evaluate(sampleTransaction(50, "groceries"))
	if suspicious || reasons != nil {
		t.Fatalf("expected a clean result, got suspicious=%v reasons=%v", suspicious, reasons)
	}
}

func TestEvaluate_RulesAccumulate(t *testing.T) {
	screen := NewFraudScreen(newFakeRepo(), nil, 0)

	suspicious, reasons := screen.Evaluate(sampleTransaction(20000, "gambling winnings"))
	if !suspicious || len(reasons) != 2 {
		t.Fatalf("expected both rules to fire, got %v", reasons)
	}
}

func TestScreen_CustomThreshold(t *testing.T) {
	screen := NewFraudScreen(newFakeRepo(), nil, 500)

	if suspicious, _ := screen.Evaluate(sampleTransaction(501, "Deposit")); !suspicious {
		t.Fatal("expected the custom threshold to apply")
	}
}

func TestScreen_PersistsFlagAndPublishesAlert(t *testing.T) {
	repo := newFakeRepo()
	producer := &recordingProducer{}
	screen := NewFraudScreen(repo, producer, 0)
	tx := sampleTransaction(15000, "Withdrawal")

	if !screen.Screen(context.Background(), tx) {
		t.Fatal("expected the transaction to be flagged")
	}

	flags, _ := repo.ListFraudFlags(context.Background())
	if len(flags) != 1 {
		t.Fatalf("expected 1 persisted flag, got %d", len(flags))
	}
	if flags[0].TransactionID != tx.ID {
		t.Fatalf("flag references wrong transaction %s", flags[0].TransactionID)
	}
	if flags[0].Status != domain.FraudFlagStatusReviewNeeded {
		t.Fatalf("unexpected status %q", flags[0].Status)
	}

	if len(producer.fraudAlerts) != 1 {
		t.Fatalf("expected 1 fraud alert, got %d", len(producer.fraudAlerts))
	}
	if producer.fraudAlerts[0].TransactionID != tx.ID {
		t.Fatal("alert references wrong transaction")
	}
}

func TestScreen_CleanTransactionLeavesNoTrace(t *testing.T) {
	repo := newFakeRepo()
	producer := &recordingProducer{}
	screen := NewFraudScreen(repo, producer, 0)

	if screen.Screen(context.Background(), sampleTransaction(50, "groceries")) {
		t.Fatal("clean transaction must not be flagged")
	}
	if flags, _ := repo.ListFraudFlags(context.Background()); len(flags) != 0 {
		t.Fatalf("expected no persisted flags, got %d", len(flags))
	}
	if len(producer.fraudAlerts) != 0 {
		t.Fatal("expected no fraud alerts")
	}
}
