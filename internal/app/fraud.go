/**
 * @description
 * This file implements the fraud screen: a pure rule evaluation over a single
 * transaction plus a side-effecting recorder. The screen is advisory and runs
 * after the transaction has been committed; it never blocks or rolls back the
 * money movement. Each rule contributes its own reason and the rules are
 * non-exclusive, so one transaction can carry several reasons.
 *
 * @dependencies
 * - context, log, strings, time: Standard Go libraries.
 * - github.com/google/uuid: Flag identifiers.
 * - internal/domain, internal/store, pkg/rabbitmq.
 */

package app

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oakline/ledger-service/internal/domain"
	"github.com/oakline/ledger-service/internal/store"
	"github.com/oakline/ledger-service/pkg/rabbitmq"
)

// DefaultLargeAmountThreshold is the amount above which a transaction is
// flagged as unusually large.
const DefaultLargeAmountThreshold = 10000.0

const (
	reasonLargeAmount      = "Large transaction amount"
	reasonHighRiskMerchant = "High risk merchant"
)

// FraudScreen evaluates transactions against the screening rules and records
// flags for the ones that match.
type FraudScreen struct {
	repo                 store.Repository
	producer             rabbitmq.Publisher
	largeAmountThreshold float64
}

// NewFraudScreen creates a fraud screen. A zero threshold falls back to the
// default; producer may be nil when no broker is configured.
func NewFraudScreen(repo store.Repository, producer rabbitmq.Publisher, largeAmountThreshold float64) *FraudScreen {
	if largeAmountThreshold <= 0 {
		largeAmountThreshold = DefaultLargeAmountThreshold
	}
	return &FraudScreen{
		repo:                 repo,
		producer:             producer,
		largeAmountThreshold: largeAmountThreshold,
	}
}

// Evaluate runs the screening rules over one transaction. It is pure: no I/O,
// no mutation, deterministic for a given transaction.
func (f *FraudScreen) Evaluate(tx *domain.Transaction) (bool, []string) {
	var reasons []string

	if tx.Amount > f.largeAmountThreshold {
		reasons = append(reasons, reasonLargeAmount)
	}

	desc := strings.ToLower(tx.Description)
	if strings.Contains(desc, "crypto") || strings.Contains(desc, "gambling") {
		reasons = append(reasons, reasonHighRiskMerchant)
	}

	return len(reasons) > 0, reasons
}

// Screen evaluates the transaction and, when suspicious, persists a fraud flag
// and publishes a fraud alert. Recording failures are logged and swallowed:
// the screen must never undo or fail the committed transaction.
func (f *FraudScreen) Screen(ctx context.Context, tx *domain.Transaction) bool {
	suspicious, reasons := f.Evaluate(tx)
	if !suspicious {
		return false
	}

	flag := &domain.FraudFlag{
		ID:            uuid.New(),
		TransactionID: tx.ID,
		Reasons:       reasons,
		Timestamp:     tx.Timestamp,
		Status:        domain.FraudFlagStatusReviewNeeded,
	}
	if err := f.repo.AppendFraudFlag(ctx, flag); err != nil {
		log.Printf("level=error component=fraud_screen msg=\"failed to persist fraud flag\" transaction_id=%s err=%v", tx.ID, err)
	}

	if f.producer != nil {
		event := rabbitmq.FraudAlertEvent{
			TransactionID: tx.ID,
			Reasons:       reasons,
			Timestamp:     time.Now(),
		}
		if err := f.producer.PublishFraudAlert(ctx, event); err != nil {
			log.Printf("level=warn component=fraud_screen msg=\"failed to publish fraud alert\" transaction_id=%s err=%v", tx.ID, err)
		}
	}

	log.Printf("level=warn component=fraud_screen msg=\"transaction flagged for review\" transaction_id=%s reasons=%q", tx.ID, strings.Join(reasons, "; "))
	return true
}
