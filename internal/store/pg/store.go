package pg

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"signbridge/internal/store"
)

type Store struct {
	DB DB
}

func New(db DB) *Store { return &Store{DB: db} }

// EntityTypeKnown reports whether the doctype is registered with the host system.
func (s *Store) EntityTypeKnown(ctx context.Context, doctype string) (bool, error) {
	row := s.DB.QueryRow(ctx, `SELECT 1 FROM entity_types WHERE doctype=$1`, doctype)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) GetRecord(ctx context.Context, doctype, name string) (store.Record, bool, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT doctype, name, COALESCE(title,''), COALESCE(customer_email,''), COALESCE(customer_name,''),
		       COALESCE(supplier_email,''), COALESCE(supplier_name,''),
		       COALESCE(envelope_id,''), COALESCE(signature_status,''),
		       completed_at, declined_at, voided_at, signature_updated_at
		FROM signature_records WHERE doctype=$1 AND name=$2
	`, doctype, name)

	var r store.Record
	err := row.Scan(&r.Doctype, &r.Name, &r.Title, &r.CustomerEmail, &r.CustomerName,
		&r.SupplierEmail, &r.SupplierName, &r.EnvelopeID, &r.SignatureStatus,
		&r.CompletedAt, &r.DeclinedAt, &r.VoidedAt, &r.SignatureUpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Record{}, false, nil
		}
		return store.Record{}, false, err
	}
	return r, true, nil
}

// MarkEnvelopeSent persists the provider envelope id after a successful
// submission. This is the only record mutation in the outbound flow.
func (s *Store) MarkEnvelopeSent(ctx context.Context, in store.EnvelopeSentUpdate) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE signature_records
		SET envelope_id=$3, signature_status=$4, signature_updated_at=$5
		WHERE doctype=$1 AND name=$2
	`, in.Doctype, in.Name, in.EnvelopeID, in.Status, in.Now)
	return err
}

// ApplySignatureStatus applies a webhook-delivered status. Terminal stamps are
// derived from the status in SQL so a replayed notification converges to the
// same final state. Returns false when no matching record exists.
func (s *Store) ApplySignatureStatus(ctx context.Context, in store.SignatureStatusUpdate) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE signature_records
		SET signature_status=$3,
		    envelope_id=$4,
		    signature_updated_at=$5,
		    completed_at = CASE WHEN lower($3)='completed' THEN $5 ELSE completed_at END,
		    declined_at  = CASE WHEN lower($3)='declined'  THEN $5 ELSE declined_at  END,
		    voided_at    = CASE WHEN lower($3)='voided'    THEN $5 ELSE voided_at    END
		WHERE doctype=$1 AND name=$2
	`, in.Doctype, in.Name, in.Status, in.EnvelopeID, in.Now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (s *Store) InsertWebhookEvent(ctx context.Context, in store.WebhookEventInsert) error {
	b, _ := json.Marshal(in.Payload)
	_, err := s.DB.Exec(ctx, `
		INSERT INTO webhook_events (id, envelope_id, status, doctype, docname, payload_json, received_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, in.ID, nullIfEmpty(in.EnvelopeID), nullIfEmpty(in.Status), nullIfEmpty(in.Doctype), nullIfEmpty(in.Docname), b, in.ReceivedAt)
	return err
}

func (s *Store) GetTariff(ctx context.Context, name string) (store.Tariff, bool, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT name, tariff_name, type, value, COALESCE(service_fee,0), currency,
		       COALESCE(tax_identifier,''), COALESCE(cms_tariff_id,''), pushed_to_cms
		FROM tariffs WHERE name=$1
	`, name)

	var t store.Tariff
	err := row.Scan(&t.Name, &t.TariffName, &t.Type, &t.Value, &t.ServiceFee, &t.Currency,
		&t.TaxIdentifier, &t.CMSTariffID, &t.PushedToCMS)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Tariff{}, false, nil
		}
		return store.Tariff{}, false, err
	}
	return t, true, nil
}

func (s *Store) MarkTariffPushed(ctx context.Context, name, cmsTariffID string, now time.Time) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE tariffs SET cms_tariff_id=$2, pushed_to_cms=true, pushed_at=$3 WHERE name=$1
	`, name, cmsTariffID, now)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
