package service

import (
	"context"
	"fmt"
	"time"

	"signbridge/internal/errs"
	"signbridge/internal/observability"
	"signbridge/internal/providers/cms"
	"signbridge/internal/store"
	"signbridge/internal/util"
)

type TariffStore interface {
	GetTariff(ctx context.Context, name string) (store.Tariff, bool, error)
	MarkTariffPushed(ctx context.Context, name, cmsTariffID string, now time.Time) error
}

type CMS interface {
	FetchChargePoints(ctx context.Context) ([]cms.ChargePoint, error)
	FetchTaxes(ctx context.Context) ([]cms.Tax, error)
	FetchConnectors(ctx context.Context, cpID string) ([]string, error)
	PushTariff(ctx context.Context, payload cms.TariffPayload) (string, error)
	AssignTariff(ctx context.Context, mappings []cms.TariffMapping) error
}

// TariffService pushes tariff records to the charge-point CMS.
type TariffService struct {
	Store TariffStore
	CMS   CMS
}

// PushTariff sends a tariff to the CMS and records the returned identifier.
func (s *TariffService) PushTariff(ctx context.Context, name string) (string, error) {
	t, found, err := s.Store.GetTariff(ctx, name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("tariff %s: %w", name, errs.ErrNotFound)
	}

	payload := cms.TariffPayload{
		Name:         t.TariffName,
		TaxID:        t.TaxIdentifier,
		CurrencyType: t.Currency,
		Numotype:     "ocpp",
		Services:     []cms.TariffService{},
	}
	if t.Type == "Energy" {
		payload.Services = append(payload.Services, cms.TariffService{Type: "energyInkWh", Rate: t.Value})
	}
	if t.ServiceFee > 0 {
		payload.Services = append(payload.Services, cms.TariffService{Type: "serviceFee", Rate: t.ServiceFee})
	}

	cmsID, err := s.CMS.PushTariff(ctx, payload)
	if err != nil {
		observability.CMSPush.WithLabelValues("error").Inc()
		return "", err
	}
	observability.CMSPush.WithLabelValues("ok").Inc()

	if err := s.Store.MarkTariffPushed(ctx, name, cmsID, util.NowUTC()); err != nil {
		return cmsID, fmt.Errorf("persist cms tariff id: %w", err)
	}
	return cmsID, nil
}

// AssignTariff maps already-pushed tariffs onto connectors.
func (s *TariffService) AssignTariff(ctx context.Context, mappings []cms.TariffMapping) error {
	valid := mappings[:0]
	for _, m := range mappings {
		if m.TariffID != "" && m.ChargePointID != "" && m.ConnectorID != "" {
			valid = append(valid, m)
		}
	}
	if len(valid) == 0 {
		return fmt.Errorf("no valid connector mappings: %w", errs.ErrValidation)
	}
	return s.CMS.AssignTariff(ctx, valid)
}
