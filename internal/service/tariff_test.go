package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signbridge/internal/errs"
	"signbridge/internal/providers/cms"
	"signbridge/internal/store"
)

type fakeTariffStore struct {
	tariffs map[string]store.Tariff
	markErr error

	markedName string
	markedID   string
}

func (f *fakeTariffStore) GetTariff(ctx context.Context, name string) (store.Tariff, bool, error) {
	t, ok := f.tariffs[name]
	return t, ok, nil
}

func (f *fakeTariffStore) MarkTariffPushed(ctx context.Context, name, cmsTariffID string, now time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.markedName = name
	f.markedID = cmsTariffID
	return nil
}

type fakeCMS struct {
	pushErr error

	pushed   []cms.TariffPayload
	assigned []cms.TariffMapping
}

func (f *fakeCMS) FetchChargePoints(ctx context.Context) ([]cms.ChargePoint, error) { return nil, nil }
func (f *fakeCMS) FetchTaxes(ctx context.Context) ([]cms.Tax, error)               { return nil, nil }
func (f *fakeCMS) FetchConnectors(ctx context.Context, cpID string) ([]string, error) {
	return nil, nil
}

func (f *fakeCMS) PushTariff(ctx context.Context, payload cms.TariffPayload) (string, error) {
	if f.pushErr != nil {
		return "", f.pushErr
	}
	f.pushed = append(f.pushed, payload)
	return "cms-tariff-1", nil
}

func (f *fakeCMS) AssignTariff(ctx context.Context, mappings []cms.TariffMapping) error {
	f.assigned = mappings
	return nil
}

func newTariffService() (*TariffService, *fakeTariffStore, *fakeCMS) {
	st := &fakeTariffStore{tariffs: map[string]store.Tariff{
		"TAR-001": {
			Name:          "TAR-001",
			TariffName:    "Day Rate",
			Type:          "Energy",
			Value:         0.42,
			ServiceFee:    1.5,
			Currency:      "EUR",
			TaxIdentifier: "tax-19",
		},
	}}
	c := &fakeCMS{}
	return &TariffService{Store: st, CMS: c}, st, c
}

func TestPushTariff(t *testing.T) {
	svc, st, c := newTariffService()

	id, err := svc.PushTariff(context.Background(), "TAR-001")
	require.NoError(t, err)
	require.Equal(t, "cms-tariff-1", id)

	require.Len(t, c.pushed, 1)
	p := c.pushed[0]
	assert.Equal(t, "Day Rate", p.Name)
	assert.Equal(t, "ocpp", p.Numotype)
	assert.Equal(t, "tax-19", p.TaxID)
	require.Len(t, p.Services, 2)
	assert.Equal(t, "energyInkWh", p.Services[0].Type)
	assert.Equal(t, 0.42, p.Services[0].Rate)
	assert.Equal(t, "serviceFee", p.Services[1].Type)
	assert.Equal(t, 1.5, p.Services[1].Rate)

	assert.Equal(t, "TAR-001", st.markedName)
	assert.Equal(t, "cms-tariff-1", st.markedID)
}

func TestPushTariffNoServiceFee(t *testing.T) {
	svc, st, c := newTariffService()
	tariff := st.tariffs["TAR-001"]
	tariff.ServiceFee = 0
	st.tariffs["TAR-001"] = tariff

	_, err := svc.PushTariff(context.Background(), "TAR-001")
	require.NoError(t, err)
	require.Len(t, c.pushed[0].Services, 1)
	assert.Equal(t, "energyInkWh", c.pushed[0].Services[0].Type)
}

func TestPushTariffNotFound(t *testing.T) {
	svc, _, _ := newTariffService()
	_, err := svc.PushTariff(context.Background(), "TAR-404")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPushTariffCMSFailure(t *testing.T) {
	svc, st, c := newTariffService()
	c.pushErr = errors.New("cms down")

	_, err := svc.PushTariff(context.Background(), "TAR-001")
	require.Error(t, err)
	assert.Empty(t, st.markedName)
}

func TestPushTariffPersistFailureReturnsID(t *testing.T) {
	svc, st, _ := newTariffService()
	st.markErr = errors.New("db down")

	id, err := svc.PushTariff(context.Background(), "TAR-001")
	require.Error(t, err)
	require.Equal(t, "cms-tariff-1", id)
}

func TestAssignTariffFiltersIncomplete(t *testing.T) {
	svc, _, c := newTariffService()

	err := svc.AssignTariff(context.Background(), []cms.TariffMapping{
		{TariffID: "cms-tariff-1", ChargePointID: "CP-1", ConnectorID: "1"},
		{TariffID: "cms-tariff-1", ChargePointID: "", ConnectorID: "2"},
	})
	require.NoError(t, err)
	require.Len(t, c.assigned, 1)
	assert.Equal(t, "CP-1", c.assigned[0].ChargePointID)
}

func TestAssignTariffNoValidMappings(t *testing.T) {
	svc, _, _ := newTariffService()

	err := svc.AssignTariff(context.Background(), []cms.TariffMapping{
		{TariffID: "", ChargePointID: "CP-1", ConnectorID: "1"},
	})
	require.ErrorIs(t, err, errs.ErrValidation)
}
