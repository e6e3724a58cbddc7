package usecase

import (
	"context"
	"strings"

	"SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"
	xutil "SentiPulse/pkg/util"
)

// Catalog manages instruments and sources.
type Catalog struct {
	instruments domrepo.InstrumentStore
	sources     domrepo.SourceStore
}

func NewCatalog(instruments domrepo.InstrumentStore, sources domrepo.SourceStore) *Catalog {
	return &Catalog{instruments: instruments, sources: sources}
}

func (c *Catalog) CreateInstrument(ctx context.Context, req *models.CreateInstrumentRequest) (*models.Instrument, error) {
	req.Ticker = xutil.NormalizeTicker(req.Ticker)
	req.ISIN = strings.ToUpper(strings.TrimSpace(req.ISIN))
	if err := validateStruct(ctx, req); err != nil {
		return nil, err
	}
	inst := &models.Instrument{
		Name:   strings.TrimSpace(req.Name),
		Ticker: req.Ticker,
		Sector: strings.TrimSpace(req.Sector),
	}
	if req.ISIN != "" {
		isin := req.ISIN
		inst.ISIN = &isin
	}
	if err := c.instruments.Create(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

func (c *Catalog) Instruments(ctx context.Context) ([]*models.Instrument, error) {
	return c.instruments.List(ctx)
}

func (c *Catalog) Instrument(ctx context.Context, ticker string) (*models.Instrument, error) {
	return c.instruments.GetByTicker(ctx, xutil.NormalizeTicker(ticker))
}

func (c *Catalog) CreateSource(ctx context.Context, req *models.CreateSourceRequest) (*models.Source, error) {
	if err := validateStruct(ctx, req); err != nil {
		return nil, err
	}
	src := &models.Source{
		Name:            strings.TrimSpace(req.Name),
		Type:            req.Type,
		ReputationScore: req.ReputationScore,
		URL:             req.URL,
	}
	if err := c.sources.Create(ctx, src); err != nil {
		return nil, err
	}
	return src, nil
}

func (c *Catalog) Sources(ctx context.Context) ([]*models.Source, error) {
	return c.sources.List(ctx)
}

// SourceByName returns the named source, creating it with the given attributes when missing.
func (c *Catalog) SourceByName(ctx context.Context, name string, typ models.SourceType, url string) (*models.Source, error) {
	src, err := c.sources.GetByName(ctx, name)
	if err == nil {
		return src, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	src, err = c.CreateSource(ctx, &models.CreateSourceRequest{Name: name, Type: typ, URL: url})
	if isConflict(err) {
		return c.sources.GetByName(ctx, name)
	}
	return src, err
}

func (c *Catalog) UpdateReputation(ctx context.Context, req *models.UpdateReputationRequest) (*models.Source, error) {
	if err := validateStruct(ctx, req); err != nil {
		return nil, err
	}
	return c.sources.UpdateReputation(ctx, req.ID, *req.ReputationScore)
}
