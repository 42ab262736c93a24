package appmanager

import (
	"context"
	"net/http"

	"CaseReview/internal/clio"
	"CaseReview/internal/config"
	"CaseReview/internal/jobs"
	"CaseReview/internal/storage"

	"go.uber.org/zap"
)

// ClioAPI is the Clio surface shared by the report and sync jobs.
type ClioAPI interface {
	jobs.ReportSource
	jobs.MatterWriter
}

// Deps carries what job constructors need. API and Backend are built on first
// use unless already set, so a sync run never touches storage settings.
type Deps struct {
	Config *config.Config
	File   *config.File
	Log    *zap.Logger

	API     ClioAPI
	Backend storage.Backend

	// OnRefresh receives rotated Clio credentials.
	OnRefresh func(clio.Credential)

	WorkbookPath string
	DryRun       bool
}

func (d *Deps) logger() *zap.Logger {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return d.Log
}

func (d *Deps) clioAPI() (ClioAPI, error) {
	if d.API != nil {
		return d.API, nil
	}
	c := d.Config.Clio
	httpClient := &http.Client{Timeout: c.HTTPTimeout}

	tokens := clio.NewTokenManager(clio.TokenConfig{
		TokenURL:     c.TokenURL(),
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RefreshToken: c.RefreshToken,
		AccessToken:  c.AccessToken,
		ExpiresAt:    c.ExpiresAt,
	}, httpClient)
	tokens.SetLogger(d.logger())
	tokens.OnRefresh = d.OnRefresh
	if err := tokens.Validate(); err != nil {
		return nil, err
	}

	client := clio.NewClient(tokens,
		clio.WithHTTPClient(httpClient),
		clio.WithLogger(d.logger()),
		clio.WithMaxAttempts(c.MaxAttempts),
		clio.WithMinSleep(c.MinSleep),
	)
	defaults, overrides, err := jobs.PageSpecs(c, d.File)
	if err != nil {
		return nil, err
	}
	d.API = clio.NewAPI(client, c.APIURL(), defaults, overrides)
	return d.API, nil
}

func (d *Deps) backend(ctx context.Context) (storage.Backend, error) {
	if d.Backend != nil {
		return d.Backend, nil
	}
	b, err := storage.New(ctx, d.Config, d.logger())
	if err != nil {
		return nil, err
	}
	d.Backend = b
	return b, nil
}

func (d *Deps) owners() map[string]string {
	if d.File == nil || len(d.File.Owners) == 0 {
		return config.DefaultOwnerFolders
	}
	return d.File.Owners
}
