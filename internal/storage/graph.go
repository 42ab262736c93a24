package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"CaseReview/internal/config"

	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
)

// GraphDrive uploads into a SharePoint document library through Microsoft
// Graph, authenticating with the client-credentials grant.
type GraphDrive struct {
	driveURL string
	http     *http.Client
	log      *zap.Logger
}

// NewGraphDrive returns a drive whose HTTP client fetches and caches app
// tokens for the configured tenant. ctx scopes token requests.
func NewGraphDrive(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) *GraphDrive {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL(),
		Scopes:       []string{config.DefaultGraphScope},
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GraphDrive{
		driveURL: fmt.Sprintf("%s/sites/%s/drives/%s", strings.TrimRight(cfg.GraphBaseURL, "/"), cfg.SiteID, cfg.DriveID),
		http:     cc.Client(ctx),
		log:      log,
	}
}

func (g *GraphDrive) Name() string {
	return config.StorageGraph
}

// EnsureFolder walks path one segment at a time and creates the segments that
// do not exist.
func (g *GraphDrive) EnsureFolder(ctx context.Context, path string) error {
	parent := ""
	for _, seg := range strings.Split(JoinPath(path), "/") {
		if seg == "" {
			continue
		}
		full := JoinPath(parent, seg)

		status, body, err := g.send(ctx, http.MethodGet, g.driveURL+"/root:/"+escapePath(full), "", nil)
		if err != nil {
			return err
		}
		switch {
		case status == http.StatusNotFound:
			if err := g.createFolder(ctx, parent, seg); err != nil {
				return err
			}
			g.log.Info("created drive folder", zap.String("path", full))
		case status < 200 || status > 299:
			return &UploadError{Op: "lookup", Path: full, Status: status, Body: body}
		}
		parent = full
	}
	return nil
}

func (g *GraphDrive) createFolder(ctx context.Context, parent, name string) error {
	target := g.driveURL + "/root/children"
	if parent != "" {
		target = g.driveURL + "/root:/" + escapePath(parent) + ":/children"
	}
	payload, err := json.Marshal(map[string]any{
		"name":                              name,
		"folder":                            map[string]any{},
		"@microsoft.graph.conflictBehavior": "replace",
	})
	if err != nil {
		return err
	}
	status, body, err := g.send(ctx, http.MethodPost, target, "application/json", payload)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return &UploadError{Op: "mkdir", Path: JoinPath(parent, name), Status: status, Body: body}
	}
	return nil
}

// Upload creates folder if needed and writes name into it, replacing any
// existing file.
func (g *GraphDrive) Upload(ctx context.Context, folder, name string, data []byte) error {
	if err := g.EnsureFolder(ctx, folder); err != nil {
		return err
	}
	path := JoinPath(folder, name)
	status, body, err := g.send(ctx, http.MethodPut, g.driveURL+"/root:/"+escapePath(path)+":/content", "application/octet-stream", data)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return &UploadError{Op: "upload", Path: path, Status: status, Body: body}
	}
	g.log.Info("uploaded file", zap.String("backend", g.Name()), zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

func (g *GraphDrive) send(ctx context.Context, method, target, contentType string, payload []byte) (int, string, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, "", err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return resp.StatusCode, string(body), nil
}

// escapePath percent-encodes each segment of a drive path.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
