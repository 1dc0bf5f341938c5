// Package transfer moves resources in and out of the store as JSON or YAML
// documents.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"sigs.k8s.io/yaml"

	"github.com/ykvlv/assetwatch/internal/domain"
)

// Version is written into every export.
const Version = 1

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("unknown format")

// ParseFormat accepts json, yaml and yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Envelope is the document written by Export.
type Envelope struct {
	Version    int               `json:"version"`
	ExportedAt time.Time         `json:"exportedAt"`
	Resources  []domain.Resource `json:"resources"`
}

type Lister interface {
	ListResources(ctx context.Context) ([]domain.Resource, error)
}

type Upserter interface {
	UpsertResource(ctx context.Context, r *domain.Resource) error
}

// Export snapshots every resource.
func Export(ctx context.Context, src Lister, now time.Time) (Envelope, error) {
	resources, err := src.ListResources(ctx)
	if err != nil {
		return Envelope{}, fmt.Errorf("list resources: %w", err)
	}
	if resources == nil {
		resources = []domain.Resource{}
	}
	return Envelope{Version: Version, ExportedAt: now.UTC(), Resources: resources}, nil
}

// Encode writes env in the given format.
func Encode(w io.Writer, env Envelope, f Format) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	if f == FormatYAML {
		if data, err = yaml.JSONToYAML(data); err != nil {
			return fmt.Errorf("convert export to yaml: %w", err)
		}
	}
	_, err = w.Write(data)
	return err
}

// Decode reads an envelope or a bare resource list. YAML is converted to JSON
// first so both formats share the JSON field names and date parsing.
func Decode(r io.Reader, f Format) (Envelope, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Envelope{}, fmt.Errorf("read import: %w", err)
	}
	if f == FormatYAML {
		if data, err = yaml.YAMLToJSON(data); err != nil {
			return Envelope{}, fmt.Errorf("parse yaml: %w", err)
		}
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []domain.Resource
		if err := json.Unmarshal(data, &list); err != nil {
			return Envelope{}, fmt.Errorf("parse resources: %w", err)
		}
		return Envelope{Version: Version, Resources: list}, nil
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("parse envelope: %w", err)
	}
	if env.Version > Version {
		return Envelope{}, fmt.Errorf("unsupported export version %d", env.Version)
	}
	return env, nil
}

// ItemError reports one rejected resource.
type ItemError struct {
	Index int    `json:"index"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error"`
}

// Report summarises an import.
type Report struct {
	Imported int         `json:"imported"`
	Failed   int         `json:"failed"`
	Errors   []ItemError `json:"errors,omitempty"`
}

// Import validates and upserts each resource. Resources without an id get a
// new one. Notification settings are stored as given.
func Import(ctx context.Context, dst Upserter, resources []domain.Resource) (Report, error) {
	var rep Report
	for i := range resources {
		r := resources[i]
		if err := r.Validate(); err != nil {
			rep.Failed++
			rep.Errors = append(rep.Errors, ItemError{Index: i, Name: r.Name, Error: err.Error()})
			continue
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if err := dst.UpsertResource(ctx, &r); err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			rep.Failed++
			rep.Errors = append(rep.Errors, ItemError{Index: i, Name: r.Name, Error: err.Error()})
			continue
		}
		rep.Imported++
	}
	return rep, nil
}
