package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

// LeadFile é o File Store: um array JSON de FileLead.
type LeadFile struct {
	blob Blob
}

func NewLeadFile(blob Blob) *LeadFile {
	return &LeadFile{blob: blob}
}

func (f *LeadFile) Name() string { return f.blob.Name() }

func (f *LeadFile) Load(ctx context.Context) ([]entity.FileLead, error) {
	data, err := f.blob.Read(ctx)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []entity.FileLead{}, nil
	}

	var leads []entity.FileLead
	if err := json.Unmarshal(data, &leads); err != nil {
		return nil, fmt.Errorf("arquivo %s corrompido: %w", f.blob.Name(), err)
	}
	return leads, nil
}

func (f *LeadFile) Save(ctx context.Context, leads []entity.FileLead) error {
	if leads == nil {
		leads = []entity.FileLead{}
	}
	data, err := encodeJSON(leads)
	if err != nil {
		return err
	}
	return f.blob.Write(ctx, data)
}

// encodeJSON: indentado, sem escapar HTML/acentos.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("erro ao serializar JSON: %w", err)
	}
	return buf.Bytes(), nil
}
