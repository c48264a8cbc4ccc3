package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore reads leads.json and opportunities.json from a fixtures directory.
// Each file holds a JSON array of records.
type FileStore struct {
	Dir   string
	Limit int
}

var _ RecordStore = (*FileStore)(nil)

func NewFileStore(dir string, limit int) *FileStore {
	return &FileStore{Dir: dir, Limit: limit}
}

func (f *FileStore) GetLeads(ctx context.Context) ([]Record, error) {
	return f.load(ctx, "leads.json")
}

func (f *FileStore) GetOpportunities(ctx context.Context) ([]Record, error) {
	return f.load(ctx, "opportunities.json")
}

func (f *FileStore) load(ctx context.Context, name string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(f.Dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return limitRecords(records, f.Limit), nil
}
