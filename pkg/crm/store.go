package crm

import (
	"context"
	"errors"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUnknownKind    = errors.New("unknown record kind")
)

// RecordStore is the read-only CRM boundary. Each call returns at most the
// configured record limit.
type RecordStore interface {
	GetLeads(ctx context.Context) ([]Record, error)
	GetOpportunities(ctx context.Context) ([]Record, error)
}

// StaticStore serves fixed slices. Err, when set, is returned by both getters.
type StaticStore struct {
	Leads         []Record
	Opportunities []Record
	Err           error
}

var _ RecordStore = (*StaticStore)(nil)

func (s *StaticStore) GetLeads(ctx context.Context) ([]Record, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Leads, nil
}

func (s *StaticStore) GetOpportunities(ctx context.Context) ([]Record, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Opportunities, nil
}

// FindByID scans records for a matching Id.
func FindByID(records []Record, id string) (Record, error) {
	for _, r := range records {
		if r.ID() == id {
			return r, nil
		}
	}
	return nil, ErrRecordNotFound
}

func limitRecords(records []Record, limit int) []Record {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}
