package analyze

import (
	"context"

	"github.com/fenchurch-labs/corep-assistant/internal/model"
	"github.com/fenchurch-labs/corep-assistant/pkg/anthropic"
)

type searchCall struct {
	query    string
	template string
	topK     int
}

// mockSearcher implements Searcher for testing.
type mockSearcher struct {
	paragraphs []model.RetrievedParagraph
	err        error
	calls      []searchCall
}

func (m *mockSearcher) Search(_ context.Context, query, template string, topK int) ([]model.RetrievedParagraph, error) {
	m.calls = append(m.calls, searchCall{query, template, topK})
	if m.err != nil {
		return nil, m.err
	}
	return m.paragraphs, nil
}

// mockLLM implements anthropic.Client. Errors in errs are returned one per
// call before resp takes over; err alone fails every call.
type mockLLM struct {
	resp     *anthropic.MessageResponse
	err      error
	errs     []error
	requests []anthropic.MessageRequest
}

func (m *mockLLM) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.requests = append(m.requests, req)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	} else if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

// mockAuditStore implements audit.Store for testing.
type mockAuditStore struct {
	created []*model.Analysis
	err     error
}

func (m *mockAuditStore) CreateAnalysis(_ context.Context, analysis *model.Analysis) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, analysis)
	return nil
}
