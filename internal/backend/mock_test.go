package backend

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/insightflow/internal/core/model"
	"github.com/agenthands/insightflow/internal/driver"
)

// MockDriver answers the session and element queries from memory.
type MockDriver struct {
	mu       sync.Mutex
	sessions map[string]map[string]any
	elements map[string][]map[string]any
	Queries  []string
	Err      error
}

func NewMockDriver() *MockDriver {
	return &MockDriver{
		sessions: make(map[string]map[string]any),
		elements: make(map[string][]map[string]any),
	}
}

func record(keys []string, values ...any) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]any) (neo4j.EagerResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, query)
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}

	switch query {
	case driver.SaveSessionQuery:
		m.sessions[params["uuid"].(string)] = params
		return neo4j.EagerResult{Records: []*neo4j.Record{record([]string{"uuid"}, params["uuid"])}}, nil

	case driver.GetSessionQuery:
		s, ok := m.sessions[params["uuid"].(string)]
		if !ok {
			return neo4j.EagerResult{}, nil
		}
		keys := []string{"uuid", "title", "transcript", "created_at"}
		return neo4j.EagerResult{Records: []*neo4j.Record{
			record(keys, s["uuid"], s["title"], s["transcript"], s["created_at"]),
		}}, nil

	case driver.DeleteSessionElementsQuery:
		delete(m.elements, params["session_uuid"].(string))
		return neo4j.EagerResult{}, nil

	case driver.SaveElementsQuery:
		id := params["session_uuid"].(string)
		if _, ok := m.sessions[id]; !ok {
			return neo4j.EagerResult{}, nil
		}
		for _, el := range params["elements"].([]any) {
			m.elements[id] = append(m.elements[id], el.(map[string]any))
		}
		return neo4j.EagerResult{}, nil

	case driver.GetSessionElementsQuery:
		els := append([]map[string]any(nil), m.elements[params["session_uuid"].(string)]...)
		sort.SliceStable(els, func(i, j int) bool {
			if els[i]["kind"] != els[j]["kind"] {
				return els[i]["kind"].(string) < els[j]["kind"].(string)
			}
			return els[i]["position"].(int64) < els[j]["position"].(int64)
		})
		var res neo4j.EagerResult
		for _, el := range els {
			res.Records = append(res.Records, record([]string{"kind", "position", "data"}, el["kind"], el["position"], el["data"]))
		}
		return res, nil
	}
	return neo4j.EagerResult{}, errors.New("unexpected query")
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

func (m *MockDriver) stored(sessionID string) []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.elements[sessionID]
}

type MockExtractor struct {
	Raw         model.RawElements
	Err         error
	Transcripts []string
}

func (m *MockExtractor) ExtractElements(ctx context.Context, transcript string) (model.RawElements, error) {
	m.Transcripts = append(m.Transcripts, transcript)
	return m.Raw, m.Err
}

type MockTranscriber struct {
	Submitted []model.Audio
}

func (m *MockTranscriber) Submit(ctx context.Context, audio model.Audio) (string, error) {
	m.Submitted = append(m.Submitted, audio)
	return "job-1", nil
}

func (m *MockTranscriber) Status(ctx context.Context, id string) (model.JobState, error) {
	return model.JobState{Status: model.JobCompleted, Progress: 100}, nil
}

func (m *MockTranscriber) Result(ctx context.Context, id string) (string, error) {
	return "transcribed " + id, nil
}
