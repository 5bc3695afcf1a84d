package cnml

import (
	"context"
)

// MockClient is a mock implementation of Client for testing
type MockClient struct {
	MockOutput []byte
	MockError  error
	Areas      []string // areas requested, in order
}

func (m *MockClient) Fetch(ctx context.Context, area string) ([]byte, error) {
	m.Areas = append(m.Areas, area)
	return m.MockOutput, m.MockError
}
