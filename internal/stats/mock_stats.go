package stats

import "github.com/stretchr/testify/mock"

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Incr(name string) {
	m.Called(name)
}

func (m *MockProvider) Decr(name string) {
	m.Called(name)
}

func (m *MockProvider) Set(name string, value int64) {
	m.Called(name, value)
}

func (m *MockProvider) RegisterMetric(name string) {
	m.Called(name)
}
