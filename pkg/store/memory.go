package store

import (
	"context"

	"charsmith/pkg/utils"
)

// Memory is a process-local Storage.
type Memory struct {
	data *utils.SyncMap[map[string]string, string, string]
}

func NewMemory() *Memory {
	return &Memory{data: utils.NewSyncMap[map[string]string]()}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.data.Load(key)
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.data.Store(key, value)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.data.Delete(key)
	return nil
}
