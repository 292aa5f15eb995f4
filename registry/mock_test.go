package registry

import (
	"github.com/stretchr/testify/mock"

	"github.com/nvr-ai/go-hebench/api"
)

// mockBackend records every contract call.
type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Name() string { return "mock" }

func (m *mockBackend) InitEngine() (api.Handle, api.ErrorCode) {
	args := m.Called()
	return args.Get(0).(api.Handle), args.Get(1).(api.ErrorCode)
}

func (m *mockBackend) SubscribeBenchmarks(engine api.Handle) ([]api.Handle, api.ErrorCode) {
	args := m.Called(engine)
	return args.Get(0).([]api.Handle), args.Get(1).(api.ErrorCode)
}

func (m *mockBackend) DescribeBenchmark(engine, desc api.Handle) (api.BenchmarkDescriptor, []api.WorkloadParams, api.ErrorCode) {
	args := m.Called(engine, desc)
	return args.Get(0).(api.BenchmarkDescriptor), args.Get(1).([]api.WorkloadParams), args.Get(2).(api.ErrorCode)
}

func (m *mockBackend) CreateBenchmark(engine, desc api.Handle, params api.WorkloadParams) (api.Handle, api.ErrorCode) {
	args := m.Called(engine, desc, params)
	return args.Get(0).(api.Handle), args.Get(1).(api.ErrorCode)
}

func (m *mockBackend) InitBenchmark(bench api.Handle, concrete api.BenchmarkDescriptor) api.ErrorCode {
	return m.Called(bench, concrete).Get(0).(api.ErrorCode)
}

func (m *mockBackend) Encode(bench api.Handle, packs []api.DataPack) (api.Handle, api.ErrorCode) {
	args := m.Called(bench, packs)
	return args.Get(0).(api.Handle), args.Get(1).(api.ErrorCode)
}

func (m *mockBackend) Decode(bench, plain api.Handle) ([]api.ResultData, api.ErrorCode) {
	args := m.Called(bench, plain)
	return args.Get(0).([]api.ResultData), args.Get(1).(api.ErrorCode)
}

func (m *mockBackend) Encrypt(bench, plain api.Handle) (api.Handle, api.ErrorCode) {
	args := m.Called(bench, plain)
	return args.Get(0).(api.Handle), args.Get(1).(api.ErrorCode)
}

func (m *mockBackend) Decrypt(bench, cipher api.Handle) (api.Handle, api.ErrorCode) {
	args := m.Called(bench, cipher)
	return args.Get(0).(api.Handle), args.Get(1).(api.ErrorCode)
}

func (m *mockBackend) Load(bench api.Handle, locals []api.Handle) (api.Handle, api.ErrorCode) {
	args := m.Called(bench, locals)
	return args.Get(0).(api.Handle), args.Get(1).(api.ErrorCode)
}

func (m *mockBackend) Store(bench, remote api.Handle) ([]api.Handle, api.ErrorCode) {
	args := m.Called(bench, remote)
	return args.Get(0).([]api.Handle), args.Get(1).(api.ErrorCode)
}

func (m *mockBackend) Operate(bench, remote api.Handle, indexers []api.ParameterIndexer) (api.Handle, api.ErrorCode) {
	args := m.Called(bench, remote, indexers)
	return args.Get(0).(api.Handle), args.Get(1).(api.ErrorCode)
}

func (m *mockBackend) DestroyHandle(h api.Handle) api.ErrorCode {
	return m.Called(h).Get(0).(api.ErrorCode)
}

func (m *mockBackend) ErrorDescription(code api.ErrorCode) string {
	return "mock error"
}

func (m *mockBackend) LastErrorDescription(engine api.Handle) string {
	return ""
}
