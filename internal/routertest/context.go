// Package routertest provides a mock router.Context for handler and
// middleware tests.
package routertest

import (
	"context"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
)

// MockContext implements router.Context on top of mock.Mock
type MockContext struct {
	mock.Mock
}

var _ router.Context = (*MockContext)(nil)

// NewMockContext returns a context answering Context with
// context.Background unless a test overrides it.
func NewMockContext() *MockContext {
	ctx := &MockContext{}
	ctx.On("Context").Return(context.Background()).Maybe()
	return ctx
}

func (m *MockContext) Method() string {
	return m.Called().String(0)
}

func (m *MockContext) Path() string {
	return m.Called().String(0)
}

func (m *MockContext) Param(name string, defaultValue string) string {
	return m.Called(name, defaultValue).String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	return m.Called(key, defaultValue).Int(0)
}

func (m *MockContext) Query(name string, defaultValue string) string {
	return m.Called(name, defaultValue).String(0)
}

func (m *MockContext) QueryInt(name string, defaultValue int) int {
	return m.Called(name, defaultValue).Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	if v := args.Get(0); v != nil {
		return v.(map[string]string)
	}
	return nil
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	if v := args.Get(0); v != nil {
		return v.([]byte)
	}
	return nil
}

func (m *MockContext) Status(code int) router.ResponseWriter {
	m.Called(code)
	return m
}

func (m *MockContext) Send(body []byte) error {
	return m.Called(body).Error(0)
}

func (m *MockContext) JSON(code int, v any) error {
	return m.Called(code, v).Error(0)
}

func (m *MockContext) NoContent(code int) error {
	return m.Called(code).Error(0)
}

func (m *MockContext) Header(key string) string {
	return m.Called(key).String(0)
}

func (m *MockContext) SetHeader(key string, value string) router.ResponseWriter {
	m.Called(key, value)
	return m
}

func (m *MockContext) Set(key string, value any) {
	m.Called(key, value)
}

func (m *MockContext) Get(key string, def any) any {
	return m.Called(key, def).Get(0)
}

func (m *MockContext) GetString(key string, def string) string {
	return m.Called(key, def).String(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	return m.Called(key, def).Int(0)
}

func (m *MockContext) GetBool(key string, def bool) bool {
	return m.Called(key, def).Bool(0)
}

func (m *MockContext) Bind(v any) error {
	return m.Called(v).Error(0)
}

func (m *MockContext) Context() context.Context {
	return m.Called().Get(0).(context.Context)
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Next() error {
	return m.Called().Error(0)
}

// ExpectRedirect sets up the Location header and the bodiless status a
// handler answers a redirect with.
func (m *MockContext) ExpectRedirect(path string) {
	m.On("SetHeader", "Location", path).Return().Once()
	m.On("NoContent", mock.Anything).Return(nil).Once()
}
