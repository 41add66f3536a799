package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/churchapp/backend/internal/events"
)

type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) LogChange(actorID int64, eventType, resource string, resourceID any, details map[string]any) {
	m.Called(actorID, eventType, resource, resourceID, details)
}

func (m *MockAuditLogger) LogDenied(actorID int64, eventType, resource string, resourceID any, reason string) {
	m.Called(actorID, eventType, resource, resourceID, reason)
}

// quietAudit accepts every audit call.
func quietAudit() *MockAuditLogger {
	m := &MockAuditLogger{}
	m.On("LogChange", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("LogDenied", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	return m
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// eventOfType matches a published event by its type.
func eventOfType(eventType string) any {
	return mock.MatchedBy(func(e events.Event) bool { return e.Type == eventType })
}

type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) Send(ctx context.Context, to, body string) error {
	args := m.Called(ctx, to, body)
	return args.Error(0)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
