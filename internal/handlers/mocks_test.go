package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/churchapp/backend/internal/models"
	"github.com/churchapp/backend/internal/services"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Authenticate(ctx context.Context, token string) (*models.User, *models.Session, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*models.User)
	session, _ := args.Get(1).(*models.Session)
	return user, session, args.Error(2)
}

func (m *MockAuthService) CheckPhone(ctx context.Context, phoneNumber string) (services.PhoneStatus, error) {
	args := m.Called(ctx, phoneNumber)
	return args.Get(0).(services.PhoneStatus), args.Error(1)
}

func (m *MockAuthService) SendCode(ctx context.Context, phoneNumber string) error {
	return m.Called(ctx, phoneNumber).Error(0)
}

func (m *MockAuthService) VerifyCode(ctx context.Context, phoneNumber, code, deviceID string) (*services.LoginResult, error) {
	args := m.Called(ctx, phoneNumber, code, deviceID)
	result, _ := args.Get(0).(*services.LoginResult)
	return result, args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, token string, session *models.Session) error {
	return m.Called(ctx, token, session).Error(0)
}

func (m *MockAuthService) Sessions(ctx context.Context, userID int64) ([]models.Session, error) {
	args := m.Called(ctx, userID)
	sessions, _ := args.Get(0).([]models.Session)
	return sessions, args.Error(1)
}

type MockAttendanceService struct {
	mock.Mock
}

func (m *MockAttendanceService) CreateOrUpdate(ctx context.Context, actor services.Actor, in services.AttendanceInput) (*models.AttendanceRecord, error) {
	args := m.Called(ctx, actor, in)
	record, _ := args.Get(0).(*models.AttendanceRecord)
	return record, args.Error(1)
}

func (m *MockAttendanceService) Get(ctx context.Context, id int64) (*models.AttendanceRecord, error) {
	args := m.Called(ctx, id)
	record, _ := args.Get(0).(*models.AttendanceRecord)
	return record, args.Error(1)
}

func (m *MockAttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	args := m.Called(ctx, filter)
	records, _ := args.Get(0).([]models.AttendanceRecord)
	return records, args.Error(1)
}

func (m *MockAttendanceService) Delete(ctx context.Context, actor services.Actor, id int64) error {
	return m.Called(ctx, actor, id).Error(0)
}

type MockTravelService struct {
	mock.Mock
}

func (m *MockTravelService) Create(ctx context.Context, actor services.Actor, in services.TravelInput) (*models.TravelSchedule, error) {
	args := m.Called(ctx, actor, in)
	schedule, _ := args.Get(0).(*models.TravelSchedule)
	return schedule, args.Error(1)
}

func (m *MockTravelService) Update(ctx context.Context, actor services.Actor, id int64, in services.TravelInput) (*models.TravelSchedule, error) {
	args := m.Called(ctx, actor, id, in)
	schedule, _ := args.Get(0).(*models.TravelSchedule)
	return schedule, args.Error(1)
}

func (m *MockTravelService) Delete(ctx context.Context, actor services.Actor, id int64) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockTravelService) ListForUser(ctx context.Context, userID int64) ([]models.TravelSchedule, error) {
	args := m.Called(ctx, userID)
	schedules, _ := args.Get(0).([]models.TravelSchedule)
	return schedules, args.Error(1)
}

func (m *MockTravelService) ListAll(ctx context.Context, from, to models.Date) ([]models.TravelSchedule, error) {
	args := m.Called(ctx, from, to)
	schedules, _ := args.Get(0).([]models.TravelSchedule)
	return schedules, args.Error(1)
}

func (m *MockTravelService) FindOverlappingSchedules(ctx context.Context, userID int64, start, end models.Date, excludeID *int64) ([]models.TravelSchedule, error) {
	args := m.Called(ctx, userID, start, end, excludeID)
	schedules, _ := args.Get(0).([]models.TravelSchedule)
	return schedules, args.Error(1)
}

type MockGymService struct {
	mock.Mock
}

func (m *MockGymService) Create(ctx context.Context, actor services.Actor, date models.Date, start, end models.ClockTime) (*models.GymReservation, error) {
	args := m.Called(ctx, actor, date, start, end)
	reservation, _ := args.Get(0).(*models.GymReservation)
	return reservation, args.Error(1)
}

func (m *MockGymService) CheckIn(ctx context.Context, actor services.Actor, id int64) (*models.GymReservation, error) {
	args := m.Called(ctx, actor, id)
	reservation, _ := args.Get(0).(*models.GymReservation)
	return reservation, args.Error(1)
}

func (m *MockGymService) CheckOut(ctx context.Context, actor services.Actor, id int64) (*models.GymReservation, error) {
	args := m.Called(ctx, actor, id)
	reservation, _ := args.Get(0).(*models.GymReservation)
	return reservation, args.Error(1)
}

func (m *MockGymService) Cancel(ctx context.Context, actor services.Actor, id int64) (*models.GymReservation, error) {
	args := m.Called(ctx, actor, id)
	reservation, _ := args.Get(0).(*models.GymReservation)
	return reservation, args.Error(1)
}

func (m *MockGymService) TimeSlots(ctx context.Context, date models.Date) ([]models.TimeSlot, error) {
	args := m.Called(ctx, date)
	slots, _ := args.Get(0).([]models.TimeSlot)
	return slots, args.Error(1)
}

func (m *MockGymService) HasReservationOnDate(ctx context.Context, userID int64, date models.Date) (bool, error) {
	args := m.Called(ctx, userID, date)
	return args.Bool(0), args.Error(1)
}

func (m *MockGymService) ListForUser(ctx context.Context, userID int64, from models.Date) ([]models.GymReservation, error) {
	args := m.Called(ctx, userID, from)
	reservations, _ := args.Get(0).([]models.GymReservation)
	return reservations, args.Error(1)
}

func (m *MockGymService) ListByDate(ctx context.Context, date models.Date, includeCancelled bool) ([]models.GymReservation, error) {
	args := m.Called(ctx, date, includeCancelled)
	reservations, _ := args.Get(0).([]models.GymReservation)
	return reservations, args.Error(1)
}

func (m *MockGymService) CheckInQR(ctx context.Context, actor services.Actor, id int64) (string, string, error) {
	args := m.Called(ctx, actor, id)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockGymService) Today() models.Date {
	return m.Called().Get(0).(models.Date)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserService) List(ctx context.Context, filter services.UserFilter) ([]models.User, error) {
	args := m.Called(ctx, filter)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

func (m *MockUserService) Create(ctx context.Context, actor services.Actor, in services.CreateUserInput) (*models.User, error) {
	args := m.Called(ctx, actor, in)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, actor services.Actor, id int64, in services.UpdateUserInput) (*models.User, error) {
	args := m.Called(ctx, actor, id, in)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, actor services.Actor, id int64) error {
	return m.Called(ctx, actor, id).Error(0)
}

type MockCrashLogService struct {
	mock.Mock
}

func (m *MockCrashLogService) Create(ctx context.Context, userID *int64, in services.CrashLogInput) (*models.CrashLog, error) {
	args := m.Called(ctx, userID, in)
	entry, _ := args.Get(0).(*models.CrashLog)
	return entry, args.Error(1)
}

func (m *MockCrashLogService) List(ctx context.Context, limit int) ([]models.CrashLog, error) {
	args := m.Called(ctx, limit)
	entries, _ := args.Get(0).([]models.CrashLog)
	return entries, args.Error(1)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }
