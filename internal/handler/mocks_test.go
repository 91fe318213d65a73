package handler

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/parking-reservation/internal/model"
	"github.com/iliyamo/parking-reservation/internal/service"
)

type mockParking struct{ mock.Mock }

func (m *mockParking) Book(ctx context.Context, caller service.Caller, lotID uint64, vehicle string) (*model.Reservation, error) {
	args := m.Called(ctx, caller, lotID, vehicle)
	res, _ := args.Get(0).(*model.Reservation)
	return res, args.Error(1)
}

func (m *mockParking) Release(ctx context.Context, caller service.Caller, id uint64) (*model.Reservation, error) {
	args := m.Called(ctx, caller, id)
	res, _ := args.Get(0).(*model.Reservation)
	return res, args.Error(1)
}

func (m *mockParking) GetReservation(ctx context.Context, caller service.Caller, id uint64) (*model.Reservation, error) {
	args := m.Called(ctx, caller, id)
	res, _ := args.Get(0).(*model.Reservation)
	return res, args.Error(1)
}

func (m *mockParking) ListReservations(ctx context.Context, caller service.Caller, f model.ReservationFilter) ([]model.Reservation, error) {
	args := m.Called(ctx, caller, f)
	list, _ := args.Get(0).([]model.Reservation)
	return list, args.Error(1)
}

func (m *mockParking) CreateLot(ctx context.Context, in service.LotInput) (*model.ParkingLot, error) {
	args := m.Called(ctx, in)
	lot, _ := args.Get(0).(*model.ParkingLot)
	return lot, args.Error(1)
}

func (m *mockParking) ResizeLot(ctx context.Context, lotID uint64, upd service.LotUpdate) (*model.ParkingLot, error) {
	args := m.Called(ctx, lotID, upd)
	lot, _ := args.Get(0).(*model.ParkingLot)
	return lot, args.Error(1)
}

func (m *mockParking) DeleteLot(ctx context.Context, lotID uint64) error {
	return m.Called(ctx, lotID).Error(0)
}

func (m *mockParking) GetLot(ctx context.Context, id uint64) (*model.ParkingLot, error) {
	args := m.Called(ctx, id)
	lot, _ := args.Get(0).(*model.ParkingLot)
	return lot, args.Error(1)
}

func (m *mockParking) ListLots(ctx context.Context) ([]model.ParkingLot, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]model.ParkingLot)
	return list, args.Error(1)
}

func (m *mockParking) ListSpots(ctx context.Context, f model.SpotFilter) ([]model.ParkingSpot, error) {
	args := m.Called(ctx, f)
	list, _ := args.Get(0).([]model.ParkingSpot)
	return list, args.Error(1)
}

func (m *mockParking) GetSpotDetail(ctx context.Context, spotID uint64) (*service.SpotDetail, error) {
	args := m.Called(ctx, spotID)
	d, _ := args.Get(0).(*service.SpotDetail)
	return d, args.Error(1)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Create(ctx context.Context, fullName, email, password, role string, cost int) (uint64, error) {
	args := m.Called(ctx, fullName, email, password, role, cost)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) StoreRefresh(ctx context.Context, userID uint64, hash string, exp time.Time) error {
	return m.Called(ctx, userID, hash, exp).Error(0)
}

func (m *mockTokens) ValidateRefresh(ctx context.Context, hash string) (uint64, error) {
	args := m.Called(ctx, hash)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockTokens) RevokeByHash(ctx context.Context, hash string) error {
	return m.Called(ctx, hash).Error(0)
}

func (m *mockTokens) RevokeAllForUser(ctx context.Context, userID uint64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockTokens) Rotate(ctx context.Context, userID uint64, oldHash, newHash string, exp time.Time) error {
	return m.Called(ctx, userID, oldHash, newHash, exp).Error(0)
}
