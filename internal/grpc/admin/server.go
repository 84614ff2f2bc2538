package admin

import (
	"context"
	"errors"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/service"
	"github.com/fjod/go_storefront/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type AdminService interface {
	UpdateOrderStatus(ctx context.Context, orderID string, to domain.OrderStatus) (*domain.Order, error)
	ListRecentOrders(ctx context.Context, limit int) ([]*domain.Order, error)
}

type Server struct {
	service AdminService
	log     *zap.Logger
}

func NewServer(svc AdminService, log *zap.Logger) *Server {
	return &Server{service: svc, log: log}
}

func (s *Server) UpdateOrderStatus(ctx context.Context, req *UpdateOrderStatusRequest) (*OrderResponse, error) {
	if req.OrderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	to, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	order, err := s.service.UpdateOrderStatus(ctx, req.OrderID, to)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &OrderResponse{Order: order}, nil
}

func (s *Server) ListRecentOrders(ctx context.Context, req *ListRecentOrdersRequest) (*ListRecentOrdersResponse, error) {
	if req.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must not be negative")
	}

	orders, err := s.service.ListRecentOrders(ctx, req.Limit)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &ListRecentOrdersResponse{Orders: orders}, nil
}

func (s *Server) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, service.Message(err))
	case errors.Is(err, service.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, service.Message(err))
	}
	logger.WithTrace(ctx, s.log).Error("admin call failed", zap.Error(err))
	return status.Error(codes.Internal, service.GenericMessage)
}
