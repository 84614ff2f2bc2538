package admin

import (
	"context"

	"github.com/fjod/go_storefront/internal/domain"
	"google.golang.org/grpc"
)

const ServiceName = "storefront.admin.v1.OrderAdmin"

const (
	updateOrderStatusMethod = "/" + ServiceName + "/UpdateOrderStatus"
	listRecentOrdersMethod  = "/" + ServiceName + "/ListRecentOrders"
)

type UpdateOrderStatusRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type OrderResponse struct {
	Order *domain.Order `json:"order"`
}

type ListRecentOrdersRequest struct {
	Limit int `json:"limit"`
}

type ListRecentOrdersResponse struct {
	Orders []*domain.Order `json:"orders"`
}

// OrderAdminServer is the server API for the back-office order service.
type OrderAdminServer interface {
	UpdateOrderStatus(context.Context, *UpdateOrderStatusRequest) (*OrderResponse, error)
	ListRecentOrders(context.Context, *ListRecentOrdersRequest) (*ListRecentOrdersResponse, error)
}

func RegisterOrderAdminServer(s grpc.ServiceRegistrar, srv OrderAdminServer) {
	s.RegisterService(&OrderAdminServiceDesc, srv)
}

func updateOrderStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(UpdateOrderStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderAdminServer).UpdateOrderStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: updateOrderStatusMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderAdminServer).UpdateOrderStatus(ctx, req.(*UpdateOrderStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listRecentOrdersHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListRecentOrdersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderAdminServer).ListRecentOrders(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: listRecentOrdersMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderAdminServer).ListRecentOrders(ctx, req.(*ListRecentOrdersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// OrderAdminServiceDesc is written by hand: messages travel as JSON, so there is no generated code.
var OrderAdminServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "UpdateOrderStatus",
			Handler:    updateOrderStatusHandler,
		},
		{
			MethodName: "ListRecentOrders",
			Handler:    listRecentOrdersHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/admin/v1/order_admin",
}
