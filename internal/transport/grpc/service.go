package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

const BookingServiceName = "pawcare.booking.v1.BookingService"

type Slot struct {
	ProviderID string `json:"provider_id"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

type CheckSlotRequest struct {
	Slot
}

type CheckSlotResponse struct {
	Ok                    bool   `json:"ok"`
	Reason                string `json:"reason,omitempty"`
	ConflictAppointmentID string `json:"conflict_appointment_id,omitempty"`
}

type BookAppointmentRequest struct {
	Slot
	PetID string `json:"pet_id,omitempty"`
	Notes string `json:"notes,omitempty"`
}

type RescheduleAppointmentRequest struct {
	Slot
	AppointmentID string `json:"appointment_id"`
	PetID         string `json:"pet_id,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// BookingResponse answers BookAppointment and RescheduleAppointment. A
// rejected pre-check carries no appointment.
type BookingResponse struct {
	Precheck    CheckSlotResponse `json:"precheck"`
	Appointment *Appointment      `json:"appointment,omitempty"`
	AttemptID   string            `json:"attempt_id,omitempty"`
}

type Appointment struct {
	ID         string `json:"id"`
	ProviderID string `json:"provider_id"`
	OwnerID    string `json:"owner_id,omitempty"`
	PetID      string `json:"pet_id,omitempty"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Status     string `json:"status,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

type ListOpenSlotsRequest struct {
	ProviderID           string `json:"provider_id"`
	Date                 string `json:"date"`
	DurationMinutes      int32  `json:"duration_minutes"`
	StepMinutes          int32  `json:"step_minutes,omitempty"`
	ExcludeAppointmentID string `json:"exclude_appointment_id,omitempty"`
}

type OpenSlot struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type ListOpenSlotsResponse struct {
	Slots []OpenSlot `json:"slots"`
}

type ListAttemptsRequest struct {
	ProviderID  string     `json:"provider_id"`
	WindowStart *time.Time `json:"window_start,omitempty"`
	WindowEnd   *time.Time `json:"window_end,omitempty"`
}

type Attempt struct {
	ID            string    `json:"id"`
	ProviderID    string    `json:"provider_id"`
	UserID        string    `json:"user_id,omitempty"`
	Kind          string    `json:"kind"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	Precheck      string    `json:"precheck"`
	Outcome       string    `json:"outcome"`
	CreatedAt     time.Time `json:"created_at"`
}

type ListAttemptsResponse struct {
	Attempts []Attempt `json:"attempts"`
}

type BookingServiceServer interface {
	CheckSlot(ctx context.Context, req *CheckSlotRequest) (*CheckSlotResponse, error)
	BookAppointment(ctx context.Context, req *BookAppointmentRequest) (*BookingResponse, error)
	RescheduleAppointment(ctx context.Context, req *RescheduleAppointmentRequest) (*BookingResponse, error)
	ListOpenSlots(ctx context.Context, req *ListOpenSlotsRequest) (*ListOpenSlotsResponse, error)
	ListAttempts(ctx context.Context, req *ListAttemptsRequest) (*ListAttemptsResponse, error)
}

func RegisterBookingServiceServer(s grpc.ServiceRegistrar, srv BookingServiceServer) {
	s.RegisterService(&BookingServiceDesc, srv)
}

var BookingServiceDesc = grpc.ServiceDesc{
	ServiceName: BookingServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckSlot", Handler: unaryHandler("CheckSlot", BookingServiceServer.CheckSlot)},
		{MethodName: "BookAppointment", Handler: unaryHandler("BookAppointment", BookingServiceServer.BookAppointment)},
		{MethodName: "RescheduleAppointment", Handler: unaryHandler("RescheduleAppointment", BookingServiceServer.RescheduleAppointment)},
		{MethodName: "ListOpenSlots", Handler: unaryHandler("ListOpenSlots", BookingServiceServer.ListOpenSlots)},
		{MethodName: "ListAttempts", Handler: unaryHandler("ListAttempts", BookingServiceServer.ListAttempts)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pawcare/booking/v1/booking",
}

func fullMethod(method string) string {
	return "/" + BookingServiceName + "/" + method
}

func unaryHandler[Req, Resp any](method string, call func(BookingServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BookingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BookingServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// BookingServiceClient calls BookingService over the json codec.
type BookingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewBookingServiceClient(cc grpc.ClientConnInterface) *BookingServiceClient {
	return &BookingServiceClient{cc: cc}
}

func (c *BookingServiceClient) CheckSlot(ctx context.Context, in *CheckSlotRequest, opts ...grpc.CallOption) (*CheckSlotResponse, error) {
	out := new(CheckSlotResponse)
	if err := c.invoke(ctx, "CheckSlot", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookingServiceClient) BookAppointment(ctx context.Context, in *BookAppointmentRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	out := new(BookingResponse)
	if err := c.invoke(ctx, "BookAppointment", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookingServiceClient) RescheduleAppointment(ctx context.Context, in *RescheduleAppointmentRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	out := new(BookingResponse)
	if err := c.invoke(ctx, "RescheduleAppointment", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookingServiceClient) ListOpenSlots(ctx context.Context, in *ListOpenSlotsRequest, opts ...grpc.CallOption) (*ListOpenSlotsResponse, error) {
	out := new(ListOpenSlotsResponse)
	if err := c.invoke(ctx, "ListOpenSlots", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookingServiceClient) ListAttempts(ctx context.Context, in *ListAttemptsRequest, opts ...grpc.CallOption) (*ListAttemptsResponse, error) {
	out := new(ListAttemptsResponse)
	if err := c.invoke(ctx, "ListAttempts", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookingServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, fullMethod(method), in, out, opts...)
}
