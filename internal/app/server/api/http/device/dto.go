package device

import "pxocore/internal/domain/device"

type registerInput struct {
	Body device.RegisterRequest
}

type registerOutput struct {
	Body device.Device
}

type listOutput struct {
	Body []device.Device
}

type updateStatusInput struct {
	ID   string `path:"id"`
	Body UpdateStatusRequest
}

type UpdateStatusRequest struct {
	IsOnline bool `json:"isOnline"`
}

type updateStatusOutput struct {
	Body struct {
		Status string `json:"status" example:"Ok"`
	}
}
