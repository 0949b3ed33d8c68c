package handler

import (
	"video-redub/internal/service"
	"video-redub/internal/taskrunner"
)

type Handler struct {
	Service   *service.Service
	Submitter taskrunner.Submitter
}

func NewHandler(svc *service.Service, submitter taskrunner.Submitter) Handler {
	return Handler{
		Service:   svc,
		Submitter: submitter,
	}
}
