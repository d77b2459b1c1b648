package handlers

import (
	"github.com/hermahq/herma-backend/internal/app/service/statistics"
	"github.com/hermahq/herma-backend/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespListSubscriptions wraps ListSubscriptionsResponse in the standard envelope.
type RespListSubscriptions struct {
	Code    response.APIResponseCode  `json:"code"`
	Message string                    `json:"message"`
	Data    ListSubscriptionsResponse `json:"data"`
}

// RespSubscriberStatistic wraps SubscriberStatisticResponse in the standard envelope.
type RespSubscriberStatistic struct {
	Code    response.APIResponseCode               `json:"code"`
	Message string                                 `json:"message"`
	Data    statistics.SubscriberStatisticResponse `json:"data"`
}
