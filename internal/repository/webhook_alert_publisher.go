package repository

import (
	"context"
	"time"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
	xhttp "FinSight/pkg/http"
)

// WebhookAlertPublisher posts retained anomalies to an HTTP endpoint as a
// single JSON batch. Used instead of, or alongside, the Kafka publisher when
// the downstream is a plain webhook.
type WebhookAlertPublisher struct {
	client *xhttp.Client
	url    string
}

func NewWebhookAlertPublisher(url string, timeout time.Duration) domrepo.AlertPublisher {
	return &WebhookAlertPublisher{
		client: xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithRetries(2)),
		url:    url,
	}
}

type webhookAlertBody struct {
	Count     int                    `json:"count"`
	Anomalies []models.AnomalyRecord `json:"anomalies"`
}

func (p *WebhookAlertPublisher) PublishAnomalies(ctx context.Context, anomalies []models.AnomalyRecord) error {
	if len(anomalies) == 0 {
		return nil
	}
	return p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    p.url,
		Body:   webhookAlertBody{Count: len(anomalies), Anomalies: anomalies},
	}, nil)
}

func (p *WebhookAlertPublisher) Close() error { return nil }

var _ domrepo.AlertPublisher = (*WebhookAlertPublisher)(nil)
