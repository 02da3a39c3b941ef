package client

import (
	"context"
	"io"

	"github.com/agriai/agrisync/internal/client/models"
)

// Client is the remote history/prediction/delete API used by the engine.
// It is stateless request/response; the bearer token is read per request.
type Client interface {
	// History returns the authoritative diagnosis list for the current account.
	History(ctx context.Context) ([]models.RemoteDiagnosis, error)

	// Predict uploads an image for diagnosis by the remote model.
	Predict(ctx context.Context, in PredictInput) (*models.RemoteDiagnosis, error)

	// Delete removes a diagnosis by its remote id.
	Delete(ctx context.Context, remoteID string) error
}

// PredictInput is the multipart prediction request.
type PredictInput struct {
	Image       io.Reader
	FileName    string
	ContentType string
	CropType    string
	Symptoms    string
	Location    string
}

// TokenSource supplies the current bearer token; "" means signed out.
type TokenSource interface {
	Token() string
}
