package libraries

import (
	"context"
	"encoding/base64"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// GCPClients holds the Google Cloud clients the service needs. A client is
// nil when nothing in the configuration asks for it.
type GCPClients struct {
	GCS          *storage.Client
	Vertex       *aiplatform.PredictionClient
	Credentials  *google.Credentials
	ProjectID    string
	VertexRegion string
}

type GCPOptions struct {
	CredentialsB64 string // base64 service account JSON, empty for application default credentials
	ProjectID      string
	VertexRegion   string
	WithGCS        bool
	WithVertex     bool
}

// GoogleCredentials decodes the base64 service account JSON or falls back to
// application default credentials.
func GoogleCredentials(ctx context.Context, encoded string) (*google.Credentials, error) {
	if encoded == "" {
		creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
		if err != nil {
			return nil, errors.Wrap(err, "find default credentials")
		}
		return creds, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode service account json")
	}
	creds, err := google.CredentialsFromJSON(ctx, decoded, cloudPlatformScope)
	if err != nil {
		return nil, errors.Wrap(err, "parse service account json")
	}
	return creds, nil
}

func NewGCPClients(ctx context.Context, opts GCPOptions) (*GCPClients, error) {
	clients := &GCPClients{
		ProjectID:    opts.ProjectID,
		VertexRegion: opts.VertexRegion,
	}
	if !opts.WithGCS && !opts.WithVertex {
		return clients, nil
	}

	creds, err := GoogleCredentials(ctx, opts.CredentialsB64)
	if err != nil {
		return nil, err
	}
	clients.Credentials = creds
	if clients.ProjectID == "" {
		clients.ProjectID = creds.ProjectID
	}
	credOpt := option.WithTokenSource(creds.TokenSource)

	if opts.WithGCS {
		clients.GCS, err = storage.NewClient(ctx, credOpt)
		if err != nil {
			return nil, errors.Wrap(err, "storage.NewClient")
		}
	}

	if opts.WithVertex {
		endpoint := option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", opts.VertexRegion))
		clients.Vertex, err = aiplatform.NewPredictionClient(ctx, credOpt, endpoint)
		if err != nil {
			clients.Close()
			return nil, errors.Wrap(err, "vertex.NewPredictionClient")
		}
	}

	return clients, nil
}

func (c *GCPClients) Close() {
	if c.GCS != nil {
		c.GCS.Close()
	}
	if c.Vertex != nil {
		c.Vertex.Close()
	}
}
