package usecase

import (
	"context"
	"errors"

	"github.com/jaennil/guide_helper/backend/offline/internal/entity"
)

var ErrStaticAsset = errors.New("static asset precache failed")

// Fetcher performs a network request. Only transport failures are errors;
// any HTTP status is returned as a response.
type Fetcher interface {
	Fetch(ctx context.Context, req *entity.Request) (*entity.Response, error)
}

type NotificationSink interface {
	Publish(e entity.ProgressEvent)
}

// Controller is whatever routes client requests; Claim makes it start
// answering through the interceptor.
type Controller interface {
	Claim(ctx context.Context) error
}
