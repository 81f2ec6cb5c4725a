// Package inference dispatches model calls to the provider that serves each
// model, according to the model's declared input capability.
package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Lllllllleong/architecturereview/internal/errs"
	"github.com/Lllllllleong/architecturereview/internal/metrics"
)

// Image is an inline raster image attached to a request.
type Image struct {
	Data     []byte
	MIMEType string
}

// Request is a provider-neutral model call. Document carries a PDF for
// native-document models; Images carries rasters for any family.
type Request struct {
	SystemPrompt string
	Prompt       string
	Document     []byte
	Images       []Image
	MaxTokens    int
	Temperature  float32
	JSONResponse bool
}

// Usage is the token usage reported by a provider.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is a model's text output. Usage is nil when the provider did not
// report it.
type Response struct {
	Text  string
	Usage *Usage
}

// Invoker performs one model call.
type Invoker interface {
	Invoke(ctx context.Context, modelID string, req Request) (*Response, error)
}

// Router resolves each model through the catalog and forwards the call to the
// provider registered for it.
type Router struct {
	catalog   *Catalog
	providers map[Provider]Invoker
}

// NewRouter returns a router over catalog. Providers are added with Register.
func NewRouter(catalog *Catalog) *Router {
	return &Router{catalog: catalog, providers: make(map[Provider]Invoker)}
}

// Register installs the invoker serving provider p.
func (r *Router) Register(p Provider, inv Invoker) {
	if inv != nil {
		r.providers[p] = inv
	}
}

// Catalog returns the router's model catalog.
func (r *Router) Catalog() *Catalog { return r.catalog }

// Invoke validates the request against the model's capability and calls the
// provider. Provider failures are wrapped as errs.ErrExternalCall.
func (r *Router) Invoke(ctx context.Context, modelID string, req Request) (*Response, error) {
	spec, err := r.catalog.Lookup(modelID)
	if err != nil {
		return nil, err
	}
	if len(req.Document) > 0 && spec.Capability != CapabilityNativeDocument {
		return nil, fmt.Errorf("%w: model %s cannot ingest documents", errs.ErrUnsupportedFormat, modelID)
	}
	inv, ok := r.providers[spec.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: no provider configured for %s (%s)", errs.ErrUnknownModel, modelID, spec.Provider)
	}

	start := time.Now()
	resp, err := inv.Invoke(ctx, modelID, req)
	if err != nil {
		metrics.ObserveInference(modelID, "error", time.Since(start))
		if errors.Is(err, errs.ErrExternalCall) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.External(modelID, err)
	}
	metrics.ObserveInference(modelID, "ok", time.Since(start))
	return resp, nil
}
