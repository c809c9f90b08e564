package crdt

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"cortex/internal/logging"
	"cortex/internal/types"
)

// Transport pushes one delta to a remote peer (another agent's
// cortex instance, or a cloud sync relay). A real network transport
// returning an error here is what drives Push into Offline mode.
type Transport interface {
	Send(ctx context.Context, targetAgent string, payload []byte) error
}

// HTTPTransport posts a delta's encoded payload to a per-agent
// endpoint under BaseURL, the plain net/http client idiom used
// wherever this codebase needs outbound HTTP without a heavier
// framework.
type HTTPTransport struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPTransport builds an HTTPTransport with a sane request timeout.
func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{BaseURL: baseURL, Client: &http.Client{Timeout: 10 * time.Second}}
}

// Send POSTs payload to BaseURL/<targetAgent>/deltas. Any transport
// failure (DNS, connection refused, timeout, non-2xx status) is
// reported as KindCloudSyncNetwork, the kind Push uses to decide
// whether to fall back to Offline-mode buffering.
func (t *HTTPTransport) Send(ctx context.Context, targetAgent string, payload []byte) error {
	url := t.BaseURL + "/" + targetAgent + "/deltas"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return types.Wrap(types.KindCloudSyncNetwork, err, "build push request to %s", url)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return types.Wrap(types.KindCloudSyncNetwork, err, "push delta to %s", targetAgent)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return types.NewError(types.KindCloudSyncNetwork, "push to %s: status %d", targetAgent, resp.StatusCode)
	}
	return nil
}

// Push sends a local replica change to targetAgent over transport. On
// a KindCloudSyncNetwork failure it does not propagate the error to
// the caller: it buffers the delta in delta_queue (the same queue
// Receive uses for causally-not-yet-ready deltas) and returns nil, so
// a transient network outage degrades to Offline mode rather than
// failing the write. PushPending later re-sends whatever accumulates
// there once connectivity returns.
func (s *SyncEngine) Push(ctx context.Context, transport Transport, sourceAgent, targetAgent string, rep *Replica) error {
	log := logging.Get(logging.CategoryCRDT)

	payload, err := encodeReplica(rep)
	if err != nil {
		return err
	}

	if err := transport.Send(ctx, targetAgent, []byte(payload)); err != nil {
		if types.IsKind(err, types.KindCloudSyncNetwork) {
			log.Warnf("cloud sync unreachable, buffering delta for %s -> %s: %v", sourceAgent, targetAgent, err)
			return s.repo.EnqueueDelta(sourceAgent, targetAgent, rep.MemoryID, rep.Clock, payload)
		}
		return err
	}
	return nil
}

// PushPending retries every buffered outgoing delta on one sync edge
// against transport, marking each applied once it sends successfully.
// A failure partway through stops the drain (the remaining deltas stay
// queued for the next attempt) rather than reordering deliveries.
func (s *SyncEngine) PushPending(ctx context.Context, transport Transport, sourceAgent, targetAgent string) error {
	pending, err := s.repo.PendingDeltas(sourceAgent, targetAgent)
	if err != nil {
		return err
	}
	for _, d := range pending {
		if err := transport.Send(ctx, targetAgent, []byte(d.Payload)); err != nil {
			if types.IsKind(err, types.KindCloudSyncNetwork) {
				return nil
			}
			return err
		}
		if err := s.repo.MarkDeltaApplied(d.ID); err != nil {
			return err
		}
	}
	return nil
}
