package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	apiv1alpha1 "github.com/apollo/readiness/api/azure.com/v1alpha1"
	"github.com/apollo/readiness/pkg/metrics"
	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	defaultHeartbeatSeconds = 15
	desiredETagHeader       = "ETag"
	deviceTokenHeader       = "X-Device-Token"
	maxReportBodyBytes      = 4 << 20
	shutdownTimeout         = 5 * time.Second

	// DeviceRefNameField indexes DeviceProcesses by the device they are bound to.
	DeviceRefNameField = "spec.deviceRef.name"
)

// DesiredItem describes a desired DeviceProcess instance for a device.
type DesiredItem struct {
	UID        string                        `json:"uid,omitempty"`
	Namespace  string                        `json:"namespace"`
	Name       string                        `json:"name"`
	Generation int64                         `json:"generation"`
	Spec       apiv1alpha1.DeviceProcessSpec `json:"spec"`
	SpecHash   string                        `json:"specHash"`
}

// DesiredResponse is returned to an agent polling for desired state.
type DesiredResponse struct {
	DeviceName               string        `json:"deviceName"`
	HeartbeatIntervalSeconds int           `json:"heartbeatIntervalSeconds"`
	Items                    []DesiredItem `json:"items"`
}

// ReportRequest is sent by the agent with heartbeat and observations.
type ReportRequest struct {
	AgentVersion string        `json:"agentVersion"`
	Timestamp    string        `json:"timestamp"`
	Heartbeat    bool          `json:"heartbeat"`
	Observations []Observation `json:"observations"`
}

// Observation reports the agent's view of a single DeviceProcess. Nil fields were not
// observed and leave the corresponding status untouched.
type Observation struct {
	Namespace         string  `json:"namespace"`
	Name              string  `json:"name"`
	ObservedSpecHash  string  `json:"observedSpecHash"`
	ArtifactVersion   *string `json:"artifactVersion,omitempty"`
	ProcessStarted    *bool   `json:"processStarted,omitempty"`
	Healthy           *bool   `json:"healthy,omitempty"`
	PID               *int64  `json:"pid,omitempty"`
	StartTime         *string `json:"startTime,omitempty"`
	RestartCount      *int32  `json:"restartCount,omitempty"`
	TerminationReason *string `json:"terminationReason,omitempty"`
	ErrorMessage      *string `json:"errorMessage,omitempty"`
	WarningMessage    *string `json:"warningMessage,omitempty"`
}

// ReportResponse acknowledges a report.
type ReportResponse struct {
	Ack bool `json:"ack"`
}

// Gateway serves HTTP endpoints for devices and updates Kubernetes status.
// It implements manager.Runnable so it can be added to a controller-runtime Manager.
type Gateway struct {
	client   client.Client
	recorder recordEmitter
	log      logr.Logger
	clock    clock.WithTicker

	addr       string
	authToken  string
	authSecret string

	heartbeats *heartbeatTracker

	server *http.Server
}

// recordEmitter captures the EventRecorder interface we need.
type recordEmitter interface {
	Event(object runtime.Object, eventtype, reason, message string)
	Eventf(object runtime.Object, eventtype, reason, messageFmt string, args ...any)
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithClock replaces the clock used for heartbeats, staleness and condition timestamps.
func WithClock(clk clock.WithTicker) Option {
	return func(g *Gateway) {
		g.clock = clk
	}
}

// WithLogger replaces the gateway logger.
func WithLogger(log logr.Logger) Option {
	return func(g *Gateway) {
		g.log = log
	}
}

// New constructs a Gateway server instance.
func New(c client.Client, recorder recordEmitter, addr, token, tokenSecret string, defaultInterval time.Duration, staleMultiplier int, opts ...Option) *Gateway {
	g := &Gateway{
		client:     c,
		recorder:   recorder,
		log:        ctrl.Log.WithName("gateway"),
		clock:      clock.RealClock{},
		addr:       addr,
		authToken:  strings.TrimSpace(token),
		authSecret: strings.TrimSpace(tokenSecret),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.heartbeats = newHeartbeatTracker(g.clock, defaultInterval, staleMultiplier)
	return g
}

// IndexDeviceRefName extracts DeviceRefNameField for the field indexer.
func IndexDeviceRefName(obj client.Object) []string {
	dp, ok := obj.(*apiv1alpha1.DeviceProcess)
	if !ok || dp.Spec.DeviceRef.Name == "" {
		return nil
	}
	return []string{dp.Spec.DeviceRef.Name}
}

// Handler returns the HTTP handler serving the device and probe endpoints. Device routes
// answer 405 for the wrong method and 401 for a bad token.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ready"))
	})
	mux.Handle("GET /v1/devices/{device}/desired", g.deviceRoute(g.handleDesired))
	mux.Handle("POST /v1/devices/{device}/report", g.deviceRoute(g.handleReport))
	mux.Handle("POST /v1/devices/{device}/connect", g.deviceRoute(g.handleConnect))
	return mux
}

type deviceHandler func(ctx context.Context, w http.ResponseWriter, r *http.Request, deviceName string)

// deviceRoute authorizes the caller for the {device} path segment before calling h.
func (g *Gateway) deviceRoute(h deviceHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceName := r.PathValue("device")
		if !g.authorize(r, deviceName) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		h(r.Context(), w, r, deviceName)
	})
}

// Start serves HTTP and sweeps for stale devices until ctx is cancelled or the listener fails.
func (g *Gateway) Start(ctx context.Context) error {
	g.server = &http.Server{Addr: g.addr, Handler: g.Handler()}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		g.stalenessLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		if err := g.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return g.server.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

func (g *Gateway) authorize(r *http.Request, deviceName string) bool {
	header := strings.TrimSpace(r.Header.Get(deviceTokenHeader))

	// Preferred: per-device HMAC token when secret is configured.
	if g.authSecret != "" {
		expected := computeDeviceToken(g.authSecret, deviceName)
		if deviceName != "" && hmac.Equal([]byte(header), []byte(expected)) {
			return true
		}
		if g.authToken == "" {
			return false
		}
	}

	// Fallback: shared token for dev/compat.
	if g.authToken == "" {
		return true
	}
	return hmac.Equal([]byte(header), []byte(g.authToken))
}

func (g *Gateway) handleDesired(ctx context.Context, w http.ResponseWriter, r *http.Request, deviceName string) {
	desired, etag, err := g.computeDesired(ctx, deviceName)
	if err != nil {
		g.respondErr(w, http.StatusInternalServerError, "failed to compute desired state")
		g.log.Error(err, "compute desired", "device", deviceName)
		return
	}

	g.heartbeats.recordDesiredPoll(deviceName)

	w.Header().Set(desiredETagHeader, etag)

	if match := strings.TrimSpace(r.Header.Get("If-None-Match")); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(desired); err != nil {
		g.log.Error(err, "encode desired response", "device", deviceName)
	}
}

func (g *Gateway) handleReport(ctx context.Context, w http.ResponseWriter, r *http.Request, deviceName string) {
	r.Body = http.MaxBytesReader(w, r.Body, maxReportBodyBytes)
	defer r.Body.Close()
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.GatewayReports.WithLabelValues("invalid").Inc()
		g.respondErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reportedAt := g.clock.Now().UTC()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			metrics.GatewayReports.WithLabelValues("invalid").Inc()
			g.respondErr(w, http.StatusBadRequest, "invalid timestamp")
			return
		}
		reportedAt = parsed
	}

	wasStale := g.heartbeats.isStale(deviceName)
	g.heartbeats.recordReport(deviceName)

	if wasStale {
		if err := g.markDeviceConnected(ctx, deviceName); err != nil {
			g.log.Error(err, "mark device connected", "device", deviceName)
			g.respondErr(w, http.StatusInternalServerError, "failed to mark device connected")
			return
		}
	}

	for i := range req.Observations {
		obs := req.Observations[i]
		if err := g.updateStatusForObservation(ctx, deviceName, obs, reportedAt); err != nil {
			if apierrors.IsBadRequest(err) {
				metrics.GatewayReports.WithLabelValues("rejected").Inc()
				g.respondErr(w, http.StatusBadRequest, err.Error())
				return
			}
			if apierrors.IsNotFound(err) {
				g.log.V(1).Info("deviceprocess not found for observation", "device", deviceName, "name", obs.Name, "namespace", obs.Namespace)
				continue
			}
			g.log.Error(err, "update status from observation", "device", deviceName, "name", obs.Name, "namespace", obs.Namespace)
			metrics.GatewayReports.WithLabelValues("error").Inc()
			g.respondErr(w, http.StatusInternalServerError, "failed to apply observation")
			return
		}
	}

	metrics.GatewayReports.WithLabelValues("accepted").Inc()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ReportResponse{Ack: true})
}

func (g *Gateway) handleConnect(ctx context.Context, w http.ResponseWriter, _ *http.Request, deviceName string) {
	g.heartbeats.recordReport(deviceName)
	if err := g.markDeviceConnected(ctx, deviceName); err != nil {
		g.log.Error(err, "mark device connected", "device", deviceName)
		g.respondErr(w, http.StatusInternalServerError, "failed to mark device connected")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ReportResponse{Ack: true})
}

func (g *Gateway) respondErr(w http.ResponseWriter, status int, msg string) {
	g.log.V(1).Info("http error", "status", status, "message", msg)
	http.Error(w, msg, status)
}

func (g *Gateway) computeDesired(ctx context.Context, deviceName string) (*DesiredResponse, string, error) {
	processes, err := g.listDeviceProcesses(ctx, deviceName)
	if err != nil {
		return nil, "", err
	}

	items := make([]DesiredItem, 0, len(processes))
	for i := range processes {
		proc := processes[i]
		items = append(items, DesiredItem{
			UID:        string(proc.UID),
			Namespace:  proc.Namespace,
			Name:       proc.Name,
			Generation: proc.Generation,
			Spec:       proc.Spec,
			SpecHash:   hashSpec(&proc.Spec),
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Namespace == items[j].Namespace {
			return items[i].Name < items[j].Name
		}
		return items[i].Namespace < items[j].Namespace
	})

	desired := &DesiredResponse{
		DeviceName:               deviceName,
		HeartbeatIntervalSeconds: g.heartbeats.advertise(deviceName),
		Items:                    items,
	}

	return desired, hashDesired(items), nil
}

func (g *Gateway) listDeviceProcesses(ctx context.Context, deviceName string) ([]apiv1alpha1.DeviceProcess, error) {
	var list apiv1alpha1.DeviceProcessList
	if err := g.client.List(ctx, &list, client.MatchingFields{DeviceRefNameField: deviceName}); err != nil {
		return nil, err
	}

	processes := make([]apiv1alpha1.DeviceProcess, 0, len(list.Items))
	for i := range list.Items {
		proc := list.Items[i]
		if proc.Spec.DeviceRef.Name == deviceName {
			processes = append(processes, proc)
		}
	}
	return processes, nil
}

func computeDeviceToken(secret, device string) string {
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write([]byte(device))
	return hex.EncodeToString(h.Sum(nil))
}

func hashSpec(spec *apiv1alpha1.DeviceProcessSpec) string {
	data, _ := json.Marshal(spec)
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func hashDesired(items []DesiredItem) string {
	b := strings.Builder{}
	for i := range items {
		item := items[i]
		b.WriteString(item.Namespace)
		b.WriteByte('/')
		b.WriteString(item.Name)
		b.WriteByte('/')
		b.WriteString(strconv.FormatInt(item.Generation, 10))
		b.WriteByte('/')
		b.WriteString(item.SpecHash)
		b.WriteByte(';')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return "\"" + hex.EncodeToString(sum[:]) + "\""
}
