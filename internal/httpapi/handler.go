package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"investor_onboarding/internal/model"
	"investor_onboarding/internal/repository"
	"investor_onboarding/internal/service"
)

// FallbackOrigin отдаётся в preflight, когда origin не из списка
const FallbackOrigin = "https://example.com"

const infoPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Investor onboarding</title></head>
<body>
<h1>Investor onboarding</h1>
<p>This endpoint accepts investor applications. Submit them with POST.</p>
</body>
</html>
`

type Config struct {
	MaxRequestBytes int64
	// TrustedProxies: X-Forwarded-For читается только от этих адресов
	TrustedProxies []netip.Prefix
}

// ParseTrustedProxies converts CIDR strings such as "10.0.0.0/8" into prefixes.
func ParseTrustedProxies(cidrs []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse trusted proxy %q: %w", cidr, err)
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	return prefixes, nil
}

type Handler struct {
	cfg       Config
	ingest    service.IngestionService
	documents repository.DocumentStore
	metrics   http.Handler
	logger    *zap.Logger
}

func NewHandler(cfg Config, ingest service.IngestionService, documents repository.DocumentStore, metrics http.Handler, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		ingest:    ingest,
		documents: documents,
		metrics:   metrics,
		logger:    logger,
	}
}

// Routes returns the HTTP surface of the ingestion server.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}

	mux.HandleFunc("OPTIONS /submit", h.preflight)
	mux.HandleFunc("GET /submit", h.info)
	mux.HandleFunc("POST /submit", h.submit)
	mux.HandleFunc("GET /documents/{submissionID}/{file}", h.document)

	return h.logRequests(mux)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("HTTP request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("user_agent", r.UserAgent()),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Duration("took", time.Since(start)))
	})
}

func (h *Handler) preflight(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if !h.ingest.OriginAllowed(origin) {
		origin = FallbackOrigin
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Max-Age", "3600")
	w.Header().Add("Vary", "Origin")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) info(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, infoPage)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin != "" && h.ingest.OriginAllowed(origin) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}

	req, err := h.readRequest(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeJSON(w, http.StatusRequestEntityTooLarge, model.IngestResponse{Message: "Request too large"})
			return
		}
		h.logger.Warn("failed to read submission request", zap.Error(err))
		h.writeJSON(w, http.StatusBadRequest, model.IngestResponse{Message: "Could not read request"})
		return
	}

	res, err := h.ingest.Ingest(r.Context(), req)
	if err != nil {
		status, message := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("submission failed", zap.Error(err))
		}
		h.writeJSON(w, status, model.IngestResponse{Message: message})
		return
	}

	h.writeJSON(w, http.StatusOK, model.IngestResponse{
		Success:      true,
		Message:      "Application received",
		SubmissionID: res.SubmissionID,
	})
}

// readRequest принимает поле формы formData или сырое тело
func (h *Handler) readRequest(w http.ResponseWriter, r *http.Request) (*service.Request, error) {
	if h.cfg.MaxRequestBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxRequestBytes)
	}

	req := &service.Request{
		Origin:    r.Header.Get("Origin"),
		ClientIP:  h.clientIP(r),
		UserAgent: r.UserAgent(),
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, err
		}
		req.FormData = r.PostFormValue("formData")
		req.FormOrigin = r.PostFormValue("origin")
	case "application/x-www-form-urlencoded":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, err
		}
		req.FormData = values.Get("formData")
		req.FormOrigin = values.Get("origin")
		if req.FormData == "" {
			req.Body = body
		}
	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		req.Body = body
	}
	return req, nil
}

func (h *Handler) document(w http.ResponseWriter, r *http.Request) {
	f, mimeType, err := h.documents.Open(r.PathValue("submissionID"), r.PathValue("file"))
	switch {
	case errors.Is(err, repository.ErrDocumentPath):
		http.Error(w, "invalid document path", http.StatusBadRequest)
		return
	case errors.Is(err, fs.ErrNotExist):
		http.NotFound(w, r)
		return
	case err != nil:
		h.logger.Error("failed to open document", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	var modTime time.Time
	if info, err := f.Stat(); err == nil {
		modTime = info.ModTime()
	}
	w.Header().Set("Content-Type", mimeType)
	http.ServeContent(w, r, r.PathValue("file"), modTime, f)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body model.IngestResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("failed to write response", zap.Error(err))
	}
}

// statusFor сообщения намеренно общие: какой именно шлюз отказал, клиент не узнаёт
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid submission"
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid token"
	case errors.Is(err, service.ErrOriginDenied):
		return http.StatusForbidden, "Origin not allowed"
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many submissions, please try again later"
	case errors.Is(err, service.ErrLockTimeout):
		return http.StatusServiceUnavailable, "Server busy, please try again"
	}
	return http.StatusInternalServerError, "Submission failed, please try again"
}

// clientIP верит X-Forwarded-For только если соединение пришло от доверенного прокси.
// Цепочка разбирается справа налево до первого недоверенного адреса.
func (h *Handler) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	fwd := r.Header.Get("X-Forwarded-For")
	if fwd == "" || !h.trustedProxy(host) {
		return host
	}

	hops := strings.Split(fwd, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !h.trustedProxy(hop) {
			return hop
		}
		host = hop
	}
	return host
}

func (h *Handler) trustedProxy(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range h.cfg.TrustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
