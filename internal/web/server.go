package web

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"pajangan-promoshot/internal/dataurl"
	"pajangan-promoshot/internal/imageproc"
	"pajangan-promoshot/internal/messages"
	"pajangan-promoshot/internal/promo"
	"pajangan-promoshot/internal/session"
)

const (
	cookieName     = "promoshot_session"
	maxUploadBytes = 25 << 20
)

type Generator interface {
	Generate(ctx context.Context, req promo.Request) ([]string, error)
}

type Options struct {
	Generator      Generator
	Normalizer     imageproc.Normalizer
	Sessions       *session.Store
	Catalog        promo.Catalog
	RequestTimeout time.Duration
	Static         fs.FS
	Logger         *slog.Logger
}

type Server struct {
	gen        Generator
	normalizer imageproc.Normalizer
	sessions   *session.Store
	catalog    promo.Catalog
	timeout    time.Duration
	static     fs.FS
	logger     *slog.Logger
}

type apiError struct {
	Error string `json:"error"`
}

type ratioOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type optionsResponse struct {
	Backgrounds        []promo.Background `json:"backgrounds"`
	AspectRatios       []ratioOption      `json:"aspect_ratios"`
	DefaultBackground  string             `json:"default_background"`
	DefaultAspectRatio string             `json:"default_aspect_ratio"`
	Poses              int                `json:"poses"`
}

type stateResponse struct {
	PersonPreview  string   `json:"person_preview,omitempty"`
	ProductPreview string   `json:"product_preview,omitempty"`
	Background     string   `json:"background"`
	AspectRatio    string   `json:"aspect_ratio"`
	ProductName    string   `json:"product_name,omitempty"`
	Busy           bool     `json:"busy"`
	Error          string   `json:"error,omitempty"`
	Images         []string `json:"images"`
	Filenames      []string `json:"filenames"`
}

type updateOptionsRequest struct {
	Background  *string `json:"background"`
	AspectRatio *string `json:"aspect_ratio"`
	ProductName *string `json:"product_name"`
}

func New(opts Options) (*Server, error) {
	if opts.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("session store is required")
	}

	catalog := opts.Catalog
	if len(catalog.Backgrounds) == 0 {
		catalog = promo.DefaultCatalog()
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Server{
		gen:        opts.Generator,
		normalizer: opts.Normalizer,
		sessions:   opts.Sessions,
		catalog:    catalog,
		timeout:    timeout,
		static:     opts.Static,
		logger:     logger,
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.withLogging)

	r.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Put("/options", s.handleUpdateOptions)
		r.Get("/state", s.handleState)
		r.Post("/images/{role}", s.handleUpload)
		r.Post("/generate", s.handleGenerate)
		r.Get("/results", s.handleDownloadAll)
		r.Get("/results/{index}", s.handleDownload)
	})

	if s.static != nil {
		r.Handle("/*", http.FileServer(http.FS(s.static)))
	}
	return r
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	ratios := make([]ratioOption, 0, 3)
	for _, ar := range promo.AspectRatios() {
		ratios = append(ratios, ratioOption{Value: string(ar), Label: ar.Label()})
	}

	writeJSON(w, http.StatusOK, optionsResponse{
		Backgrounds:        s.catalog.Backgrounds,
		AspectRatios:       ratios,
		DefaultBackground:  s.catalog.Default().Description,
		DefaultAspectRatio: string(promo.DefaultAspectRatio),
		Poses:              promo.PoseCount,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	key := s.sessionKey(w, r)
	writeJSON(w, http.StatusOK, toStateResponse(s.sessions.Get(key)))
}

func (s *Server) handleUpdateOptions(w http.ResponseWriter, r *http.Request) {
	key := s.sessionKey(w, r)

	var req updateOptionsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json"})
		return
	}

	var ratio promo.AspectRatio
	if req.AspectRatio != nil {
		parsed, err := promo.ParseAspectRatio(*req.AspectRatio)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
			return
		}
		ratio = parsed
	}
	if req.Background != nil {
		if _, ok := s.catalog.Lookup(*req.Background); !ok {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "unknown background"})
			return
		}
	}

	st := s.sessions.Update(key, func(st *session.State) {
		if req.Background != nil {
			st.Background = *req.Background
		}
		if ratio != "" {
			st.AspectRatio = ratio
		}
		if req.ProductName != nil {
			st.ProductName = strings.TrimSpace(*req.ProductName)
		}
	})
	writeJSON(w, http.StatusOK, toStateResponse(st))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	key := s.sessionKey(w, r)

	role, err := session.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, apiError{Error: err.Error()})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.sessions.SetError(key, messages.ReadFailed)
		writeJSON(w, http.StatusBadRequest, apiError{Error: messages.ReadFailed})
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.sessions.SetError(key, messages.ReadFailed)
		writeJSON(w, http.StatusBadRequest, apiError{Error: messages.ReadFailed})
		return
	}
	defer file.Close()

	st := s.sessions.Get(key)
	img, err := s.normalizer.Process(r.Context(), file, header.Header.Get("Content-Type"), st.AspectRatio)
	if err != nil {
		msg := messages.Preprocess(err)
		s.logger.Warn("image processing failed", "role", string(role), "err", err)
		s.sessions.SetError(key, msg)
		writeJSON(w, http.StatusUnprocessableEntity, apiError{Error: msg})
		return
	}

	st, err = s.sessions.SetImage(key, role, img)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, toStateResponse(st))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	key := s.sessionKey(w, r)

	if !s.sessions.Get(key).Ready() {
		s.sessions.SetError(key, messages.MissingImages)
		writeJSON(w, http.StatusBadRequest, apiError{Error: messages.MissingImages})
		return
	}

	// Uploads racing this request are either in the state Begin returns or
	// rejected by the store, never silently dropped.
	st, err := s.sessions.Begin(key)
	if err != nil {
		writeJSON(w, http.StatusConflict, apiError{Error: messages.Generate(err)})
		return
	}

	var (
		results []string
		errMsg  string
	)
	defer func() {
		s.sessions.Finish(key, results, errMsg)
	}()

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	images, err := s.gen.Generate(ctx, promo.Request{
		Person:      st.Person,
		Product:     st.Product,
		Background:  st.Background,
		AspectRatio: st.AspectRatio,
	})
	if err != nil {
		errMsg = messages.Generate(err)
		s.logger.Error("generate failed", "err", err, "request_id", middleware.GetReqID(r.Context()))
		status := http.StatusBadGateway
		if errors.Is(err, promo.ErrMissingImages) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, apiError{Error: errMsg})
		return
	}
	results = images

	st.Busy = false
	st.Err = ""
	st.Results = images
	writeJSON(w, http.StatusOK, toStateResponse(st))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	key := s.sessionKey(w, r)

	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	st := s.sessions.Get(key)
	if err != nil || idx < 0 || idx >= len(st.Results) {
		writeJSON(w, http.StatusNotFound, apiError{Error: "result not found"})
		return
	}

	mimeType, data, err := dataurl.Decode(st.Results[idx], "image/png")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
		return
	}

	w.Header().Set("content-type", mimeType)
	w.Header().Set("content-disposition", `attachment; filename="`+promo.Filename(st.ProductName, idx)+`"`)
	w.Header().Set("content-length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleDownloadAll streams every result as one zip archive. Entries keep
// the names of the single downloads.
func (s *Server) handleDownloadAll(w http.ResponseWriter, r *http.Request) {
	key := s.sessionKey(w, r)

	st := s.sessions.Get(key)
	if len(st.Results) == 0 {
		writeJSON(w, http.StatusNotFound, apiError{Error: "result not found"})
		return
	}

	payloads := make([][]byte, len(st.Results))
	for i, result := range st.Results {
		_, data, err := dataurl.Decode(result, "image/png")
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
			return
		}
		payloads[i] = data
	}

	w.Header().Set("content-type", "application/zip")
	w.Header().Set("content-disposition", `attachment; filename="`+promo.ArchiveName(st.ProductName)+`"`)
	w.WriteHeader(http.StatusOK)

	zw := zip.NewWriter(w)
	names := promo.Filenames(st.ProductName, len(payloads))
	for i, data := range payloads {
		// PNG is already compressed.
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: names[i], Method: zip.Store, Modified: time.Now()})
		if err == nil {
			_, err = fw.Write(data)
		}
		if err != nil {
			s.logger.Warn("zip write failed", "err", err, "request_id", middleware.GetReqID(r.Context()))
			return
		}
	}
	if err := zw.Close(); err != nil {
		s.logger.Warn("zip close failed", "err", err, "request_id", middleware.GetReqID(r.Context()))
	}
}

// sessionKey returns the caller's session id, issuing a new cookie when the
// request carries none or an invalid one.
func (s *Server) sessionKey(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(cookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func toStateResponse(st session.State) stateResponse {
	out := stateResponse{
		Background:  st.Background,
		AspectRatio: string(st.AspectRatio),
		ProductName: st.ProductName,
		Busy:        st.Busy,
		Error:       st.Err,
		Images:      st.Results,
		Filenames:   promo.Filenames(st.ProductName, len(st.Results)),
	}
	if out.Images == nil {
		out.Images = []string{}
	}
	if st.Person != nil {
		out.PersonPreview = st.Person.PreviewURL
	}
	if st.Product != nil {
		out.ProductPreview = st.Product.PreviewURL
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"dur_ms", time.Since(start).Milliseconds(),
		)
	})
}
