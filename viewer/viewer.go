package viewer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"image"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/neurlang/specgram/capture"
	"github.com/neurlang/specgram/render"
	"github.com/rs/zerolog/log"
)

// ShutdownTimeout bounds how long Serve waits for in-flight requests.
var ShutdownTimeout = 5 * time.Second

// CaptureResponse carries the metadata of the displayed capture.
type CaptureResponse struct {
	Body struct {
		capture.Info
		Duration float64 `json:"duration" doc:"Recording length in seconds"`
		Width    int     `json:"width" doc:"Image width in pixels"`
		Height   int     `json:"height" doc:"Image height in pixels"`
	}
}

// DismissResponse acknowledges a dismiss request.
type DismissResponse struct {
	Body struct {
		Status string `json:"status" example:"dismissed" doc:"Viewer state"`
	}
}

// Viewer serves one spectrogram image.
type Viewer struct {
	png    []byte
	info   capture.Info
	bounds image.Rectangle
	router *chi.Mux

	dismissed chan struct{}
	once      sync.Once
}

// New encodes img and prepares the routes that serve it.
func New(img image.Image, info capture.Info) (*Viewer, error) {
	var buf bytes.Buffer
	if err := render.WritePNG(&buf, img); err != nil {
		return nil, err
	}
	v := &Viewer{
		png:       buf.Bytes(),
		info:      info,
		bounds:    img.Bounds(),
		dismissed: make(chan struct{}),
	}
	v.routes()
	return v, nil
}

func (v *Viewer) routes() {
	router := chi.NewRouter()
	router.Use(requestLogger())
	router.Use(middleware.Recoverer)

	config := huma.DefaultConfig("Spectrogram Viewer", "1.0.0")
	config.DocsPath = "/api/docs"
	api := humachi.New(router, config)

	huma.Register(api, huma.Operation{
		OperationID: "getCapture",
		Method:      http.MethodGet,
		Path:        "/api/capture",
		Summary:     "Get capture metadata",
		Description: "Returns the metadata of the capture behind the displayed spectrogram",
		Tags:        []string{"Viewer"},
	}, v.getCapture)

	huma.Register(api, huma.Operation{
		OperationID: "dismiss",
		Method:      http.MethodPost,
		Path:        "/api/dismiss",
		Summary:     "Dismiss the viewer",
		Description: "Closes the viewer and lets the serving process exit",
		Tags:        []string{"Viewer"},
	}, v.dismiss)

	router.Get("/spectrogram.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(v.png)
	})
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := page.Execute(w, v.info); err != nil {
			log.Error().Err(err).Msg("render viewer page")
		}
	})

	v.router = router
}

func (v *Viewer) getCapture(ctx context.Context, input *struct{}) (*CaptureResponse, error) {
	resp := &CaptureResponse{}
	resp.Body.Info = v.info
	resp.Body.Duration = v.info.Duration().Seconds()
	resp.Body.Width = v.bounds.Dx()
	resp.Body.Height = v.bounds.Dy()
	return resp, nil
}

func (v *Viewer) dismiss(ctx context.Context, input *struct{}) (*DismissResponse, error) {
	v.once.Do(func() {
		log.Info().Msg("viewer dismissed")
		close(v.dismissed)
	})
	resp := &DismissResponse{}
	resp.Body.Status = "dismissed"
	return resp, nil
}

// Handler returns the HTTP handler serving the viewer.
func (v *Viewer) Handler() http.Handler { return v.router }

// Dismissed is closed once the viewer has been dismissed.
func (v *Viewer) Dismissed() <-chan struct{} { return v.dismissed }

// Serve listens on addr and blocks until the viewer is dismissed or ctx is
// done.
func (v *Viewer) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("viewer listen %s: %w", addr, err)
	}
	return v.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener, which it closes.
func (v *Viewer) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           v.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("url", "http://"+ln.Addr().String()+"/").Msg("serving spectrogram")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
			return
		}
		errc <- nil
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("viewer interrupted")
	case <-v.dismissed:
	case serveErr = <-errc:
		return fmt.Errorf("viewer: %w", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("viewer shutdown: %w", err)
	}
	if err := <-errc; err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	return nil
}

// requestLogger logs HTTP requests using zerolog.
func requestLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				log.Debug().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Msg("HTTP request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

var page = template.Must(template.New("viewer").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Path}}</title>
<style>
body { background: #111; color: #ddd; font-family: sans-serif; margin: 1em; }
img { max-width: 100%; image-rendering: pixelated; }
</style>
</head>
<body>
<h1>{{.Path}}</h1>
<p>{{.Datatype}} at {{.SampleRate}} S/s, {{.Samples}} samples{{if .Frequency}}, centre {{.Frequency}} Hz{{end}}</p>
<img src="/spectrogram.png" alt="spectrogram">
<form method="post" action="/api/dismiss" onsubmit="fetch('/api/dismiss', {method: 'POST'}).then(() => window.close()); return false;">
<button type="submit">Close</button>
</form>
</body>
</html>
`))
