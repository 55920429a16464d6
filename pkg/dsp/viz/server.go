package viz

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"sort"
	"sync"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// Server keeps rendered diagnostics in named buckets, one per capture, and
// serves them over HTTP.
type Server struct {
	images map[string]map[string]*ImageContainer
	mu     sync.RWMutex
	srv    *http.Server
	logger zerolog.Logger
}

func NewServer(port int, logger zerolog.Logger) *Server {
	s := &Server{
		images: make(map[string]map[string]*ImageContainer),
		srv:    &http.Server{Addr: fmt.Sprintf(":%d", port)},
		logger: logger,
	}
	s.srv.Handler = s.Handler()
	return s
}

func (s *Server) Store(bucket string, img *ImageContainer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.images[bucket]
	if !ok {
		b = make(map[string]*ImageContainer)
		s.images[bucket] = b
	}
	b[img.Name] = img
}

// Diagnostics returns a callback that renders each signal as a line plot into bucket.
// It is safe for concurrent use.
func (s *Server) Diagnostics(bucket string) func(name, title string, values []float64) {
	return func(name, title string, values []float64) {
		img, err := LinePlot(name, title, values)
		if err != nil {
			s.logger.Error().Err(err).Str("bucket", bucket).Str("plot", name).Msg("failed to render plot")
			return
		}
		s.Store(bucket, img)
	}
}

func (s *Server) Buckets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.images))
	for key := range s.images {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s *Server) imageNames(bucket string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.images[bucket]
	if !ok {
		return nil, false
	}
	keys := make([]string, 0, len(b))
	for key := range b {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, true
}

func (s *Server) Handler() http.Handler {
	handler := httprouter.New()
	handler.GET("/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		buckets := s.Buckets()
		if len(buckets) == 0 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Location", "/view/"+url.PathEscape(buckets[0]))
		w.WriteHeader(http.StatusFound)
	})

	handler.GET("/view/:bucket", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		bucket := params.ByName("bucket")
		names, ok := s.imageNames(bucket)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Add("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>DVB-T Diagnostics</title></head>`))
		w.Write([]byte(`
		<script type="text/javascript">
			function changeBucket() {
				var val = document.getElementById('bucketSelector').value;
				window.location.href = '/view/' + encodeURIComponent(val);
			}
		</script>`))
		w.Write([]byte(`<body style='background-color: black'>`))

		w.Write([]byte(`<select id="bucketSelector" onchange="changeBucket()">`))
		for _, bucketName := range s.Buckets() {
			selected := ""
			if bucketName == bucket {
				selected = " selected"
			}
			escaped := html.EscapeString(bucketName)
			w.Write([]byte(fmt.Sprintf(`<option value="%s"%s>%s</option>`, escaped, selected, escaped)))
		}
		w.Write([]byte(`</select>`))

		w.Write([]byte(`<div style="display: flex; flex-direction: row; flex-wrap: wrap">`))
		for idx, name := range names {
			w.Write([]byte(fmt.Sprintf(`<div><img id="graph-%d" src="/img/%s/%s" /></div>`,
				idx, url.PathEscape(bucket), url.PathEscape(name))))
		}
		w.Write([]byte(`</div></body></html>`))
	})

	handler.GET("/img/:bucket/:img", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		var img *ImageContainer
		func() {
			s.mu.RLock()
			defer s.mu.RUnlock()
			if bucket, ok := s.images[params.ByName("bucket")]; ok {
				img = bucket[params.ByName("img")]
			}
		}()

		if img == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Add("Content-Type", "image/png")
		w.Write(img.Data)
	})

	return handler
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Run serves until Stop is called.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info().Str("addr", s.srv.Addr).Msg("starting viz server")
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
