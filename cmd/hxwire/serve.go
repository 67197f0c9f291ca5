package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/pthm/hxwire"
)

type serveOptions struct {
	listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo components",
		Long: `Serve the demo board and counter components together with the update
endpoint. The secret comes from the config file or ` + hxwire.SecretEnv + `.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, opts, cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.listen, "listen", "l", "", "listen address (overrides config)")

	return cmd
}

func runServe(rootOpts *RootOptions, opts *serveOptions, cmd *cobra.Command) error {
	cfg, err := rootOpts.loadConfig()
	if err != nil {
		return err
	}
	if opts.listen != "" {
		cfg.Listen = opts.listen
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())
	m, err := hxwire.NewFromConfig(cfg, hxwire.WithLogger(logger))
	if err != nil {
		return err
	}
	registerDemo(m, logger)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newRouter(m, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Listen, "update_path", cfg.UpdatePath)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newRouter wires the update endpoint and the demo pages.
func newRouter(m *hxwire.Manager, cfg *hxwire.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok")
	})

	r.Handle(cfg.UpdatePath, m.Handler())

	r.Get("/", page(m, cfg, "board", func(r *http.Request) hxwire.Params {
		p := hxwire.Params{}
		if title := r.URL.Query().Get("title"); title != "" {
			p["title"] = title
		}
		return p
	}))
	r.Get("/counter/{start}", page(m, cfg, "counter", func(r *http.Request) hxwire.Params {
		start, _ := strconv.Atoi(chi.URLParam(r, "start"))
		return hxwire.Params{"count": start}
	}))

	return r
}

// page mounts name and renders it inside the demo layout.
func page(m *hxwire.Manager, cfg *hxwire.Config, name string, params func(*http.Request) hxwire.Params) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := hxwire.WithRequest(r.Context(), hxwire.RequestInfoFromHTTP(r))
		res, err := m.Mount(ctx, name, params(r), "")
		if err != nil {
			m.OnError(w, r, err)
			return
		}
		body := templ.Raw(res.HTML + hxwire.RenderFlashes(res.Effects.Flashes))
		if err := hxwire.Render(w, r, layout(name, cfg.UpdatePath, m.JSFeatures(), body)); err != nil {
			m.Logger().Error("render page", "component", name, "error", err)
		}
	}
}

func layout(title, updatePath string, features []string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<!DOCTYPE html><html><head><meta charset="utf-8"><title>%s</title>`+
				`<meta name="hxwire-update" content="%s"><meta name="hxwire-features" content="%s">`+
				`</head><body>`,
			html.EscapeString(title),
			html.EscapeString(updatePath),
			html.EscapeString(strings.Join(features, ",")),
		)
		if err != nil {
			return err
		}
		if err := hxwire.ToastContainer().Render(ctx, w); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err = io.WriteString(w, `</body></html>`)
		return err
	})
}

