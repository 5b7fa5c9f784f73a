package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-screener/internal/model"
	"github.com/sells-group/edinet-screener/internal/screening"
	"github.com/sells-group/edinet-screener/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve screening results over a read-only JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx, false)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      newRouter(st, cfg.Server.CORSOrigins),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		if checker := newChecker(st); checker != nil {
			go checker.Run(ctx)
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("server listening", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return eris.Wrap(err, "serve")
		case <-ctx.Done():
		}

		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "serve: shutdown")
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP port")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the read-only API over st.
func newRouter(st store.Store, origins []string) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &apiHandler{store: st}
	r.Get("/health", h.health)
	r.Route("/screening", func(r chi.Router) {
		r.Get("/", h.listScreening)
		r.Get("/{code}", h.getScreening)
		r.Get("/{code}/filings", h.listFilings)
	})
	r.Get("/runs", h.listRuns)
	r.Get("/runs/{id}", h.getRun)

	return r
}

type apiHandler struct {
	store store.Store
}

func (h *apiHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *apiHandler) listScreening(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.ReportFilter{}

	var err error
	if v := q.Get("netnet"); v != "" {
		if filter.NetNetOnly, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, "netnet must be a boolean")
			return
		}
	}
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	rows, err := h.store.ListReport(r.Context(), filter)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if rows == nil {
		rows = []model.ReportRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *apiHandler) getScreening(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	row, err := h.store.GetReport(r.Context(), code)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("company %s not found", code))
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *apiHandler) listFilings(w http.ResponseWriter, r *http.Request) {
	filings, err := h.store.ListFilings(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if filings == nil {
		filings = []screening.FilingRecord{}
	}
	writeJSON(w, http.StatusOK, filings)
}

func (h *apiHandler) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if limit == 0 {
		limit = 20
	}
	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *apiHandler) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := h.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("run %s not found", id))
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *apiHandler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("api request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, eris.Errorf("invalid value %q", v)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
