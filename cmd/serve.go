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

	"github.com/sells-group/parking-cli/internal/aggregate"
	"github.com/sells-group/parking-cli/internal/report"
	"github.com/sells-group/parking-cli/internal/store"
	"github.com/sells-group/parking-cli/internal/ticket"
)

var (
	servePort  int
	serveInput inputFlags
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve summary views of an extract as JSON",
	Long:  "Loads and normalizes one extract at startup, then answers read-only view requests (counts, catalog, histogram, describe, summary) and archived run lookups over HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveInput.path != "" {
			cfg.Source.Path = serveInput.path
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		t, diag, err := loadTable(ctx, cfg, serveInput)
		if err != nil {
			return err
		}
		summary, err := report.Build(ctx, t, diag, summaryOptions(cfg, cfg.Source.Path, nil))
		if err != nil {
			return err
		}

		srvEnv := &viewServer{
			table:   t,
			summary: summary,
			workers: cfg.Aggregate.Workers,
		}

		st, err := initOptionalStore(ctx, cfg)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
			srvEnv.store = st
		} else {
			zap.L().Info("serve: run archive disabled, /runs not mounted")
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(srvEnv, cfg.Server.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.Int("rows", t.Len()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// viewServer answers view requests over one normalized table. The table is
// never mutated after startup, so handlers share it without locking.
type viewServer struct {
	table   *ticket.Table
	summary *report.Summary
	store   store.Store // nil disables the /runs routes
	workers int
}

func buildRouter(v *viewServer, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rows": v.table.Len()})
	})
	r.Get("/summary", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, v.summary)
	})
	r.Get("/catalog", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, aggregate.Catalog(v.table))
	})
	r.Get("/revenue", v.handleRevenue)
	r.Get("/counts/{column}", v.handleCounts)
	r.Get("/histogram/{column}", v.handleHistogram)
	r.Get("/describe/{column}", v.handleDescribe)

	if v.store != nil {
		r.Get("/runs", v.handleListRuns)
		r.Get("/runs/{id}", v.handleGetRun)
	}
	return r
}

func (v *viewServer) handleRevenue(w http.ResponseWriter, r *http.Request) {
	by := r.URL.Query().Get("by")
	if by == "" {
		writeJSON(w, http.StatusOK, map[string]uint64{"revenue_total": aggregate.RevenueTotal(v.table)})
		return
	}
	col, err := ticket.ParseColumn(by)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rev, err := aggregate.RevenueBy(v.table, col)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (v *viewServer) handleCounts(w http.ResponseWriter, r *http.Request) {
	col, err := ticket.ParseColumn(chi.URLParam(r, "column"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	q := r.URL.Query()
	top, err := queryInt(q.Get("top"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	t, err := applyWhere(v.table, q["where"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	c, err := countsView(r.Context(), t, col, q.Get("normalize") == "true", q.Get("sort") == "index", top, v.workers)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (v *viewServer) handleHistogram(w http.ResponseWriter, r *http.Request) {
	col, err := ticket.ParseColumn(chi.URLParam(r, "column"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	q := r.URL.Query()
	cur := v.summary.Histogram
	lo, hi, buckets := 0.0, 2400.0, 24
	if cur != nil {
		lo, hi, buckets = cur.Min, cur.Max, len(cur.Buckets)
	}
	if lo, err = queryFloat(q.Get("min"), lo); err == nil {
		if hi, err = queryFloat(q.Get("max"), hi); err == nil {
			buckets, err = queryInt(q.Get("buckets"), buckets)
		}
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	h, err := aggregate.HistogramBuckets(v.table, col, lo, hi, buckets)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (v *viewServer) handleDescribe(w http.ResponseWriter, r *http.Request) {
	col, err := ticket.ParseColumn(chi.URLParam(r, "column"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	d, err := aggregate.Describe(v.table, col)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (v *viewServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"), 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	runs, err := v.store.ListRuns(r.Context(), store.RunFilter{
		Status: store.RunStatus(q.Get("status")),
		Source: q.Get("source"),
		Limit:  limit,
	})
	if err != nil {
		zap.L().Error("serve: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (v *viewServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := v.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		zap.L().Error("serve: get run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// statusFor maps aggregate argument errors to 400 and anything else to 500.
func statusFor(err error) int {
	var invalid *aggregate.InvalidArgumentError
	if errors.As(err, &invalid) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func queryInt(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, eris.Errorf("invalid integer %q", s)
	}
	return n, nil
}

func queryFloat(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Errorf("invalid number %q", s)
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("serve: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveInput.register(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
