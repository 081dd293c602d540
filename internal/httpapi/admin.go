package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/BrandonDHaskell/drugbox/internal/auth"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/types"
)

type claimsKey struct{}

func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token", "bearer token required")
			return
		}
		claims, err := s.signer.ParseAdmin(token)
		if errors.Is(err, auth.ErrForbidden) {
			writeError(w, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return c
}

func bearerToken(h string) string {
	const prefix = "bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	users, err := s.directory.ListUsers(r.Context(), int(limit))
	if err != nil {
		s.writeAdminError(w, "list users", err)
		return
	}
	out := types.UsersResponse{Users: make([]types.User, 0, len(users))}
	for _, u := range users {
		out.Users = append(out.Users, userView(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "id must be an integer")
		return
	}
	u, err := s.directory.GetUser(r.Context(), id)
	if err != nil {
		s.writeAdminError(w, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, userView(u))
}

func (s *Server) handleScheduleDosage(w http.ResponseWriter, r *http.Request) {
	var req types.ScheduleDosageRequest
	if err := decodeStrictJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body: "+err.Error())
		return
	}
	d, err := s.scheduler.Schedule(r.Context(), req)
	if err != nil {
		s.writeAdminError(w, "schedule dosage", err)
		return
	}
	if c := claimsFromContext(r.Context()); c != nil {
		s.logger.Info("admin scheduled dosage", "sub", c.Subject, "dosage_id", d.ID)
	}
	writeJSON(w, http.StatusCreated, dosageView(d))
}

func (s *Server) handleListDosages(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryInt(w, r, "user_id")
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	ds, err := s.directory.ListDosages(r.Context(), store.DosageFilter{
		UserID: userID,
		Date:   strings.TrimSpace(r.URL.Query().Get("date")),
		Limit:  int(limit),
	})
	if err != nil {
		s.writeAdminError(w, "list dosages", err)
		return
	}
	out := types.DosagesResponse{Dosages: make([]types.Dosage, 0, len(ds))}
	for _, d := range ds {
		out.Dosages = append(out.Dosages, dosageView(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryInt(w, r, "user_id")
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	evs, err := s.directory.ListEvents(r.Context(), store.EventFilter{
		Type:   strings.TrimSpace(r.URL.Query().Get("type")),
		UserID: userID,
		Limit:  int(limit),
	})
	if err != nil {
		s.writeAdminError(w, "list events", err)
		return
	}
	out := types.EventsResponse{Events: make([]types.Event, 0, len(evs))}
	for _, e := range evs {
		out.Events = append(out.Events, eventView(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeAdminError(w http.ResponseWriter, op string, err error) {
	status, code, msg := classify(s.logger, op, err)
	writeError(w, status, code, msg)
}

// queryInt reads an optional integer query parameter; absent means 0. On a
// malformed value it writes 400 and returns ok=false.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", name+" must be an integer")
		return 0, false
	}
	return n, true
}
