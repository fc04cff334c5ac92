package server

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/matchdeck/internal/card"
	"github.com/spigell/matchdeck/internal/gesture"
	"github.com/spigell/matchdeck/internal/profiles"
	"github.com/spigell/matchdeck/internal/session"
)

type stateResponse struct {
	session.Snapshot
	Status    string             `json:"message"`
	Cards     []card.View        `json:"cards"`
	Shortlist []profiles.Profile `json:"shortlist"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type dragRequest struct {
	Offset float64 `json:"offset"`
}

type releaseRequest struct {
	Offset   float64 `json:"offset"`
	Velocity float64 `json:"velocity"`
}

type commitRequest struct {
	Direction string `json:"direction"`
}

type decisionResponse struct {
	Direction string        `json:"direction"`
	Committed bool          `json:"committed"`
	State     stateResponse `json:"state"`
}

func (s *Server) state() stateResponse {
	snap := s.session.Snapshot()
	resp := stateResponse{
		Snapshot:  snap,
		Status:    snap.Message(),
		Cards:     []card.View{},
		Shortlist: s.session.Shortlist(),
	}

	if d := s.session.Deck(); d != nil {
		resp.Cards = card.Views(card.Stack(d, s.cfg.Lookahead, s.cfg.Gesture))
	}
	return resp
}

// top returns the presenter of the active card, or nil when there is none.
func (s *Server) top() *card.Presenter {
	d := s.session.Deck()
	if d == nil {
		return nil
	}
	stack := card.Stack(d, 1, s.cfg.Gesture)
	if len(stack) == 0 {
		return nil
	}
	return stack[0]
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok", "session_id": s.session.ID()})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.state())
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	_, err := s.session.Submit(s.baseCtx, req.Query)
	switch {
	case errors.Is(err, session.ErrEmptyQuery):
		s.jsonResponse(w, http.StatusOK, s.state())
	case errors.Is(err, session.ErrSearchInProgress):
		s.errorResponse(w, http.StatusConflict, err.Error())
	case err != nil:
		s.errorResponse(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.jsonResponse(w, http.StatusAccepted, s.state())
	}
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	top := s.top()
	if top == nil {
		s.errorResponse(w, http.StatusConflict, "no card to drag")
		return
	}

	s.jsonResponse(w, http.StatusOK, top.Drag(req.Offset))
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	var req releaseRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	top := s.top()
	if top == nil {
		s.errorResponse(w, http.StatusConflict, "no card to release")
		return
	}

	top.Drag(req.Offset)
	dir, committed := top.Release(req.Velocity)

	s.logger.Debug("release",
		zap.Float64("offset", req.Offset),
		zap.String("direction", dir.String()),
		zap.Bool("committed", committed),
	)

	s.jsonResponse(w, http.StatusOK, decisionResponse{Direction: dir.String(), Committed: committed, State: s.state()})
}

// handleCommit backs the skip and interested buttons under the deck.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	dir, err := gesture.ParseDirection(req.Direction)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	d := s.session.Deck()
	if d == nil {
		s.errorResponse(w, http.StatusConflict, "no deck to commit to")
		return
	}

	committed := d.Commit(dir)
	s.jsonResponse(w, http.StatusOK, decisionResponse{Direction: dir.String(), Committed: committed, State: s.state()})
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	path, err := s.session.ExportShortlist()
	if errors.Is(err, session.ErrEmptyShortlist) {
		s.errorResponse(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("exporting shortlist", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "failed to export shortlist")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{"path": path})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	signals, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	if err := sse.WriteEvent("state", s.state()); err != nil {
		return
	}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			if err := sse.WriteComment("keepalive"); err != nil {
				return
			}
		case <-signals:
			if err := sse.WriteEvent("state", s.state()); err != nil {
				s.logger.Debug("event stream closed", zap.Error(err))
				return
			}
		}
	}
}
