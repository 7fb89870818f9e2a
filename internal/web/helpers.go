package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/homme-x/PES-Tournament-Manager/internal/session"
	"github.com/homme-x/PES-Tournament-Manager/internal/store"
)

const maxBodyBytes = 1 << 20

type envelope map[string]any

var errEmptyBody = errors.New("body must not be empty")

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var typeError *json.UnmarshalTypeError
		var tooLarge *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &typeError):
			if typeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", typeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", typeError.Offset)
		case errors.Is(err, io.EOF):
			return errEmptyBody
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return fmt.Errorf("body contains unknown key %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		case errors.As(err, &tooLarge):
			return fmt.Errorf("body must not be larger than %d bytes", tooLarge.Limit)
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	js, err := json.Marshal(data)
	if err != nil {
		s.log.Error("encode response", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(js, '\n'))
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, envelope{"error": message})
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	s.errorResponse(w, http.StatusBadRequest, err.Error())
}

// handleError maps domain errors onto status codes.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrSessionNotFound),
		errors.Is(err, session.ErrPoolNotFound),
		errors.Is(err, session.ErrMatchNotFound),
		errors.Is(err, session.ErrKnockoutMatchNotFound):
		s.errorResponse(w, http.StatusNotFound, err.Error())

	case errors.Is(err, session.ErrWrongPhase),
		errors.Is(err, session.ErrPoolFull),
		errors.Is(err, session.ErrMatchAlreadyPlayed),
		errors.Is(err, session.ErrPoolsIncomplete),
		errors.Is(err, session.ErrKnockoutMatchNotLoaded),
		errors.Is(err, session.ErrFirstLegPending):
		s.errorResponse(w, http.StatusConflict, err.Error())

	case errors.Is(err, session.ErrInvalidSettings),
		errors.Is(err, session.ErrInvalidPlayer),
		errors.Is(err, session.ErrInvalidScore),
		errors.Is(err, session.ErrBracketSize),
		errors.Is(err, session.ErrPenaltiesRequired),
		errors.Is(err, session.ErrPenaltiesNotAllowed):
		s.errorResponse(w, http.StatusUnprocessableEntity, err.Error())

	default:
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		s.errorResponse(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
	}
}

func poolIndexParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "poolIndex")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", session.ErrPoolNotFound, raw)
	}
	return n, nil
}
