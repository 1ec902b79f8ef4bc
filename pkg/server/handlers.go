package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"mercator-hq/verity/pkg/engine"
	"mercator-hq/verity/pkg/history"
	"mercator-hq/verity/pkg/telemetry/logging"
)

// HistoryRecordHeader names the stored history record of a validation.
const HistoryRecordHeader = "X-History-Record-ID"

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("ruleset")
	ctx := logging.WithRuleSet(r.Context(), name)

	subject, err := s.decodeSubject(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_subject", err.Error())
		return
	}

	report, err := s.validator.Validate(ctx, name, subject)
	if err != nil {
		s.writeValidateError(ctx, w, err)
		return
	}

	if s.recorder != nil {
		record, err := s.recorder.Record(ctx, report, subject)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "failed to record validation", "run_id", report.RunID, "error", err)
		case record != nil:
			w.Header().Set(HistoryRecordHeader, record.ID)
			if s.historyMetrics != nil {
				s.historyMetrics.RecordHistoryStored(record.Valid)
			}
		}
	}

	s.logger.DebugContext(ctx, "subject validated",
		"run_id", report.RunID,
		"valid", report.Valid(),
		"failed", report.FailedProperties(),
	)
	writeJSON(w, http.StatusOK, report)
}

// decodeSubject reads exactly one JSON value from the request body.
func (s *Server) decodeSubject(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	body := io.Reader(r.Body)
	if s.config.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}

	dec := json.NewDecoder(body)
	var subject interface{}
	if err := dec.Decode(&subject); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("request body is empty")
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, errors.New("request body must contain a single JSON value")
	}
	return subject, nil
}

func (s *Server) writeValidateError(ctx context.Context, w http.ResponseWriter, err error) {
	var condErr *engine.ConditionError
	switch {
	case errors.Is(err, engine.ErrRuleSetNotFound):
		writeError(w, http.StatusNotFound, "rule_set_not_found", err.Error())
	case errors.As(err, &condErr):
		writeError(w, http.StatusUnprocessableEntity, "evaluation_failed", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "cancelled", err.Error())
	default:
		s.logger.ErrorContext(ctx, "validation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

type ruleSetSummary struct {
	Name        string   `json:"name"`
	Version     string   `json:"version,omitempty"`
	Description string   `json:"description,omitempty"`
	Properties  []string `json:"properties"`
}

func (s *Server) handleRuleSets(w http.ResponseWriter, r *http.Request) {
	ruleSets := s.validator.RuleSets()
	out := make([]ruleSetSummary, 0, len(ruleSets))
	for _, rs := range ruleSets {
		out = append(out, ruleSetSummary{
			Name:        rs.Name,
			Version:     rs.Version,
			Description: rs.Description,
			Properties:  rs.Properties(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rule_sets": out})
}

type historyPage struct {
	Records []*history.Record `json:"records"`
	Total   int64             `json:"total"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
}

func (s *Server) handleHistoryQuery(w http.ResponseWriter, r *http.Request) {
	query, err := parseHistoryQuery(r)
	if err == nil {
		err = query.Validate()
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	query.ApplyDefaults()

	records, err := s.history.Query(r.Context(), query)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "history_unavailable", err.Error())
		return
	}
	total, err := s.history.Count(r.Context(), query)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "history count failed", "error", err)
		writeError(w, http.StatusInternalServerError, "history_unavailable", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, historyPage{
		Records: records,
		Total:   total,
		Limit:   query.Limit,
		Offset:  query.Offset,
	})
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	record, err := s.history.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record_not_found", err.Error())
			return
		}
		s.logger.ErrorContext(r.Context(), "history lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "history_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// parseHistoryQuery reads rule_set, subject_id, property, valid, start,
// end (RFC 3339), limit, offset and order.
func parseHistoryQuery(r *http.Request) (*history.Query, error) {
	v := r.URL.Query()
	q := &history.Query{
		RuleSet:   v.Get("rule_set"),
		SubjectID: v.Get("subject_id"),
		Property:  v.Get("property"),
		SortOrder: v.Get("order"),
	}

	if s := v.Get("valid"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("invalid valid parameter %q", s)
		}
		q.Valid = &b
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"start", &q.StartTime}, {"end", &q.EndTime}} {
		s := v.Get(p.name)
		if s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s parameter %q: must be RFC 3339", p.name, s)
		}
		*p.dst = &t
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &q.Limit}, {"offset", &q.Offset}} {
		s := v.Get(p.name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s parameter %q", p.name, s)
		}
		*p.dst = n
	}
	return q, nil
}
