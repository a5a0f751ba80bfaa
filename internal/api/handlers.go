package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"forex-journal/internal/analytics"
	apperrors "forex-journal/internal/errors"
	"forex-journal/internal/journal"
	"forex-journal/internal/models"
	"forex-journal/internal/session"
)

// tradeRequest is the JSON body of POST and PUT /api/trades. Either the price
// fields or profit/loss are supplied.
type tradeRequest struct {
	Pair      string `json:"pair"`
	Direction string `json:"direction"`

	EntryPrice *float64 `json:"entryPrice"`
	ExitPrice  *float64 `json:"exitPrice"`
	LotSize    *float64 `json:"lotSize"`
	StopLoss   *float64 `json:"stopLoss"`
	TakeProfit *float64 `json:"takeProfit"`

	Profit *float64 `json:"profit"`
	Loss   *float64 `json:"loss"`

	EntryTime string `json:"entryTime"`
	ExitTime  string `json:"exitTime"`

	Strategy       string   `json:"strategy"`
	EmotionalState string   `json:"emotionalState"`
	Notes          string   `json:"notes"`
	Confidence     int      `json:"confidence"`
	Tags           []string `json:"tags"`
}

func (r tradeRequest) input() (journal.TradeInput, error) {
	in := journal.TradeInput{
		Pair:           r.Pair,
		EntryPrice:     r.EntryPrice,
		ExitPrice:      r.ExitPrice,
		LotSize:        r.LotSize,
		StopLoss:       r.StopLoss,
		TakeProfit:     r.TakeProfit,
		Profit:         r.Profit,
		Loss:           r.Loss,
		Strategy:       r.Strategy,
		EmotionalState: r.EmotionalState,
		Notes:          r.Notes,
		Confidence:     r.Confidence,
		Tags:           r.Tags,
	}

	if r.Direction != "" {
		d, ok := models.ParseDirection(r.Direction)
		if !ok {
			return in, apperrors.NewValidationError("direction", r.Direction, "must be long or short")
		}
		in.Direction = d
	}

	var err error
	if r.EntryTime != "" {
		if in.EntryTime, err = journal.ParseTime(r.EntryTime); err != nil {
			return in, apperrors.NewValidationError("entryTime", r.EntryTime, "unrecognized timestamp format")
		}
	}
	if r.ExitTime != "" {
		if in.ExitTime, err = journal.ParseTime(r.ExitTime); err != nil {
			return in, apperrors.NewValidationError("exitTime", r.ExitTime, "unrecognized timestamp format")
		}
	}
	return in, nil
}

// repo returns the caller's session repository, answering the request itself
// on failure.
func (s *Server) repo(c *gin.Context) (*session.Repository, bool) {
	repo, err := s.sessions.For(c.Request.Context(), c.GetString(contextKeyUserID))
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	return repo, true
}

func (s *Server) handleListTrades(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	repo, ok := s.repo(c)
	if !ok {
		return
	}

	trades := repo.Filtered(filter)
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(c, apperrors.NewValidationError("limit", v, "must be a non-negative integer"))
			return
		}
		trades = analytics.Recent(trades, n)
	}
	successResponse(c, http.StatusOK, trades)
}

func (s *Server) handleGetTrade(c *gin.Context) {
	repo, ok := s.repo(c)
	if !ok {
		return
	}
	trade, found := repo.Get(c.Param("id"))
	if !found {
		s.respondError(c, apperrors.ErrTradeNotFound)
		return
	}
	successResponse(c, http.StatusOK, trade)
}

func (s *Server) handleCreateTrade(c *gin.Context) {
	in, ok := s.bindTrade(c)
	if !ok {
		return
	}
	repo, ok := s.repo(c)
	if !ok {
		return
	}

	trade, err := repo.Add(c.Request.Context(), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	successResponse(c, http.StatusCreated, trade)
}

func (s *Server) handleUpdateTrade(c *gin.Context) {
	in, ok := s.bindTrade(c)
	if !ok {
		return
	}
	repo, ok := s.repo(c)
	if !ok {
		return
	}

	trade, err := repo.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	successResponse(c, http.StatusOK, trade)
}

func (s *Server) handleDeleteTrade(c *gin.Context) {
	repo, ok := s.repo(c)
	if !ok {
		return
	}
	if err := repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStats(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	repo, ok := s.repo(c)
	if !ok {
		return
	}
	if filter.IsEmpty() {
		successResponse(c, http.StatusOK, repo.Stats())
		return
	}
	successResponse(c, http.StatusOK, analytics.AggregateStats(repo.Filtered(filter)))
}

// handleCalendar returns day summaries in date order, optionally limited to
// ?month=YYYY-MM.
func (s *Server) handleCalendar(c *gin.Context) {
	month := c.Query("month")
	if month != "" {
		if _, err := time.Parse("2006-01", month); err != nil {
			s.respondError(c, apperrors.NewValidationError("month", month, "must be YYYY-MM"))
			return
		}
	}
	repo, ok := s.repo(c)
	if !ok {
		return
	}

	days := analytics.SortedDays(repo.Calendar())
	if month != "" {
		filtered := days[:0]
		for _, d := range days {
			if strings.HasPrefix(d.Date, month+"-") {
				filtered = append(filtered, d)
			}
		}
		days = filtered
	}
	successResponse(c, http.StatusOK, days)
}

func (s *Server) handlePairs(c *gin.Context) {
	repo, ok := s.repo(c)
	if !ok {
		return
	}
	successResponse(c, http.StatusOK, repo.Pairs())
}

func (s *Server) handleSeries(c *gin.Context) {
	rng, err := analytics.ParseTimeRange(c.Query("range"))
	if err != nil {
		s.respondError(c, apperrors.NewValidationError("range", c.Query("range"), err.Error()))
		return
	}
	repo, ok := s.repo(c)
	if !ok {
		return
	}
	successResponse(c, http.StatusOK, gin.H{
		"range":  rng,
		"points": repo.Series(rng, time.Now()),
	})
}

func (s *Server) handleStrategies(c *gin.Context) {
	repo, ok := s.repo(c)
	if !ok {
		return
	}
	successResponse(c, http.StatusOK, analytics.Strategies(repo.Trades()))
}

func (s *Server) bindTrade(c *gin.Context) (journal.TradeInput, bool) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return journal.TradeInput{}, false
	}
	in, err := req.input()
	if err != nil {
		s.respondError(c, err)
		return journal.TradeInput{}, false
	}
	return in, true
}

// parseFilter reads pair, strategy, outcome, from and to. A date-only "to"
// includes the whole day.
func parseFilter(c *gin.Context) (analytics.Filter, error) {
	f := analytics.Filter{
		Pair:     c.Query("pair"),
		Strategy: c.Query("strategy"),
	}
	if v := c.Query("outcome"); v != "" {
		o := models.Outcome(strings.ToLower(v))
		if !o.IsValid() {
			return f, apperrors.NewValidationError("outcome", v, "must be win, loss or breakeven")
		}
		f.Outcome = o
	}
	if v := c.Query("from"); v != "" {
		t, err := journal.ParseTime(v)
		if err != nil {
			return f, apperrors.NewValidationError("from", v, "unrecognized timestamp format")
		}
		f.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := journal.ParseTime(v)
		if err != nil {
			return f, apperrors.NewValidationError("to", v, "unrecognized timestamp format")
		}
		if len(strings.TrimSpace(v)) == len("2006-01-02") {
			t = analytics.EndOfDay(t)
		}
		f.To = t
	}
	return f, nil
}

// respondError maps domain errors onto status codes. Store failures are
// logged and reported without detail.
func (s *Server) respondError(c *gin.Context, err error) {
	var ve *apperrors.ValidationError
	switch {
	case apperrors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   true,
			"message": ve.Error(),
			"field":   ve.Field,
		})
	case apperrors.IsValidation(err):
		errorResponse(c, http.StatusBadRequest, err.Error())
	case apperrors.IsNotFound(err):
		errorResponse(c, http.StatusNotFound, "trade not found")
	case apperrors.Is(err, apperrors.ErrNotAuthenticated):
		errorResponse(c, http.StatusUnauthorized, "not authenticated")
	case apperrors.IsTimeout(err):
		s.logger.Warn().Err(err).
			Str("request_id", c.GetString(contextKeyRequestID)).
			Msg("Request timed out")
		errorResponse(c, http.StatusGatewayTimeout, "trade storage timed out")
	default:
		s.logger.Error().Err(err).
			Str("request_id", c.GetString(contextKeyRequestID)).
			Str("user_id", c.GetString(contextKeyUserID)).
			Msg("Request failed")
		errorResponse(c, http.StatusBadGateway, "trade storage is unavailable")
	}
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}
