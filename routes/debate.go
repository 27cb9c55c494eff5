package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"debatearena/internal/debate"
	"debatearena/internal/stance"
	"debatearena/middlewares"
	"debatearena/models"

	"github.com/gin-gonic/gin"
)

// StanceRecorder is the write side of the stance store.
type StanceRecorder interface {
	RecordStance(ctx context.Context, debateID, voterID string, phase stance.Phase, value int) error
}

// ProgressReader exposes a user's participation counters.
type ProgressReader interface {
	Progress(ctx context.Context, userID string) (models.UserProgress, error)
}

// RatingReader serves the leaderboard and per-user rating history.
type RatingReader interface {
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	History(ctx context.Context, userID string, limit int) ([]models.RatingHistory, error)
}

// DebateHandler maps HTTP requests onto the debate controller.
type DebateHandler struct {
	Controller *debate.Controller
	Stances    StanceRecorder
	Progress   ProgressReader
	Ratings    RatingReader
	Logger     *slog.Logger
}

type createDebateRequest struct {
	Resolution string `json:"resolution"`
}

type submitArgumentRequest struct {
	Content string `json:"content"`
}

type recordStanceRequest struct {
	Phase string `json:"phase" binding:"required"`
	Value *int   `json:"value" binding:"required"`
}

// CreateDebateHandler handles POST /debates.
func (h *DebateHandler) CreateDebateHandler(c *gin.Context) {
	var req createDebateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	agg, err := h.Controller.CreateDebate(c.Request.Context(), req.Resolution, c.GetString(middlewares.UserIDKey))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"debate": agg.Debate, "rounds": agg.Rounds})
}

// JoinDebateHandler handles POST /debates/:id/join.
func (h *DebateHandler) JoinDebateHandler(c *gin.Context) {
	d, err := h.Controller.JoinAsOppose(c.Request.Context(), c.Param("id"), c.GetString(middlewares.UserIDKey))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"debate": d})
}

// SubmitArgumentHandler handles POST /debates/:id/arguments.
func (h *DebateHandler) SubmitArgumentHandler(c *gin.Context) {
	var req submitArgumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	res, err := h.Controller.SubmitArgument(c.Request.Context(), c.Param("id"), c.GetString(middlewares.UserIDKey), req.Content)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GetDebateHandler handles GET /debates/:id.
func (h *DebateHandler) GetDebateHandler(c *gin.Context) {
	d, err := h.Controller.GetDebate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"debate": d})
}

// GetRoundsHandler handles GET /debates/:id/rounds.
func (h *DebateHandler) GetRoundsHandler(c *gin.Context) {
	rounds, err := h.Controller.GetRounds(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rounds": rounds})
}

// GetArgumentsHandler handles GET /debates/:id/arguments.
func (h *DebateHandler) GetArgumentsHandler(c *gin.Context) {
	args, err := h.Controller.GetArguments(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"arguments": args})
}

// RecordStanceHandler handles POST /debates/:id/stances.
func (h *DebateHandler) RecordStanceHandler(c *gin.Context) {
	var req recordStanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}
	phase, ok := stance.ParsePhase(req.Phase)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phase must be pre or post"})
		return
	}

	if _, err := h.Controller.GetDebate(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	err := h.Stances.RecordStance(c.Request.Context(), c.Param("id"), c.GetString(middlewares.UserIDKey), phase, *req.Value)
	if errors.Is(err, stance.ErrInvalidStance) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stance recorded"})
}

// GetProgressHandler handles GET /users/:id/progress.
func (h *DebateHandler) GetProgressHandler(c *gin.Context) {
	progress, err := h.Progress.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// GetLeaderboardHandler handles GET /leaderboard?limit=N.
func (h *DebateHandler) GetLeaderboardHandler(c *gin.Context) {
	entries, err := h.Ratings.Leaderboard(c.Request.Context(), queryLimit(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"debaters": entries})
}

// GetRatingHistoryHandler handles GET /users/:id/rating-history?limit=N.
func (h *DebateHandler) GetRatingHistoryHandler(c *gin.Context) {
	history, err := h.Ratings.History(c.Request.Context(), c.Param("id"), queryLimit(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// queryLimit returns the limit query parameter, or 0 when absent or malformed.
func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return n
}

func (h *DebateHandler) writeError(c *gin.Context, err error) {
	var de *debate.Error
	if !errors.As(err, &de) {
		resolveLogger(h.Logger).Error("request failed",
			"event", "request_failed",
			"path", c.FullPath(),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	body := gin.H{"error": de.Error(), "kind": de.Kind}
	if len(de.Suggestions) > 0 {
		body["suggestions"] = de.Suggestions
	}
	c.JSON(statusFor(de.Kind), body)
}

func statusFor(kind debate.Kind) int {
	switch kind {
	case debate.KindValidation:
		return http.StatusBadRequest
	case debate.KindNotFound:
		return http.StatusNotFound
	case debate.KindAuthorization:
		return http.StatusForbidden
	case debate.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
