package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/docpilot/store"
)

type createFeedbackRequest struct {
	Rating int32   `json:"rating"` // -1, 0, 1
	Note   *string `json:"note,omitempty"`
}

type feedbackResponse struct {
	ID        int64   `json:"id"`
	TurnID    int64   `json:"turn_id"`
	Rating    int32   `json:"rating"`
	Note      *string `json:"note,omitempty"`
	CreatedTs int64   `json:"created_ts"`
}

// CreateFeedback records a rating on an assistant turn.
func (s *APIV1Service) CreateFeedback(c echo.Context) error {
	ctx := c.Request().Context()
	turnID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid turn id")
	}

	var req createFeedbackRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "malformed request body")
	}
	if req.Rating < -1 || req.Rating > 1 {
		return errorResponse(c, http.StatusBadRequest, "rating must be -1, 0, or 1")
	}

	turn, err := s.Store.ListTurns(ctx, &store.FindTurn{ID: &turnID})
	if err != nil {
		return internalError(c, err)
	}
	if len(turn) == 0 {
		return errorResponse(c, http.StatusNotFound, "turn not found")
	}
	if turn[0].Role != "assistant" {
		return errorResponse(c, http.StatusBadRequest, "only assistant turns can be rated")
	}

	fb, err := s.Store.CreateTurnFeedback(ctx, &store.TurnFeedback{
		TurnID: turnID,
		Rating: req.Rating,
		Note:   req.Note,
	})
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, &feedbackResponse{
		ID:        fb.ID,
		TurnID:    fb.TurnID,
		Rating:    fb.Rating,
		Note:      fb.Note,
		CreatedTs: fb.CreatedTs,
	})
}
