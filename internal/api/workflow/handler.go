package workflow

import (
	"bytes"
	"net/http"
	"strings"

	"podcast-app/internal/api/respond"
	"podcast-app/internal/apperr"
	"podcast-app/internal/domain/podcasts"
	wf "podcast-app/internal/domain/workflow"
	"podcast-app/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	svc *workflow.Service
	log logrus.FieldLogger
}

func New(svc *workflow.Service, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

// ------------------------------
// GET /podcasts/:id/workflow
// ------------------------------
func (h *Handler) GetWorkflow(c *gin.Context) {
	userID, ok := respond.MustUserID(c)
	if !ok {
		return
	}

	p, err := h.svc.LoadForCaller(c.Request.Context(), c.Param("id"), userID, c.GetString("role"))
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, newWorkflowResponse(wf.StateOf(p)))
}

// ------------------------------
// POST /podcasts/:id/workflow
// ------------------------------
func (h *Handler) PostWorkflow(c *gin.Context) {
	userID, ok := respond.MustUserID(c)
	if !ok {
		return
	}

	var req WorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	p, err := h.svc.LoadForCaller(ctx, c.Param("id"), userID, c.GetString("role"))
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	if req.Action == actionValidate {
		h.validate(c, p, req)
		return
	}

	var state wf.State
	switch req.Action {
	case actionTransition:
		state, err = h.transition(c, p, req)
	case actionSetOverride:
		state, err = h.setOverride(c, p, req)
	default:
		err = apperr.Validation("Unknown action %q", req.Action)
	}
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"workflow":             state,
		"availableTransitions": wf.AvailableTransitions(state.Mode),
	})
}

// validate runs the transition checks without writing anything.
func (h *Handler) validate(c *gin.Context, p *podcasts.Podcast, req WorkflowRequest) {
	from, to, err := parseModes(p, req)
	if err == nil {
		rssURL := p.RSSURLValue()
		if req.RSSURL != nil && strings.TrimSpace(*req.RSSURL) != "" {
			rssURL = *req.RSSURL
		}
		err = wf.ValidateTransition(from, to, rssURL)
	}
	if err == nil && from != wf.ModeOf(p) {
		err = apperr.New(apperr.KindStateMismatch,
			"Podcast is in %s mode, expected %s; refresh and retry", wf.ModeOf(p), from)
	}

	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": apperr.Reason(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// parseModes reads the requested edge. Without an explicit from, the caller
// means the current mode.
func parseModes(p *podcasts.Podcast, req WorkflowRequest) (wf.Mode, wf.Mode, error) {
	to, ok := wf.ParseMode(req.To)
	if !ok {
		return "", "", apperr.Validation("Invalid target mode %q", req.To)
	}

	from := wf.ModeOf(p)
	if strings.TrimSpace(req.From) != "" {
		if from, ok = wf.ParseMode(req.From); !ok {
			return "", "", apperr.Validation("Invalid source mode %q", req.From)
		}
	}
	return from, to, nil
}

func (h *Handler) transition(c *gin.Context, p *podcasts.Podcast, req WorkflowRequest) (wf.State, error) {
	from, to, err := parseModes(p, req)
	if err != nil {
		return wf.State{}, err
	}

	t, found := wf.FindTransition(from, to)
	if !found {
		t = wf.Transition{From: from, To: to}
	}

	return h.svc.TransitionPodcastWorkflow(c.Request.Context(), p.ID, t, workflow.Options{
		RSSURL:                req.RSSURL,
		SyncNow:               req.SyncNow,
		PreserveManualChanges: req.PreserveManualChanges,
	})
}

func (h *Handler) setOverride(c *gin.Context, p *podcasts.Podcast, req WorkflowRequest) (wf.State, error) {
	field, ok := podcasts.ParseOverrideField(req.Field)
	if !ok {
		return wf.State{}, apperr.Validation("Invalid override field %q", req.Field)
	}

	var value bool
	switch string(bytes.TrimSpace(req.Value)) {
	case "true":
		value = true
	case "false":
		value = false
	default:
		return wf.State{}, apperr.Validation("Override value must be a boolean")
	}

	return h.svc.SetManualOverride(c.Request.Context(), p.ID, field, value)
}
