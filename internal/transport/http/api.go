package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"live-quiz-engine/internal/app"
	"live-quiz-engine/internal/domain"
	"live-quiz-engine/internal/logging"
)

const qrSize = 320 // mobile-friendly size

// API serves the host control endpoints.
type API struct {
	service *app.QuizService
	logger  *zap.SugaredLogger
}

func NewAPI(service *app.QuizService, logger *zap.SugaredLogger) *API {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &API{service: service, logger: logger.Named("api")}
}

type createSessionRequest struct {
	QuizID               string `json:"quizId"`
	AntiCheat            *bool  `json:"antiCheat"`
	HideQuestionOnMobile bool   `json:"hideQuestionOnMobile"`
	Scoring              string `json:"scoring"`
}

type settingsRequest struct {
	AntiCheat            *bool `json:"antiCheat"`
	HideQuestionOnMobile *bool `json:"hideQuestionOnMobile"`
}

type commandResult struct {
	Command string           `json:"command"`
	Applied bool             `json:"applied"`
	State   domain.QuizState `json:"state"`
}

type sessionView struct {
	domain.SessionIdentity
	QuizID               string                    `json:"quizId"`
	Title                string                    `json:"title"`
	State                domain.QuizState          `json:"state"`
	QuestionIndex        int                       `json:"questionIndex"`
	QuestionCount        int                       `json:"questionCount"`
	Question             domain.PublicQuestion     `json:"question"`
	CorrectKey           domain.AnswerKey          `json:"correctKey,omitempty"`
	RemainingMs          int64                     `json:"remainingMs"`
	Stats                domain.AnswerStats        `json:"stats"`
	Leaderboard          []domain.LeaderboardEntry `json:"leaderboard"`
	Players              []domain.Player           `json:"players"`
	PlayerCount          int                       `json:"playerCount"`
	Suspects             []domain.SuspectEntry     `json:"suspects"`
	AntiCheat            bool                      `json:"antiCheat"`
	HideQuestionOnMobile bool                      `json:"hideQuestionOnMobile"`
}

func newSessionView(host *app.Host) sessionView {
	snap := host.Engine.Snapshot()
	view := sessionView{
		SessionIdentity:      host.Identity,
		QuizID:               host.QuizID,
		Title:                host.Title,
		State:                snap.State,
		QuestionIndex:        snap.QuestionIndex,
		QuestionCount:        snap.QuestionCount,
		Question:             snap.Question.Public(false),
		RemainingMs:          host.Engine.RemainingTime().Milliseconds(),
		Stats:                snap.Stats,
		Leaderboard:          domain.RankPlayers(snap.Players),
		Players:              snap.Players,
		PlayerCount:          host.Engine.PlayerCount(),
		Suspects:             snap.Suspects,
		AntiCheat:            snap.AntiCheat,
		HideQuestionOnMobile: snap.HideQuestionOnMobile,
	}
	switch snap.State {
	case domain.StateAnswerReveal, domain.StateLeaderboard, domain.StateFinished:
		view.CorrectKey = snap.Question.Correct
	}
	return view
}

func (a *API) Health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	_, _ = w.Write([]byte("ok"))
}

func (a *API) ListSessions(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	hosts := a.service.Sessions()
	out := make([]domain.SessionIdentity, 0, len(hosts))
	for _, host := range hosts {
		out = append(out, host.Identity)
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) CreateSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" {
		writeError(w, http.StatusBadRequest, "body must be JSON with a quizId")
		return
	}

	host, err := a.service.CreateSession(r.Context(), req.QuizID, app.SessionOptions{
		AntiCheat:            req.AntiCheat,
		HideQuestionOnMobile: req.HideQuestionOnMobile,
		Scoring:              req.Scoring,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, host.Identity)
}

func (a *API) GetSession(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	host, err := a.service.Session(ps.ByName("code"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(host))
}

func (a *API) CloseSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := a.service.CloseSession(r.Context(), ps.ByName("code")); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Command runs one host action: start, next, leaderboard, reset, sync or settings.
func (a *API) Command(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	host, err := a.service.Session(ps.ByName("code"))
	if err != nil {
		a.fail(w, err)
		return
	}

	action := ps.ByName("action")
	if action == "settings" {
		a.applySettings(w, r, host)
		return
	}

	applied, ok := runCommand(host.Engine, action)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown command "+action)
		return
	}
	writeJSON(w, http.StatusOK, commandResult{Command: action, Applied: applied, State: host.Engine.State()})
}

func (a *API) applySettings(w http.ResponseWriter, r *http.Request, host *app.Host) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings payload")
		return
	}
	err := host.Engine.ApplySettings(app.Settings{
		AntiCheat:            req.AntiCheat,
		HideQuestionOnMobile: req.HideQuestionOnMobile,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(host))
}

// QR renders the join URL of a session as a PNG.
func (a *API) QR(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	host, err := a.service.Session(ps.ByName("code"))
	if err != nil {
		a.fail(w, err)
		return
	}
	png, err := qrcode.Encode(host.Identity.JoinURL, qrcode.Medium, qrSize)
	if err != nil {
		a.logger.Errorw("qr generation failed", "code", host.Identity.SessionCode, "error", err)
		writeError(w, http.StatusInternalServerError, "qr generation failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// runCommand maps an action name onto an engine mutator. ok is false for an
// unknown action.
func runCommand(engine *app.Engine, action string) (applied, ok bool) {
	switch strings.ToLower(action) {
	case "start":
		return engine.StartQuiz(), true
	case "next":
		return engine.NextQuestion(), true
	case "leaderboard":
		return engine.ShowLeaderboard(), true
	case "reset":
		engine.Reset()
		return true, true
	case "sync":
		engine.BroadcastSyncPing()
		return true, true
	default:
		return false, false
	}
}

func (a *API) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrQuizNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnknownScoring):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidQuestionSet):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrNotInLobby):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrEngineDestroyed):
		writeError(w, http.StatusGone, err.Error())
	default:
		a.logger.Errorw("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type errorPayload struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorPayload{Message: msg})
}
