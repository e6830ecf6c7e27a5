package webserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ltyyb/surveybot/src/actions/moderation/lifecycle"
	"github.com/ltyyb/surveybot/src/data/store"
	"github.com/ltyyb/surveybot/src/logging"
	"github.com/ltyyb/surveybot/src/shared/survey"
	"github.com/ltyyb/surveybot/src/surveypkg"
)

const (
	headerRequestID = "SURVEY-REQUEST-ID"
	headerUserID    = "SURVEY-USER-ID"
)

// Submission status codes understood by the web form.
const (
	statusOK             = 0
	statusInvalidBody    = -1
	statusUnknownUser    = -2
	statusInvalidAnswers = -3
	statusDuplicate      = -4
	statusInvalidVersion = -5
	statusStoreFailure   = -501
)

type Survey struct {
	lc      *lifecycle.Lifecycle
	users   *store.Users
	links   *store.Links
	surveys *surveypkg.Provider
	log     zerolog.Logger
}

func NewSurvey(lc *lifecycle.Lifecycle, users *store.Users, links *store.Links, surveys *surveypkg.Provider) Survey {
	return Survey{lc: lc, users: users, links: links, surveys: surveys, log: logging.For("api")}
}

// Entr returns the latest survey rendered for the requesting user. The user is
// identified by a request link token or, for older links, the user ID itself.
func (s Survey) Entr(c *gin.Context) {
	userID := strings.TrimSpace(c.GetHeader(headerUserID))
	if requestID := strings.TrimSpace(c.GetHeader(headerRequestID)); requestID != "" {
		resolved, err := s.links.Resolve(c, requestID)
		if err != nil {
			if store.IsNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"err": "survey link expired or unknown"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"err": "link lookup failed"})
			return
		}
		userID = resolved
	}
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"err": "missing " + headerRequestID})
		return
	}

	user, err := s.users.ByID(c, userID)
	if err != nil {
		if store.IsNotFound(err) {
			c.JSON(http.StatusBadRequest, gin.H{"err": "unknown user"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"err": "user lookup failed"})
		return
	}

	pkg := s.surveys.Current()
	if pkg == nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "no active survey"})
		return
	}
	latest := pkg.Latest()
	c.JSON(http.StatusOK, gin.H{
		"userId":  user.UserID,
		"version": latest.Version,
		"survey":  latest.Render(user.ExternalUserID),
	})
}

// Submit stores a completed survey. Answers may be a JSON object or a string
// holding one.
func (s Survey) Submit(c *gin.Context) {
	var req struct {
		UserID  string          `json:"userId"`
		Version string          `json:"version"`
		Answers json.RawMessage `json:"answers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" || len(req.Answers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": statusInvalidBody, "error": "invalid survey submission"})
		return
	}
	if req.Version == "" {
		if pkg := s.surveys.Current(); pkg != nil {
			req.Version = pkg.LatestVersion
		}
	}

	id, err := s.lc.Submit(c, lifecycle.Submission{
		UserID:  req.UserID,
		Version: req.Version,
		Answers: unwrapAnswers(req.Answers),
	})
	if err != nil {
		code, status := submitStatus(err)
		if status == statusStoreFailure {
			s.log.Error().Err(err).Str("user", req.UserID).Msg("submit failed")
		}
		c.JSON(code, gin.H{"status": status, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "responseId": id})
}

func submitStatus(err error) (int, int) {
	switch {
	case errors.Is(err, survey.ErrUnknownUser):
		return http.StatusNotFound, statusUnknownUser
	case errors.Is(err, survey.ErrInvalidAnswers):
		return http.StatusBadRequest, statusInvalidAnswers
	case errors.Is(err, survey.ErrDuplicateSubmission):
		return http.StatusConflict, statusDuplicate
	case errors.Is(err, survey.ErrInvalidVersion):
		return http.StatusBadRequest, statusInvalidVersion
	default:
		return http.StatusInternalServerError, statusStoreFailure
	}
}

func unwrapAnswers(raw json.RawMessage) []byte {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []byte(s)
	}
	return raw
}

// Response returns a submitted survey for the review page. Disabled responses
// are not served here.
func (s Survey) Response(c *gin.Context) {
	var req struct {
		SurveyID string `json:"surveyId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid surveyId"})
		return
	}

	info, err := s.lc.Info(c, strings.TrimSpace(req.SurveyID), "", false)
	if err != nil {
		if store.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"err": "no survey response found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"err": "response lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":  info.Response.UserID,
		"version": info.Response.SurveyVersion,
		"answers": info.Response.Answers,
	})
}
