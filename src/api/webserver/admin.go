package webserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/ltyyb/surveybot/src/actions/moderation/lifecycle"
	"github.com/ltyyb/surveybot/src/data/store"
	"github.com/ltyyb/surveybot/src/logging"
	"github.com/ltyyb/surveybot/src/shared/survey"
)

type Admin struct {
	lc        *lifecycle.Lifecycle
	responses *store.ResponseStore
	votes     *store.VoteTally
	resolver  *store.Resolver
	hash      []byte
	secret    []byte
	now       func() time.Time
	log       zerolog.Logger
}

func NewAdmin(lc *lifecycle.Lifecycle, responses *store.ResponseStore, votes *store.VoteTally, resolver *store.Resolver, passwordHash string, secret []byte) Admin {
	return Admin{
		lc:        lc,
		responses: responses,
		votes:     votes,
		resolver:  resolver,
		hash:      []byte(passwordHash),
		secret:    secret,
		now:       time.Now,
		log:       logging.For("api"),
	}
}

// Login exchanges the admin password for a bearer token.
func (a Admin) Login(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if len(a.hash) == 0 || len(a.secret) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": "admin login disabled"})
		return
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(req.Password)); err != nil {
		a.log.Warn().Str("ip_hash", hashIP(c.ClientIP())).Msg("admin login failed")
		c.JSON(http.StatusUnauthorized, gin.H{"err": "invalid credentials"})
		return
	}
	token, err := issueJWT(roleAdmin, roleAdmin, a.secret, a.now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Response returns every stored field of a response, including disabled and
// archived ones. Short IDs are accepted.
func (a Admin) Response(c *gin.Context) {
	info, err := a.lookup(c, c.Param("id"))
	if err != nil {
		if store.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"err": "response not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"response":       info.Response,
		"shortId":        info.ShortID,
		"externalUserId": info.ExternalUserID,
		"archived":       info.Archived,
		"agree":          info.Tally.Agree,
		"deny":           info.Tally.Deny,
	})
}

func (a Admin) lookup(c *gin.Context, id string) (*lifecycle.Info, error) {
	for _, scope := range []store.Scope{store.ScopeActive, store.ScopeArchived} {
		full, err := a.resolver.Resolve(c, id, scope)
		if err != nil {
			if errors.Is(err, survey.ErrNotFound) {
				continue
			}
			return nil, err
		}
		return a.lc.Info(c, full, "", true)
	}
	return nil, survey.ErrNotFound
}

type pendingItem struct {
	ResponseID     string    `json:"responseId"`
	ShortID        string    `json:"shortId"`
	ExternalUserID string    `json:"externalUserId"`
	SurveyVersion  string    `json:"surveyVersion"`
	CreatedAt      time.Time `json:"createdAt"`
	IsPushed       bool      `json:"isPushed"`
	IsDisabled     bool      `json:"isDisabled"`
	Agree          int64     `json:"agree"`
	Deny           int64     `json:"deny"`
}

// Pending lists unreviewed responses with their current tallies, oldest first.
func (a Admin) Pending(c *gin.Context) {
	rows, err := a.responses.ListUnreviewed(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	items := make([]pendingItem, 0, len(rows))
	for _, r := range rows {
		t, err := a.votes.Tally(c, r.ResponseID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
			return
		}
		items = append(items, pendingItem{
			ResponseID:     r.ResponseID,
			ShortID:        r.ShortID,
			ExternalUserID: r.ExternalUserID,
			SurveyVersion:  r.SurveyVersion,
			CreatedAt:      r.CreatedAt,
			IsPushed:       r.IsPushed,
			IsDisabled:     r.IsDisabled,
			Agree:          t.Agree,
			Deny:           t.Deny,
		})
	}
	c.JSON(http.StatusOK, gin.H{"pending": items, "count": len(items)})
}
