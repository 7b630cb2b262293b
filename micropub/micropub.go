// Package micropub implements the publishing side of the site: the micropub
// endpoint that accepts structured posts in two wire encodings, and the
// media endpoint it advertises. See https://micropub.spec.indieweb.org/.
package micropub

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amberfield/press/internal/algorithms"
	"github.com/amberfield/press/internal/httpx"
	"github.com/amberfield/press/internal/to"
	"github.com/amberfield/press/media"
	"github.com/amberfield/press/models"
	"github.com/go-json-experiment/json"
	"golang.org/x/exp/slog"
	"gorm.io/gorm"
)

type Env struct {
	*models.Env

	// Domain is the canonical host entries are served from.
	Domain string

	// Media stores uploaded files.
	Media *media.Store
}

// Error responses in the micropub error-response format.
// https://micropub.spec.indieweb.org/#error-response
func invalidRequest(format string, args ...any) error {
	return &httpx.ProtocolError{
		Code:      http.StatusBadRequest,
		ErrorCode: "invalid_request",
		Info:      fmt.Sprintf(format, args...),
	}
}

func forbidden() error {
	return &httpx.ProtocolError{Code: http.StatusForbidden, ErrorCode: "forbidden"}
}

func unauthorized() error {
	return &httpx.ProtocolError{Code: http.StatusUnauthorized, ErrorCode: "unauthorized"}
}

// Micropub is the publish endpoint. GET answers capability queries, POST
// creates content.
func Micropub(env *Env, w http.ResponseWriter, r *http.Request) error {
	switch r.Method {
	case "GET":
		return query(env, w, r)
	case "POST":
		return create(env, w, r)
	default:
		return httpx.Error(http.StatusMethodNotAllowed, fmt.Errorf("unsupported method %s", r.Method))
	}
}

// query handles https://micropub.spec.indieweb.org/#querying.
func query(env *Env, w http.ResponseWriter, r *http.Request) error {
	values := r.URL.Query()
	if _, ok := values["q"]; !ok {
		return invalidRequest(`must specify "q"`)
	}

	switch q := values.Get("q"); q {
	case "syndicate-to":
		targets, err := syndicateTo(env)
		if err != nil {
			return err
		}
		return to.JSON(w, targets)
	case "config":
		config, err := syndicateTo(env)
		if err != nil {
			return err
		}
		config["media-endpoint"] = "https://" + r.Host + "/api/micropub/media"
		return to.JSON(w, config)
	default:
		return invalidRequest("unsupported q %s", q)
	}
}

// syndicateTo advertises the enabled syndication targets. Disabled targets
// are never listed.
func syndicateTo(env *Env) (map[string]any, error) {
	targets, err := models.NewSyndicationTargets(env.DB).Enabled()
	if err != nil {
		return nil, err
	}
	views := algorithms.Map(targets, func(t models.SyndicationTarget) map[string]any {
		return t.MicropubView()
	})
	return map[string]any{"syndicate-to": views}, nil
}

func create(env *Env, w http.ResponseWriter, r *http.Request) error {
	secret, ok := bearer(r)
	if !ok {
		return unauthorized()
	}
	token, err := models.NewTokens(env.DB).Authenticate(secret, time.Now())
	if err != nil {
		if errors.Is(err, models.ErrTokenInvalid) {
			return forbidden()
		}
		return err
	}

	// no "action" supplied means a create action. Everything else,
	// recognised or not, is unimplemented in this version.
	if action := r.PostFormValue("action"); action != "" {
		return invalidRequest("unsupported action %s", action)
	}
	if !token.HasScope(models.ScopeCreate) {
		return forbidden()
	}

	switch typ := httpx.MediaType(r); typ {
	case "application/json":
		return createJSON(env, w, r)
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return createForm(env, w, r)
	default:
		return invalidRequest("unsupported content-type %s", typ)
	}
}

// bearer finds the access credential: the Authorization header first, then
// the access_token form field.
func bearer(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.TrimPrefix(auth, "Bearer "), true
	}
	if token := r.PostFormValue("access_token"); token != "" {
		return token, true
	}
	return "", false
}

func createForm(env *Env, w http.ResponseWriter, r *http.Request) error {
	h := r.PostFormValue("h")
	if h == "" {
		return invalidRequest(`must specify "h"`)
	}
	if h != "entry" {
		return invalidRequest("unsupported h-type %s", h)
	}

	var entry *models.Entry
	err := env.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = createEntryFromForm(tx, r.PostForm, time.Now())
		return err
	})
	if err != nil {
		return materializeError(err)
	}
	return created(env, w, entry)
}

func createJSON(env *Env, w http.ResponseWriter, r *http.Request) error {
	var body map[string]any
	if err := json.UnmarshalFull(r.Body, &body); err != nil {
		return invalidRequest("failed to parse request body: %v", err)
	}
	hType, err := stringProp(body, "type")
	if err != nil {
		return materializeError(err)
	}
	if hType != "h-entry" {
		return invalidRequest("unsupported type %s", hType)
	}
	props, _ := body["properties"].(map[string]any)

	var entry *models.Entry
	err = env.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = createEntryFromJSON(tx, props, time.Now())
		return err
	})
	if err != nil {
		return materializeError(err)
	}
	return created(env, w, entry)
}

// materializeError converts a domain validation failure raised during entry
// materialization into an invalid_request response. Anything else is a
// storage fault and propagates as is.
func materializeError(err error) error {
	var pe propError
	if errors.As(err, &pe) {
		return invalidRequest("%s", pe.Error())
	}
	return err
}

func created(env *Env, w http.ResponseWriter, entry *models.Entry) error {
	env.Log().Info("created entry",
		slog.Int("ordinal", entry.Ordinal),
		slog.String("slug", entry.Slug()),
	)
	w.Header().Set("Location", "https://"+env.Domain+entry.Slug())
	w.WriteHeader(http.StatusCreated)
	return nil
}
