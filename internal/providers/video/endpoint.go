package video

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Flavor selects which Google API surface hosts the video model.
type Flavor string

const (
	FlavorGemini Flavor = "gemini"
	FlavorVertex Flavor = "vertex"
)

const (
	defaultGeminiHost    = "generativelanguage.googleapis.com"
	defaultGeminiVersion = "v1beta"
	defaultVertexVersion = "v1"
	defaultLocation      = "us-central1"
	defaultModel         = "veo-2.0-generate-001"
)

// Endpoint builds every URL the adapter calls from named parts, so host,
// version and resource path never drift between kickoff and poll.
type Endpoint struct {
	Flavor   Flavor
	Host     string
	Version  string
	Project  string
	Location string
	Model    string
}

// Normalize fills defaults and validates the combination.
func (e Endpoint) Normalize() (Endpoint, error) {
	e.Flavor = Flavor(strings.ToLower(strings.TrimSpace(string(e.Flavor))))
	if e.Flavor == "" {
		e.Flavor = FlavorGemini
	}
	e.Host = strings.TrimRight(strings.TrimSpace(e.Host), "/")
	e.Version = strings.Trim(strings.TrimSpace(e.Version), "/")
	e.Project = strings.TrimSpace(e.Project)
	e.Location = strings.TrimSpace(e.Location)
	e.Model = strings.TrimSpace(e.Model)
	if e.Model == "" {
		e.Model = defaultModel
	}
	switch e.Flavor {
	case FlavorGemini:
		if e.Host == "" {
			e.Host = defaultGeminiHost
		}
		if e.Version == "" {
			e.Version = defaultGeminiVersion
		}
	case FlavorVertex:
		if e.Project == "" {
			return Endpoint{}, errors.New("video: vertex endpoint requires a project")
		}
		if e.Location == "" {
			e.Location = defaultLocation
		}
		if e.Host == "" {
			e.Host = e.Location + "-aiplatform.googleapis.com"
		}
		if e.Version == "" {
			e.Version = defaultVertexVersion
		}
	default:
		return Endpoint{}, fmt.Errorf("video: unsupported api flavor %q", e.Flavor)
	}
	return e, nil
}

func (e Endpoint) base() string {
	host := e.Host
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return host + "/" + e.Version
}

func (e Endpoint) modelPath() string {
	model := url.PathEscape(e.Model)
	if e.Flavor == FlavorVertex {
		return fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s",
			url.PathEscape(e.Project), url.PathEscape(e.Location), model)
	}
	return "models/" + model
}

// PredictURL is the synchronous generation call.
func (e Endpoint) PredictURL() string {
	return e.base() + "/" + e.modelPath() + ":predict"
}

// KickoffURL starts a long-running generation.
func (e Endpoint) KickoffURL() string {
	return e.base() + "/" + e.modelPath() + ":predictLongRunning"
}

// PollURL returns the status URL for an operation name. Vertex polls through
// the model's fetchPredictOperation method with the name in the body.
func (e Endpoint) PollURL(operation string) string {
	if e.Flavor == FlavorVertex {
		return e.base() + "/" + e.modelPath() + ":fetchPredictOperation"
	}
	op := strings.TrimSpace(operation)
	if strings.HasPrefix(op, "http://") || strings.HasPrefix(op, "https://") {
		return op
	}
	return e.base() + "/" + strings.TrimLeft(op, "/")
}

// PollMethod is the HTTP method PollURL expects.
func (e Endpoint) PollMethod() string {
	if e.Flavor == FlavorVertex {
		return http.MethodPost
	}
	return http.MethodGet
}
