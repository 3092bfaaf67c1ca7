package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	logger "github.com/Financial-Times/go-logger"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

const (
	testAccessKey = "access"
	testSecretKey = "secret"
)

func init() {
	logger.InitLogger("rancher-environment-exporter", "debug")
}

type fakeService struct {
	name          string
	state         string
	environmentID string
}

type fakeEnvironment struct {
	id       string
	name     string
	services []fakeService
}

// fakeUpstream serves the projects, environments and services collections for a fixed set of environments.
type fakeUpstream struct {
	server            *httptest.Server
	environments      []fakeEnvironment
	failEnvironments  bool
	failServicesFor   string
	servicesRequests  int32
	projectsRequests  int32
	unauthorizedCalls int32
}

func newFakeUpstream(environments ...fakeEnvironment) *fakeUpstream {
	u := &fakeUpstream{environments: environments}

	r := mux.NewRouter()
	r.HandleFunc("/v1/projects", u.handleProjects)
	r.HandleFunc("/v1/projects/1a5/environments", u.handleEnvironments)
	r.HandleFunc("/v1/environments/{id}/services", u.handleServices)
	u.server = httptest.NewServer(u.authenticated(r))

	return u
}

func (u *fakeUpstream) close() {
	u.server.Close()
}

func (u *fakeUpstream) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != testAccessKey || pass != testSecretKey {
			atomic.AddInt32(&u.unauthorizedCalls, 1)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (u *fakeUpstream) handleProjects(w http.ResponseWriter, _ *http.Request) {
	atomic.AddInt32(&u.projectsRequests, 1)
	fmt.Fprintf(w, `{"data":[{"id":"1a5","links":{"environments":"%s/v1/projects/1a5/environments"}}]}`, u.server.URL)
}

func (u *fakeUpstream) handleEnvironments(w http.ResponseWriter, _ *http.Request) {
	if u.failEnvironments {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "<html>Bad Gateway</html>")
		return
	}

	fmt.Fprint(w, `{"data":[`)
	for i, env := range u.environments {
		if i > 0 {
			fmt.Fprint(w, ",")
		}
		fmt.Fprintf(w, `{"id":%q,"name":%q,"links":{"services":"%s/v1/environments/%s/services"}}`, env.id, env.name, u.server.URL, env.id)
	}
	fmt.Fprint(w, `]}`)
}

func (u *fakeUpstream) handleServices(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&u.servicesRequests, 1)
	id := mux.Vars(r)["id"]
	if id == u.failServicesFor {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "internal error")
		return
	}

	fmt.Fprint(w, `{"data":[`)
	for _, env := range u.environments {
		if env.id != id {
			continue
		}
		for i, s := range env.services {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"name":%q,"state":%q,"environmentId":%q}`, s.name, s.state, s.environmentID)
		}
	}
	fmt.Fprint(w, `]}`)
}

func (u *fakeUpstream) walker(maxConcurrency int) *resourceWalker {
	client := newAPIClient(testAccessKey, testSecretKey, defaultTestTimeout)
	return newResourceWalker(client, u.server.URL, maxConcurrency)
}

func hostAndPort(t *testing.T, rawURL string) (string, int) {
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return u.Hostname(), port
}
