package main

import (
	"context"
	"fmt"

	log "github.com/Financial-Times/go-logger"
	"golang.org/x/sync/errgroup"
)

const (
	projectsStage     = "projects"
	environmentsStage = "environments"
	servicesStage     = "services"
)

type jsonFetcher interface {
	fetchJSON(ctx context.Context, url string, v interface{}) error
}

type resourceWalker struct {
	client         jsonFetcher
	baseURL        string
	maxConcurrency int
}

func newResourceWalker(client jsonFetcher, baseURL string, maxConcurrency int) *resourceWalker {
	return &resourceWalker{
		client:         client,
		baseURL:        baseURL,
		maxConcurrency: maxConcurrency,
	}
}

// walk follows projects -> environments -> services and returns every service tagged with its environment name.
// The first failing stage aborts the walk.
func (w *resourceWalker) walk(ctx context.Context) ([]service, error) {
	environmentsURL, err := w.getEnvironmentsURL(ctx)
	if err != nil {
		return nil, err
	}

	environments, servicesURLs, err := w.getEnvironments(ctx, environmentsURL)
	if err != nil {
		return nil, err
	}

	perEnvironment, err := w.getServices(ctx, servicesURLs)
	if err != nil {
		return nil, err
	}

	return flattenServices(perEnvironment, environments), nil
}

func (w *resourceWalker) getEnvironmentsURL(ctx context.Context) (string, error) {
	url := w.baseURL + "/v1/projects"

	var projects projectsResponse
	if err := w.client.fetchJSON(ctx, url, &projects); err != nil {
		return "", &stageError{Stage: projectsStage, URL: url, Err: err}
	}

	if len(projects.Data) == 0 {
		return "", &stageError{Stage: projectsStage, URL: url, Err: &UpstreamShapeError{URL: url, Field: "data[0]"}}
	}
	if len(projects.Data) > 1 {
		log.Debugf("Found %d projects, only the first one is polled", len(projects.Data))
	}

	environmentsURL := projects.Data[0].Links.Environments
	if environmentsURL == "" {
		return "", &stageError{Stage: projectsStage, URL: url, Err: &UpstreamShapeError{URL: url, Field: "data[0].links.environments"}}
	}

	return environmentsURL, nil
}

func (w *resourceWalker) getEnvironments(ctx context.Context, url string) (map[string]environment, []string, error) {
	var envs environmentsResponse
	if err := w.client.fetchJSON(ctx, url, &envs); err != nil {
		return nil, nil, &stageError{Stage: environmentsStage, URL: url, Err: err}
	}

	environments := make(map[string]environment, len(envs.Data))
	servicesURLs := make([]string, 0, len(envs.Data))
	for i, raw := range envs.Data {
		if raw.Links.Services == "" {
			return nil, nil, &stageError{
				Stage: environmentsStage,
				URL:   url,
				Err:   &UpstreamShapeError{URL: url, Field: fmt.Sprintf("data[%d].links.services", i)},
			}
		}
		environments[raw.ID] = environment{id: raw.ID, name: raw.Name}
		servicesURLs = append(servicesURLs, raw.Links.Services)
	}

	return environments, servicesURLs, nil
}

// getServices fetches every services collection concurrently, at most maxConcurrency at a time.
// Results keep the order of urls.
func (w *resourceWalker) getServices(ctx context.Context, urls []string) ([]servicesResponse, error) {
	results := make([]servicesResponse, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	if w.maxConcurrency > 0 {
		g.SetLimit(w.maxConcurrency)
	}

	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			if err := w.client.fetchJSON(gctx, url, &results[i]); err != nil {
				return &stageError{Stage: servicesStage, URL: url, Err: err}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func flattenServices(perEnvironment []servicesResponse, environments map[string]environment) []service {
	var services []service
	for _, resp := range perEnvironment {
		for _, raw := range resp.Data {
			s := service{
				name:          raw.Name,
				state:         raw.State,
				environmentID: raw.EnvironmentID,
			}
			if env, ok := environments[raw.EnvironmentID]; ok {
				name := env.name
				s.environment = &name
			}
			services = append(services, s)
		}
	}

	return services
}
