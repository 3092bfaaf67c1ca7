package main

const (
	activeState          = "active"
	undefinedEnvironment = "undefined"
)

type environment struct {
	id   string
	name string
}

type service struct {
	name          string
	state         string
	environmentID string
	// nil when the owning environment was not listed by the environments collection
	environment *string
}

// environmentState maps an environment display name to its aggregated state.
type environmentState map[string]string

type link struct {
	Environments string `json:"environments"`
	Services     string `json:"services"`
}

type projectsResponse struct {
	Data []struct {
		ID    string `json:"id"`
		Links link   `json:"links"`
	} `json:"data"`
}

type environmentsResponse struct {
	Data []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Links link   `json:"links"`
	} `json:"data"`
}

type servicesResponse struct {
	Data []struct {
		Name          string `json:"name"`
		State         string `json:"state"`
		EnvironmentID string `json:"environmentId"`
	} `json:"data"`
}
