package main

// aggregate reduces services to one state per environment.
// The first state seen for an environment is kept unless a later service is not active,
// in which case the later state wins.
func aggregate(services []service) environmentState {
	result := make(environmentState)
	for _, s := range services {
		name := environmentName(s)
		if _, found := result[name]; !found {
			result[name] = s.state
		} else if s.state != activeState {
			result[name] = s.state
		}
	}

	return result
}

func environmentName(s service) string {
	if s.environment == nil {
		return undefinedEnvironment
	}
	return *s.environment
}
