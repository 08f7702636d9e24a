package ratelimit

import "strings"

// unlimited is returned for paths that are never rate limited
var unlimited = EndpointConfig{}

// exemptPaths are served without limits regardless of method.
var exemptPaths = map[string]bool{
	"/health": true,
}

// MatchEndpoint returns the config for a request, or nil when none applies.
// An exact path wins; otherwise the longest prefix config (one whose Path
// ends in "/") for the method is used, so "/approval/api/send-now/" covers
// every submission ID.
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if exemptPaths[path] {
		u := unlimited
		return &u
	}

	var best *EndpointConfig
	for i := range configs {
		c := &configs[i]
		if c.Method != method {
			continue
		}
		if c.Path == path {
			return c
		}
		if strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) &&
			(best == nil || len(c.Path) > len(best.Path)) {
			best = c
		}
	}
	return best
}
